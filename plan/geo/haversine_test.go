package geo

import (
	"context"
	"math"
	"testing"
)

var (
	fortWorth = Point{Lat: 32.7555, Lng: -97.3308}
	dallas    = Point{Lat: 32.7767, Lng: -96.7970}
	houston   = Point{Lat: 29.7604, Lng: -95.3698}
)

func TestGreatCircleMiles_KnownDistance(t *testing.T) {
	// Fort Worth to Dallas is very close to 31 miles great-circle.
	got := GreatCircleMiles(fortWorth, dallas)
	if math.Abs(got-31) > 1.5 {
		t.Errorf("Fort Worth-Dallas: got %.1f mi, want about 31", got)
	}

	if d := GreatCircleMiles(houston, fortWorth); math.Abs(d-237) > 5 {
		t.Errorf("Houston-Fort Worth: got %.1f mi, want about 237", d)
	}
}

func TestGreatCircleMiles_ZeroForSamePoint(t *testing.T) {
	if d := GreatCircleMiles(fortWorth, fortWorth); d != 0 {
		t.Errorf("same point: got %f, want 0", d)
	}
}

func TestHaversine_Distance_AppliesDetourAndSpeed(t *testing.T) {
	h := Haversine{}
	leg, err := h.Distance(context.Background(), fortWorth, dallas)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}

	wantMiles := GreatCircleMiles(fortWorth, dallas) * DefaultDetourFactor
	if math.Abs(leg.Miles-wantMiles) > 1e-9 {
		t.Errorf("miles: got %f, want %f", leg.Miles, wantMiles)
	}
	wantMinutes := wantMiles / DefaultSpeedMph * 60
	if math.Abs(leg.Minutes-wantMinutes) > 1e-9 {
		t.Errorf("minutes: got %f, want %f", leg.Minutes, wantMinutes)
	}
}

func TestHaversine_SpeedClamped(t *testing.T) {
	slow := Haversine{SpeedMph: 2}
	fast := Haversine{SpeedMph: 200}

	slowLeg, _ := slow.Distance(context.Background(), fortWorth, houston)
	fastLeg, _ := fast.Distance(context.Background(), fortWorth, houston)

	// 2 mph clamps to 10, 200 clamps to 75; miles are identical.
	if math.Abs(slowLeg.Minutes-slowLeg.Miles/10*60) > 1e-9 {
		t.Errorf("slow clamp: got %f minutes for %f miles", slowLeg.Minutes, slowLeg.Miles)
	}
	if math.Abs(fastLeg.Minutes-fastLeg.Miles/75*60) > 1e-9 {
		t.Errorf("fast clamp: got %f minutes for %f miles", fastLeg.Minutes, fastLeg.Miles)
	}
}

func TestHaversine_Matrix_ShapeAndDiagonal(t *testing.T) {
	h := Haversine{}
	points := []Point{fortWorth, dallas, houston}

	m, err := h.Matrix(context.Background(), points, points)
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	if len(m) != 3 {
		t.Fatalf("rows: got %d, want 3", len(m))
	}
	for i := range m {
		if len(m[i]) != 3 {
			t.Fatalf("row %d: got %d cols, want 3", i, len(m[i]))
		}
		if m[i][i].Miles != 0 || m[i][i].Minutes != 0 {
			t.Errorf("diagonal %d: %+v, want zero", i, m[i][i])
		}
	}
	if m[0][1].Miles <= 0 || m[1][2].Miles <= 0 {
		t.Error("off-diagonal legs must be positive")
	}
}
