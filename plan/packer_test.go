package plan

import (
	"testing"
)

func packGroup(t *testing.T, cfg Config, lines []*OrderLine) ([]*Truck, *Diagnostics) {
	t.Helper()
	diags := &Diagnostics{}
	p := NewPacker(cfg, diags)
	if len(lines) > 0 {
		p.PackGroup(KeyFor(lines[0]), lines)
	}
	return p.Trucks(), diags
}

func TestPacker_SingleLineFitsOneTruck(t *testing.T) {
	cfg := testConfig()
	line := testLine("SO1", "1", "Acme", "Tulsa", "OK", 10, 20000, "2025-03-20", cfg.Today)

	trucks, diags := packGroup(t, cfg, []*OrderLine{line})

	if len(trucks) != 1 {
		t.Fatalf("got %d trucks, want 1", len(trucks))
	}
	tr := trucks[0]
	if tr.TruckNumber != 1 || tr.TotalWeight != 20000 || tr.TotalPieces != 10 {
		t.Errorf("truck summary: %+v", tr)
	}
	if tr.MinWeight != 44000 || tr.MaxWeight != 48000 {
		t.Errorf("OK destination must use the non-Texas band, got %.0f/%.0f", tr.MinWeight, tr.MaxWeight)
	}
	a := tr.Assignments[0]
	if a.IsPartial || a.IsRemainder || a.Line != "1" {
		t.Errorf("assignment: %+v", a)
	}
	if !diags.Empty() {
		t.Errorf("unexpected diagnostics: %+v", diags)
	}
}

func TestPacker_OversizedLineSplitsIntoRemainderTrucks(t *testing.T) {
	// 30 pieces at 3000 lb cannot ride one 48000 lb truck. The first truck
	// takes 16 pieces (48000 lb exactly) and the remainder line "1-R1"
	// carries the other 14 on a second truck.
	cfg := testConfig()
	line := testLine("SO1", "1", "Acme", "Tulsa", "OK", 30, 90000, "2025-03-20", cfg.Today)

	trucks, _ := packGroup(t, cfg, []*OrderLine{line})

	if len(trucks) != 2 {
		t.Fatalf("got %d trucks, want 2", len(trucks))
	}
	first, second := trucks[0], trucks[1]

	if first.TotalWeight != 48000 || first.TotalPieces != 16 {
		t.Errorf("first truck: %.0f lb %d pcs, want 48000 lb 16 pcs", first.TotalWeight, first.TotalPieces)
	}
	a := first.Assignments[0]
	if !a.IsPartial || a.IsRemainder || a.Line != "1" {
		t.Errorf("first assignment: %+v", a)
	}

	if second.TotalWeight != 42000 || second.TotalPieces != 14 {
		t.Errorf("second truck: %.0f lb %d pcs, want 42000 lb 14 pcs", second.TotalWeight, second.TotalPieces)
	}
	r := second.Assignments[0]
	if !r.IsRemainder || r.Line != "1-R1" || r.ParentLine != "SO1-1" {
		t.Errorf("remainder assignment: %+v", r)
	}
	if r.LineID() != "SO1-1" {
		t.Errorf("remainder LineID: got %q, want SO1-1", r.LineID())
	}
}

func TestPacker_TexasBandAllowsHeavierTrucks(t *testing.T) {
	// Same 90000 lb order to a Texas destination: the 52000 lb ceiling
	// lets 17 pieces ride the first truck.
	cfg := testConfig()
	line := testLine("SO1", "1", "Lone Star", "Houston", "TX", 30, 90000, "2025-03-20", cfg.Today)

	trucks, _ := packGroup(t, cfg, []*OrderLine{line})

	if len(trucks) != 2 {
		t.Fatalf("got %d trucks, want 2", len(trucks))
	}
	if trucks[0].TotalWeight != 51000 || trucks[0].TotalPieces != 17 {
		t.Errorf("first truck: %.0f lb %d pcs, want 51000 lb 17 pcs", trucks[0].TotalWeight, trucks[0].TotalPieces)
	}
	if trucks[1].TotalWeight != 39000 || trucks[1].TotalPieces != 13 {
		t.Errorf("second truck: %.0f lb %d pcs, want 39000 lb 13 pcs", trucks[1].TotalWeight, trucks[1].TotalPieces)
	}
}

func TestPacker_PieceHeavierThanTruckIsUnroutable(t *testing.T) {
	cfg := testConfig()
	heavy := testLine("SO1", "1", "Acme", "Tulsa", "OK", 2, 100000, "2025-03-20", cfg.Today) // 50000 lb per piece
	ok := testLine("SO1", "2", "Acme", "Tulsa", "OK", 5, 10000, "2025-03-20", cfg.Today)

	trucks, diags := packGroup(t, cfg, []*OrderLine{heavy, ok})

	if len(trucks) != 1 || trucks[0].TotalPieces != 5 {
		t.Fatalf("only the liftable line should pack, got %d trucks", len(trucks))
	}
	if len(diags.Unroutable) != 1 {
		t.Fatalf("got %d unroutable lines, want 1", len(diags.Unroutable))
	}
	u := diags.Unroutable[0]
	if u.Reason != ReasonPieceWeightExceedsCapacity || u.SO != "SO1" || u.Line != "1" {
		t.Errorf("unroutable record: %+v", u)
	}
}

func TestPacker_LateLinesPackFirst(t *testing.T) {
	cfg := testConfig()
	window := testLine("SO1", "1", "Acme", "Tulsa", "OK", 10, 30000, "2025-03-20", cfg.Today)
	late := testLine("SO2", "1", "Acme", "Tulsa", "OK", 10, 30000, "2025-03-01", cfg.Today)

	trucks, _ := packGroup(t, cfg, []*OrderLine{window, late})

	if len(trucks) != 2 {
		t.Fatalf("got %d trucks, want 2", len(trucks))
	}
	// The late line must land on truck 1 even though it arrived second.
	if got := trucks[0].Assignments[0].SO; got != "SO2" {
		t.Errorf("truck 1 first assignment SO: got %s, want SO2", got)
	}
	if trucks[0].Bucket != BucketLate || !trucks[0].ContainsLate {
		t.Errorf("truck 1 bucket: %s containsLate=%v", trucks[0].Bucket, trucks[0].ContainsLate)
	}
}

func TestPacker_LateMixingBlocksUnshippableLines(t *testing.T) {
	// A window line whose earliest due date is still in the future must not
	// ride a late truck; one that is already shippable may.
	cfg := testConfig()

	late := testLine("SO1", "1", "Acme", "Tulsa", "OK", 10, 30000, "2025-03-01", cfg.Today)
	blocked := testLine("SO2", "1", "Acme", "Tulsa", "OK", 5, 10000, "2025-03-20", cfg.Today)
	blocked.EarliestDue = dayPtr("2025-03-15")

	trucks, _ := packGroup(t, cfg, []*OrderLine{late, blocked})
	if len(trucks) != 2 {
		t.Fatalf("blocked line: got %d trucks, want 2", len(trucks))
	}
	if trucks[0].TotalPieces != 10 || trucks[1].TotalPieces != 5 {
		t.Errorf("blocked line must ride alone: %d + %d pcs", trucks[0].TotalPieces, trucks[1].TotalPieces)
	}

	shippable := testLine("SO2", "1", "Acme", "Tulsa", "OK", 5, 10000, "2025-03-20", cfg.Today)
	shippable.EarliestDue = dayPtr("2025-03-08")

	trucks, _ = packGroup(t, cfg, []*OrderLine{late, shippable})
	if len(trucks) != 1 {
		t.Fatalf("shippable line: got %d trucks, want 1", len(trucks))
	}
	if trucks[0].TotalPieces != 15 || trucks[0].Bucket != BucketLate {
		t.Errorf("mixed truck: %d pcs %s", trucks[0].TotalPieces, trucks[0].Bucket)
	}
}

func TestPacker_LateRemainderDoesNotJoinUnshippableOpenTruck(t *testing.T) {
	// The reverse mixing direction arises in the drain phase: a late
	// remainder returns after a window line opened a truck that may not
	// ship yet. The remainder must force a fresh truck.
	cfg := testConfig()

	late := testLine("SO1", "1", "Acme", "Tulsa", "OK", 30, 90000, "2025-03-01", cfg.Today)
	window := testLine("SO2", "1", "Acme", "Tulsa", "OK", 5, 10000, "2025-03-20", cfg.Today)
	window.EarliestDue = dayPtr("2025-03-15")

	trucks, _ := packGroup(t, cfg, []*OrderLine{late, window})

	if len(trucks) != 3 {
		t.Fatalf("got %d trucks, want 3", len(trucks))
	}
	if trucks[0].TotalWeight != 48000 || !trucks[0].ContainsLate {
		t.Errorf("truck 1: %.0f lb late=%v, want 48000 lb late", trucks[0].TotalWeight, trucks[0].ContainsLate)
	}
	if trucks[1].TotalWeight != 10000 || trucks[1].ContainsLate {
		t.Errorf("window truck must close without the late remainder: %.0f lb late=%v",
			trucks[1].TotalWeight, trucks[1].ContainsLate)
	}
	if trucks[2].TotalWeight != 42000 || trucks[2].Assignments[0].Line != "1-R1" {
		t.Errorf("truck 3: %.0f lb line %s, want 42000 lb line 1-R1",
			trucks[2].TotalWeight, trucks[2].Assignments[0].Line)
	}
}

func TestPacker_SoftFullFinalizesEarly(t *testing.T) {
	// 47100 lb is under the 48000 ceiling but above the 0.98 soft-full
	// threshold, so the truck closes and the next line starts truck 2.
	cfg := testConfig()
	big := testLine("SO1", "1", "Acme", "Tulsa", "OK", 10, 47100, "2025-03-20", cfg.Today)
	small := testLine("SO2", "1", "Acme", "Tulsa", "OK", 1, 500, "2025-03-20", cfg.Today)

	trucks, _ := packGroup(t, cfg, []*OrderLine{big, small})

	if len(trucks) != 2 {
		t.Fatalf("got %d trucks, want 2", len(trucks))
	}
	if trucks[0].TotalWeight != 47100 || trucks[1].TotalWeight != 500 {
		t.Errorf("weights: %.0f / %.0f, want 47100 / 500", trucks[0].TotalWeight, trucks[1].TotalWeight)
	}
}

func TestPacker_ZeroTakeFinalizesAndRetries(t *testing.T) {
	// After 46000 lb the open truck cannot take a single 3000 lb piece;
	// the packer must close it and restart the line on a fresh truck
	// instead of dropping pieces.
	cfg := testConfig()
	filler := testLine("SO1", "1", "Acme", "Tulsa", "OK", 23, 46000, "2025-03-20", cfg.Today)
	thick := testLine("SO2", "1", "Acme", "Tulsa", "OK", 4, 12000, "2025-03-20", cfg.Today)

	trucks, _ := packGroup(t, cfg, []*OrderLine{filler, thick})

	if len(trucks) != 2 {
		t.Fatalf("got %d trucks, want 2", len(trucks))
	}
	if trucks[0].TotalWeight != 46000 {
		t.Errorf("first truck: %.0f lb, want 46000", trucks[0].TotalWeight)
	}
	if trucks[1].TotalWeight != 12000 || trucks[1].TotalPieces != 4 {
		t.Errorf("second truck: %.0f lb %d pcs, want 12000 lb 4 pcs", trucks[1].TotalWeight, trucks[1].TotalPieces)
	}
}

func TestPacker_FullWeightPiecesRideAlone(t *testing.T) {
	// Each piece weighs exactly the ceiling, so every truck carries one
	// piece and the line drains through successive remainder iterations.
	cfg := testConfig()
	line := testLine("SO1", "1", "Acme", "Tulsa", "OK", 3, 144000, "2025-03-20", cfg.Today)

	trucks, diags := packGroup(t, cfg, []*OrderLine{line})

	if len(trucks) != 3 {
		t.Fatalf("got %d trucks, want 3", len(trucks))
	}
	for i, tr := range trucks {
		if tr.TotalPieces != 1 || tr.TotalWeight != 48000 {
			t.Errorf("truck %d: %d pcs %.0f lb, want 1 pc 48000 lb", i+1, tr.TotalPieces, tr.TotalWeight)
		}
	}
	if got := trucks[2].Assignments[0].Line; got != "1-R2" {
		t.Errorf("last assignment line %q, want 1-R2", got)
	}
	if !diags.Empty() {
		t.Errorf("unexpected diagnostics: %+v", diags)
	}
}

func TestPacker_ConservationAndCapacity(t *testing.T) {
	// Whatever the mix, pieces and weight in equal pieces and weight out,
	// and no truck exceeds its ceiling.
	cfg := testConfig()
	lines := []*OrderLine{
		testLine("SO1", "1", "Acme", "Tulsa", "OK", 30, 90000, "2025-03-01", cfg.Today),
		testLine("SO1", "2", "Acme", "Tulsa", "OK", 7, 15400, "2025-03-12", cfg.Today),
		testLine("SO2", "1", "Acme", "Tulsa", "OK", 12, 46800, "2025-03-20", cfg.Today),
		testLine("SO3", "1", "Acme", "Tulsa", "OK", 3, 900, "", cfg.Today),
	}
	var wantPieces int
	var wantWeight float64
	for _, l := range lines {
		wantPieces += l.ReadyPieces
		wantWeight += l.ReadyWeight
	}

	trucks, diags := packGroup(t, cfg, lines)

	if !diags.Empty() {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
	if got := totalPieces(trucks); got != wantPieces {
		t.Errorf("pieces: got %d, want %d", got, wantPieces)
	}
	if got := totalWeight(trucks); got < wantWeight-0.5 || got > wantWeight+0.5 {
		t.Errorf("weight: got %.1f, want %.1f", got, wantWeight)
	}
	for _, tr := range trucks {
		if tr.TotalWeight > tr.MaxWeight*(1+CapacityEpsilon) {
			t.Errorf("truck %d over ceiling: %.1f > %.1f", tr.TruckNumber, tr.TotalWeight, tr.MaxWeight)
		}
	}
}

func TestPacker_TruckNumbersRunAcrossGroups(t *testing.T) {
	cfg := testConfig()
	diags := &Diagnostics{}
	p := NewPacker(cfg, diags)

	tulsa := testLine("SO1", "1", "Acme", "Tulsa", "OK", 10, 20000, "2025-03-20", cfg.Today)
	waco := testLine("SO2", "1", "Beta", "Waco", "TX", 10, 20000, "2025-03-20", cfg.Today)
	p.PackGroup(KeyFor(tulsa), []*OrderLine{tulsa})
	p.PackGroup(KeyFor(waco), []*OrderLine{waco})

	trucks := p.Trucks()
	if len(trucks) != 2 {
		t.Fatalf("got %d trucks, want 2", len(trucks))
	}
	if trucks[0].TruckNumber != 1 || trucks[1].TruckNumber != 2 {
		t.Errorf("numbering: %d, %d", trucks[0].TruckNumber, trucks[1].TruckNumber)
	}
	if trucks[1].CustomerState != "TX" || trucks[1].MaxWeight != 52000 {
		t.Errorf("second group truck: %+v", trucks[1])
	}
}

func TestPacker_RemainderIterationBound(t *testing.T) {
	// With the worklist bound forced to 1, a line needing three trucks
	// stops after the first remainder pass. The tail pieces are sacrificed
	// rather than looping forever.
	cfg := testConfig()
	cfg.MaxRemainder = 1
	line := testLine("SO1", "1", "Acme", "Tulsa", "OK", 5, 100000, "2025-03-20", cfg.Today) // 20000 lb per piece

	trucks, _ := packGroup(t, cfg, []*OrderLine{line})

	if len(trucks) != 2 {
		t.Fatalf("got %d trucks, want 2", len(trucks))
	}
	if got := totalPieces(trucks); got != 4 {
		t.Errorf("pieces packed before the bound: got %d, want 4", got)
	}
}

func TestPacker_DeterministicAcrossRuns(t *testing.T) {
	cfg := testConfig()
	build := func() []*Truck {
		lines := []*OrderLine{
			testLine("SO3", "1", "Acme", "Tulsa", "OK", 9, 27000, "2025-03-11", cfg.Today),
			testLine("SO1", "2", "Acme", "Tulsa", "OK", 30, 90000, "2025-03-01", cfg.Today),
			testLine("SO1", "1", "Acme", "Tulsa", "OK", 4, 8000, "", cfg.Today),
			testLine("SO2", "1", "Acme", "Tulsa", "OK", 16, 46400, "2025-03-20", cfg.Today),
		}
		trucks, _ := packGroup(t, cfg, lines)
		return trucks
	}

	first, second := build(), build()
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.TotalWeight != b.TotalWeight || a.TotalPieces != b.TotalPieces || a.TotalLines != b.TotalLines {
			t.Errorf("truck %d differs between runs: %v vs %v", i+1, a, b)
		}
		for j := range a.Assignments {
			if a.Assignments[j].SO != b.Assignments[j].SO || a.Assignments[j].Line != b.Assignments[j].Line {
				t.Errorf("truck %d assignment %d differs: %s-%s vs %s-%s", i+1, j,
					a.Assignments[j].SO, a.Assignments[j].Line, b.Assignments[j].SO, b.Assignments[j].Line)
			}
		}
	}
}
