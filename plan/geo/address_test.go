package geo

import (
	"testing"
)

func TestAddress_Key_CollapsesFormattingDifferences(t *testing.T) {
	a := Address{Street: "500 N.W. Mill Rd.", City: "Fort Worth", State: "tx", Zip: "76102", Country: "USA"}
	b := Address{Street: "500 NW MILL RD", City: "FortWorth", State: "TX", Zip: " 76102 ", Country: "usa"}

	if a.Key() != b.Key() {
		t.Errorf("equivalent addresses produced different keys:\n  %q\n  %q", a.Key(), b.Key())
	}
	if want := "500nwmillrd|fortworth|TX|76102|usa"; a.Key() != want {
		t.Errorf("key: got %q, want %q", a.Key(), want)
	}
}

func TestAddress_Key_DistinguishesRealDifferences(t *testing.T) {
	base := Address{Street: "500 Mill Rd", City: "Tulsa", State: "OK", Zip: "74101", Country: "USA"}
	otherStreet := base
	otherStreet.Street = "600 Mill Rd"
	otherCity := base
	otherCity.City = "Broken Arrow"

	if base.Key() == otherStreet.Key() {
		t.Error("different streets must not share a key")
	}
	if base.Key() == otherCity.Key() {
		t.Error("different cities must not share a key")
	}
}

func TestAddress_Key_EmptyFieldsKeepPositions(t *testing.T) {
	// City-only and street-only addresses must not collide just because
	// the populated text matches.
	cityOnly := Address{City: "Austin"}
	streetOnly := Address{Street: "Austin"}

	if cityOnly.Key() == streetOnly.Key() {
		t.Errorf("field positions lost: %q", cityOnly.Key())
	}
}

func TestAddress_Query_SkipsEmptyParts(t *testing.T) {
	full := Address{Street: "500 Mill Rd", City: "Tulsa", State: "OK", Zip: "74101", Country: "USA"}
	if got, want := full.Query(), "500 Mill Rd, Tulsa, OK 74101, USA"; got != want {
		t.Errorf("full query: got %q, want %q", got, want)
	}

	cityState := Address{City: "Tulsa", State: "OK"}
	if got, want := cityState.Query(), "Tulsa, OK"; got != want {
		t.Errorf("city-state query: got %q, want %q", got, want)
	}

	zipOnly := Address{Zip: "74101"}
	if got, want := zipOnly.Query(), "74101"; got != want {
		t.Errorf("zip-only query: got %q, want %q", got, want)
	}
}

func TestPoint_CoordKey_SixDecimals(t *testing.T) {
	p := Point{Lat: 32.7555, Lng: -97.3308}
	if got, want := p.CoordKey(), "32.755500,-97.330800"; got != want {
		t.Errorf("coord key: got %q, want %q", got, want)
	}

	// Coordinates differing below cache resolution share a key.
	q := Point{Lat: 32.7555000004, Lng: -97.3308}
	if p.CoordKey() != q.CoordKey() {
		t.Errorf("sub-resolution difference split keys: %q vs %q", p.CoordKey(), q.CoordKey())
	}
}

func TestPairKey_String_Directed(t *testing.T) {
	k := PairKey{From: "a", To: "b"}
	r := PairKey{From: "b", To: "a"}
	if k.String() == r.String() {
		t.Error("reversed pairs must not collide")
	}
	if k.String() != "a>b" {
		t.Errorf("pair key: got %q, want %q", k.String(), "a>b")
	}
}
