package plan

import (
	"time"
)

// day parses a YYYY-MM-DD string as a UTC midnight. All test dates are
// pinned; nothing in the suite depends on the wall clock.
func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	d := day(s)
	return &d
}

// testConfig returns a normalized config pinned to a fixed planning date,
// with warehouse filtering disabled so plain rows need no PlanningWhse cell.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Today = day("2025-03-10")
	cfg.PlanningWhse = []string{}
	return cfg.Normalize()
}

// testLine builds an order line the way the Normalizer would emit it, with
// the derived weight-per-piece and bucket filled in. latestDue may be empty.
func testLine(so, line, customer, city, state string, pieces int, weight float64, latestDue string, today time.Time) *OrderLine {
	l := &OrderLine{
		SO:          so,
		Line:        line,
		Customer:    customer,
		City:        city,
		State:       state,
		Country:     "USA",
		ReadyPieces: pieces,
		ReadyWeight: weight,
		Width:       48,
	}
	if pieces > 0 {
		l.WeightPerPiece = weight / float64(pieces)
	}
	if latestDue != "" {
		l.LatestDue = dayPtr(latestDue)
	}
	l.Bucket = BucketFor(l.LatestDue, today)
	l.IsLate = l.Bucket == BucketLate
	return l
}

// testRow builds a raw input row carrying every required column.
func testRow(so, line, customer, city, state, pieces, weight, width string) Row {
	return Row{
		ColSO:            so,
		ColLine:          line,
		ColCustomer:      customer,
		ColShippingCity:  city,
		ColShippingState: state,
		ColReadyPieces:   pieces,
		ColReadyWeight:   weight,
		ColWidth:         width,
	}
}

// totalWeight sums assignment weight over a set of trucks.
func totalWeight(trucks []*Truck) float64 {
	var sum float64
	for _, t := range trucks {
		for _, a := range t.Assignments {
			sum += a.TotalWeight
		}
	}
	return sum
}

// totalPieces sums assignment pieces over a set of trucks.
func totalPieces(trucks []*Truck) int {
	var sum int
	for _, t := range trucks {
		for _, a := range t.Assignments {
			sum += a.PiecesOnTransport
		}
	}
	return sum
}
