package plan

import (
	"slices"
	"strings"
	"time"
)

// DefaultCarrier is stamped on every exported load-list row.
const DefaultCarrier = "Jordan Carriers"

// LoadListRow is one line of the dispatch load list. Remainder suffixes are
// stripped so dispatch sees the order lines as entered.
type LoadListRow struct {
	ShipDate    string  `json:"shipDate"`
	Carrier     string  `json:"carrier"`
	TruckNumber int     `json:"truckNumber"`
	SO          string  `json:"so"`
	Line        string  `json:"line"`
	Customer    string  `json:"customerName"`
	City        string  `json:"customerCity"`
	State       string  `json:"customerState"`
	Pieces      int     `json:"pieces"`
	Weight      float64 `json:"weight"`
	Width       float64 `json:"width"`
	Grade       string  `json:"grade,omitempty"`
	Size        string  `json:"size,omitempty"`
	EarliestDue string  `json:"earliestDue,omitempty"`
	LatestDue   string  `json:"latestDue,omitempty"`
}

// BuildLoadList renders a plan as dispatch load-list rows, ordered by truck
// number then order and line.
func BuildLoadList(p *LoadPlan, shipDate time.Time) []LoadListRow {
	rows := make([]LoadListRow, 0, len(p.Assignments))
	day := Midnight(shipDate).Format("2006-01-02")
	for _, a := range p.Assignments {
		rows = append(rows, LoadListRow{
			ShipDate:    day,
			Carrier:     DefaultCarrier,
			TruckNumber: a.TruckNumber,
			SO:          a.SO,
			Line:        a.BaseLine,
			Customer:    a.CustomerName,
			City:        a.CustomerCity,
			State:       a.CustomerState,
			Pieces:      a.PiecesOnTransport,
			Weight:      a.TotalWeight,
			Width:       a.Width,
			Grade:       a.Grade,
			Size:        a.Size,
			EarliestDue: formatDue(a.EarliestDue),
			LatestDue:   formatDue(a.LatestDue),
		})
	}
	slices.SortStableFunc(rows, func(a, b LoadListRow) int {
		if a.TruckNumber != b.TruckNumber {
			return a.TruckNumber - b.TruckNumber
		}
		if c := strings.Compare(a.SO, b.SO); c != 0 {
			return c
		}
		return strings.Compare(a.Line, b.Line)
	})
	return rows
}

func formatDue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
