package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildLoadList_StripsRemainderSuffixes(t *testing.T) {
	rows := []Row{
		testRow("SO1", "1", "Acme", "Tulsa", "OK", "30", "90000", "48"),
	}
	p, err := PlanLoads(rows, testConfig())
	assert.NoError(t, err)
	assert.Len(t, p.Trucks, 2)

	list := BuildLoadList(p, day("2025-03-11"))
	assert.Len(t, list, 2)

	// The remainder assignment is labeled 1-R1 on the plan but the load
	// list reports the line as entered.
	assert.Equal(t, "1", list[0].Line)
	assert.Equal(t, "1", list[1].Line)
	assert.Equal(t, 2, list[1].TruckNumber)
}

func TestBuildLoadList_RowFields(t *testing.T) {
	row := testRow("SO9", "3", "Acme", "Tulsa", "OK", "4", "8000", "72")
	row[ColGrade] = "A572-50"
	row[ColSize] = "0.5x96"
	row[ColEarliestDue] = "2025-03-08"
	row[ColLatestDue] = "2025-03-20"

	p, err := PlanLoads([]Row{row}, testConfig())
	assert.NoError(t, err)

	list := BuildLoadList(p, day("2025-03-11"))
	assert.Len(t, list, 1)

	r := list[0]
	assert.Equal(t, "2025-03-11", r.ShipDate)
	assert.Equal(t, DefaultCarrier, r.Carrier)
	assert.Equal(t, 1, r.TruckNumber)
	assert.Equal(t, "SO9", r.SO)
	assert.Equal(t, "3", r.Line)
	assert.Equal(t, "Acme", r.Customer)
	assert.Equal(t, "Tulsa", r.City)
	assert.Equal(t, "OK", r.State)
	assert.Equal(t, 4, r.Pieces)
	assert.Equal(t, 8000.0, r.Weight)
	assert.Equal(t, 72.0, r.Width)
	assert.Equal(t, "A572-50", r.Grade)
	assert.Equal(t, "0.5x96", r.Size)
	assert.Equal(t, "2025-03-08", r.EarliestDue)
	assert.Equal(t, "2025-03-20", r.LatestDue)
}

func TestBuildLoadList_OrderedByTruckThenLine(t *testing.T) {
	rows := []Row{
		testRow("SO2", "2", "Acme", "Tulsa", "OK", "1", "1000", "48"),
		testRow("SO1", "1", "Acme", "Tulsa", "OK", "1", "1000", "48"),
		testRow("SO1", "2", "Acme", "Tulsa", "OK", "1", "1000", "48"),
	}
	p, err := PlanLoads(rows, testConfig())
	assert.NoError(t, err)
	assert.Len(t, p.Trucks, 1)

	list := BuildLoadList(p, day("2025-03-11"))
	assert.Len(t, list, 3)
	assert.Equal(t, []string{"SO1", "SO1", "SO2"}, []string{list[0].SO, list[1].SO, list[2].SO})
	assert.Equal(t, []string{"1", "2", "2"}, []string{list[0].Line, list[1].Line, list[2].Line})
}

func TestBuildLoadList_ShipDateIsDateOnly(t *testing.T) {
	p, err := PlanLoads([]Row{testRow("SO1", "1", "Acme", "Tulsa", "OK", "1", "1000", "48")}, testConfig())
	assert.NoError(t, err)

	list := BuildLoadList(p, day("2025-03-11").Add(15*time.Hour))
	assert.Equal(t, "2025-03-11", list[0].ShipDate)
}
