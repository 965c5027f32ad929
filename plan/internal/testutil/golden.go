// Package testutil provides shared test infrastructure for the planning
// engine. It consolidates the golden scenario dataset types and assertion
// helpers used across plan/ and cmd/ test packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one end-to-end planning scenario: a raw input table,
// the planning date, and the plan it must produce.
type GoldenTestCase struct {
	Name         string              `json:"name"`
	Today        string              `json:"today"`
	PlanningWhse []string            `json:"planning_whse,omitempty"`
	Rows         []map[string]string `json:"rows"`
	Expect       GoldenPlan          `json:"expect"`
}

// GoldenPlan is the expected load plan.
type GoldenPlan struct {
	Trucks   []GoldenTruck    `json:"trucks"`
	Sections map[string][]int `json:"sections"`
}

// GoldenTruck is the expected shape of one planned truck. Lines holds the
// assignment line labels in assignment order, remainder suffixes included.
type GoldenTruck struct {
	TruckNumber   int      `json:"truckNumber"`
	CustomerName  string   `json:"customerName"`
	CustomerState string   `json:"customerState"`
	TotalWeight   float64  `json:"totalWeight"`
	TotalPieces   int      `json:"totalPieces"`
	TotalLines    int      `json:"totalLines"`
	Bucket        string   `json:"priorityBucket"`
	ContainsLate  bool     `json:"containsLate"`
	Lines         []string `json:"lines"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: plan/internal/testutil/
// → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
