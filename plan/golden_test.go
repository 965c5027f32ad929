package plan

import (
	"fmt"
	"testing"

	"github.com/truckplan/truckplan/plan/internal/testutil"
)

// TestPlanLoads_GoldenDataset replays the end-to-end scenarios in
// testdata/goldendataset.json and checks the planned trucks field by field.
func TestPlanLoads_GoldenDataset(t *testing.T) {
	ds := testutil.LoadGoldenDataset(t)

	for _, tc := range ds.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			rows := make([]Row, len(tc.Rows))
			for i, r := range tc.Rows {
				rows[i] = Row(r)
			}
			cfg := DefaultConfig()
			cfg.Today = day(tc.Today)
			cfg.PlanningWhse = tc.PlanningWhse

			p, err := PlanLoads(rows, cfg)
			if err != nil {
				t.Fatalf("PlanLoads: %v", err)
			}

			if len(p.Trucks) != len(tc.Expect.Trucks) {
				t.Fatalf("got %d trucks, want %d", len(p.Trucks), len(tc.Expect.Trucks))
			}
			for i, want := range tc.Expect.Trucks {
				got := p.Trucks[i]
				if got.TruckNumber != want.TruckNumber {
					t.Errorf("truck %d: number %d, want %d", i, got.TruckNumber, want.TruckNumber)
				}
				if got.CustomerName != want.CustomerName || got.CustomerState != want.CustomerState {
					t.Errorf("truck %d: destination %s/%s, want %s/%s", want.TruckNumber,
						got.CustomerName, got.CustomerState, want.CustomerName, want.CustomerState)
				}
				testutil.AssertFloat64Equal(t,
					fmt.Sprintf("truck %d weight", want.TruckNumber), want.TotalWeight, got.TotalWeight, 1e-9)
				if got.TotalPieces != want.TotalPieces || got.TotalLines != want.TotalLines {
					t.Errorf("truck %d: %d pcs %d lines, want %d pcs %d lines", want.TruckNumber,
						got.TotalPieces, got.TotalLines, want.TotalPieces, want.TotalLines)
				}
				if got.Bucket.String() != want.Bucket {
					t.Errorf("truck %d: bucket %s, want %s", want.TruckNumber, got.Bucket, want.Bucket)
				}
				if got.ContainsLate != want.ContainsLate {
					t.Errorf("truck %d: containsLate %v, want %v", want.TruckNumber,
						got.ContainsLate, want.ContainsLate)
				}
				if len(got.Assignments) != len(want.Lines) {
					t.Fatalf("truck %d: %d assignments, want %d", want.TruckNumber,
						len(got.Assignments), len(want.Lines))
				}
				for j, label := range want.Lines {
					if got.Assignments[j].Line != label {
						t.Errorf("truck %d assignment %d: line %q, want %q", want.TruckNumber, j,
							got.Assignments[j].Line, label)
					}
				}
			}

			for name, nums := range tc.Expect.Sections {
				got, ok := p.Sections[name]
				if !ok {
					t.Errorf("section %s missing", name)
					continue
				}
				if len(got) != len(nums) {
					t.Errorf("section %s: %v, want %v", name, got, nums)
					continue
				}
				for j := range nums {
					if got[j] != nums[j] {
						t.Errorf("section %s: %v, want %v", name, got, nums)
						break
					}
				}
			}
		})
	}
}
