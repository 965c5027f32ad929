package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/truckplan/truckplan/plan"
)

// canonicalColumns maps case-folded header cells to canonical column names.
// Header matching is case-insensitive and whitespace-trimmed; columns the
// planner does not know are ignored.
var canonicalColumns = func() map[string]string {
	names := []string{
		plan.ColSO, plan.ColLine, plan.ColCustomer,
		plan.ColShippingStreet, plan.ColShippingCity, plan.ColShippingState, plan.ColShippingZip,
		plan.ColReadyPieces, plan.ColReadyWeight, plan.ColWidth,
		plan.ColEarliestDue, plan.ColLatestDue,
		plan.ColGrade, plan.ColSize, plan.ColZone, plan.ColRoute,
		plan.ColPlanningWhse, plan.ColCredit, plan.ColShipHold,
		plan.ColYesNo, plan.ColBalancePieces, plan.ColBalanceWeight,
	}
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = n
	}
	return m
}()

// LoadTable reads the canonical input table from a CSV file.
func LoadTable(path string) ([]plan.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input table: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadTable(f)
}

// ReadTable parses a CSV table. The header row maps columns to canonical
// names; every cell passes through to the normalizer untyped.
func ReadTable(r io.Reader) ([]plan.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return []plan.Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading CSV header: %v", plan.ErrInvalidInput, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	// Column index -> canonical name. Unmapped indices stay out of the rows.
	cols := make(map[int]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name, ok := canonicalColumns[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		cols[i] = name
		seen[name] = true
	}
	for _, col := range plan.RequiredColumns {
		if !seen[col] {
			return nil, fmt.Errorf("%w: required column %q missing from CSV header", plan.ErrInvalidInput, col)
		}
	}

	rows := make([]plan.Row, 0, 256)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading CSV row %d: %v", plan.ErrInvalidInput, len(rows)+1, err)
		}
		row := make(plan.Row, len(cols))
		for i, name := range cols {
			// Short records still carry every mapped column.
			cell := ""
			if i < len(record) {
				cell = record[i]
			}
			row[name] = cell
		}
		rows = append(rows, row)
	}
	return rows, nil
}
