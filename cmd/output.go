package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/truckplan/truckplan/plan"
)

// writeJSON marshals v with indentation to the given path, or to stdout
// when the path is empty so results can be piped.
func writeJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// loadListHeader is the column order of the dispatch load-list CSV.
var loadListHeader = []string{
	"ShipDate", "Carrier", "TruckNumber", "SO", "Line",
	"Customer", "City", "State", "Pieces", "Weight", "Width",
	"Grade", "Size", "EarliestDue", "LatestDue",
}

// writeLoadListCSV renders load-list rows as plain CSV, one row per
// assignment.
func writeLoadListCSV(w io.Writer, rows []plan.LoadListRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(loadListHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.ShipDate,
			r.Carrier,
			strconv.Itoa(r.TruckNumber),
			r.SO,
			r.Line,
			r.Customer,
			r.City,
			r.State,
			strconv.Itoa(r.Pieces),
			strconv.FormatFloat(r.Weight, 'f', -1, 64),
			strconv.FormatFloat(r.Width, 'f', -1, 64),
			r.Grade,
			r.Size,
			r.EarliestDue,
			r.LatestDue,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
