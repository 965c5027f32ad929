// Canonicalizes raw input rows into OrderLines: tolerant numeric coercion,
// due-date parsing, per-piece weight, bucket and overwidth derivation.

package plan

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Canonical column names after upstream header mapping.
const (
	ColSO             = "SO"
	ColLine           = "Line"
	ColCustomer       = "Customer"
	ColShippingStreet = "ShippingStreet"
	ColShippingCity   = "ShippingCity"
	ColShippingState  = "ShippingState"
	ColShippingZip    = "ShippingZip"
	ColReadyPieces    = "ReadyPieces"
	ColReadyWeight    = "ReadyWeight"
	ColWidth          = "Width"
	ColEarliestDue    = "EarliestDue"
	ColLatestDue      = "LatestDue"
	ColGrade          = "Grade"
	ColSize           = "Size"
	ColZone           = "Zone"
	ColRoute          = "Route"
	ColPlanningWhse   = "PlanningWhse"
	ColCredit         = "Credit"
	ColShipHold       = "ShipHold"
	ColYesNo          = "yes_no"
	ColBalancePieces  = "BalancePieces"
	ColBalanceWeight  = "BalanceWeight"
)

// RequiredColumns must be present in the input table header. Missing ones
// are an InvalidInput error at the request boundary, not a row-level drop.
var RequiredColumns = []string{
	ColSO, ColLine, ColCustomer, ColShippingCity, ColShippingState,
	ColReadyPieces, ColReadyWeight, ColWidth,
}

// dateLayouts are tried in order when parsing due-date cells.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"1/2/2006",
	"01/02/2006",
}

// mexicanStates are the state abbreviations that flip the inferred country
// to Mexico. Everything else is treated as USA.
var mexicanStates = map[string]bool{
	"AGS": true, "BC": true, "BCS": true, "CAMP": true, "CHIS": true,
	"CHIH": true, "COAH": true, "COL": true, "CDMX": true, "DGO": true,
	"GTO": true, "GRO": true, "HGO": true, "JAL": true, "MEX": true,
	"MICH": true, "MOR": true, "NAY": true, "NL": true, "OAX": true,
	"PUE": true, "QRO": true, "QROO": true, "SLP": true, "SIN": true,
	"SON": true, "TAB": true, "TAMPS": true, "TLAX": true, "VER": true,
	"YUC": true, "ZAC": true,
}

// CountryForState infers the destination country from a state code.
func CountryForState(state string) string {
	if mexicanStates[strings.ToUpper(strings.TrimSpace(state))] {
		return "Mexico"
	}
	return "USA"
}

// NormalizeRow canonicalizes one raw row. It returns an error only when the
// row is structurally unusable (missing identity or destination); quantity
// coercion failures produce an ineligible line that the not-ready filter
// stage drops and counts.
func NormalizeRow(row Row, today time.Time) (*OrderLine, error) {
	so := strings.TrimSpace(row[ColSO])
	lineNo := strings.TrimSpace(row[ColLine])
	customer := strings.TrimSpace(row[ColCustomer])
	city := strings.TrimSpace(row[ColShippingCity])
	state := strings.TrimSpace(row[ColShippingState])
	if so == "" || lineNo == "" {
		return nil, fmt.Errorf("row missing order identity (SO=%q, Line=%q)", so, lineNo)
	}
	if customer == "" || city == "" || state == "" {
		return nil, fmt.Errorf("row %s-%s missing destination (customer=%q, city=%q, state=%q)",
			so, lineNo, customer, city, state)
	}

	line := &OrderLine{
		SO:       so,
		Line:     lineNo,
		Customer: customer,
		Street:   strings.TrimSpace(row[ColShippingStreet]),
		City:     city,
		State:    state,
		Zip:      strings.TrimSpace(row[ColShippingZip]),
		Country:  CountryForState(state),
		Zone:     strings.TrimSpace(row[ColZone]),
		Route:    strings.TrimSpace(row[ColRoute]),
		Grade:    strings.TrimSpace(row[ColGrade]),
		Size:     strings.TrimSpace(row[ColSize]),
	}

	if pieces := parseFloatCell(row[ColReadyPieces]); pieces != nil && *pieces > 0 {
		line.ReadyPieces = int(*pieces)
	}
	if weight := parseFloatCell(row[ColReadyWeight]); weight != nil && *weight > 0 {
		line.ReadyWeight = *weight
	}
	if width := parseFloatCell(row[ColWidth]); width != nil {
		line.Width = *width
	}
	if line.ReadyPieces > 0 && line.ReadyWeight > 0 {
		line.WeightPerPiece = line.ReadyWeight / float64(line.ReadyPieces)
	}

	line.EarliestDue = parseDateCell(row[ColEarliestDue])
	line.LatestDue = parseDateCell(row[ColLatestDue])

	line.IsLate = line.LatestDue != nil && line.LatestDue.Before(today)
	line.IsOverwidth = line.Width > OverwidthInches
	line.Bucket = BucketFor(line.LatestDue, today)

	return line, nil
}

// Eligible reports whether the line survived quantity coercion and has
// positive pieces, weight, and per-piece weight.
func (l *OrderLine) Eligible() bool {
	return l.ReadyPieces > 0 && l.ReadyWeight > 0 && l.WeightPerPiece > 0
}

// parseFloatCell is the tolerant numeric coercion: empty or non-numeric
// cells become nil, never an error. Thousands separators are accepted.
func parseFloatCell(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseDateCell parses a due-date cell, trying each accepted layout.
// Unparseable or empty cells become nil. Results are UTC midnights.
func parseDateCell(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			m := Midnight(t)
			return &m
		}
	}
	return nil
}
