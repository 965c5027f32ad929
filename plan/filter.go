// The ordered business-rule pipeline between raw rows and packable lines:
// balance substitution, credit and ship holds, the not-ready gate, and the
// optional planning-warehouse allow-list.

package plan

import (
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// FilterStats counts what each pipeline stage did to the input.
type FilterStats struct {
	InputRows            int `json:"inputRows"`
	BalanceSubstitutions int `json:"balanceSubstitutions"`
	CreditHoldDrops      int `json:"creditHoldDrops"`
	ShipHoldDrops        int `json:"shipHoldDrops"`
	NotReadyDrops        int `json:"notReadyDrops"` // pieces ≤ 0 or numeric coercion failed
	WarehouseDrops       int `json:"warehouseDrops"`
	InvalidRows          int `json:"invalidRows"`
	RowsKept             int `json:"rowsKept"`
}

const holdFlag = "H"

// PrepareRows runs the filter pipeline over the raw table and normalizes the
// survivors. Stage order is fixed: balance substitution, credit hold, ship
// hold, not-ready gate, warehouse allow-list. Unparseable rows are counted
// and reported through diags; they never abort the job.
func PrepareRows(rows []Row, cfg Config, diags *Diagnostics) ([]*OrderLine, FilterStats) {
	stats := FilterStats{InputRows: len(rows)}
	whse := lo.Map(cfg.PlanningWhse, func(w string, _ int) string {
		return strings.ToUpper(strings.TrimSpace(w))
	})

	lines := make([]*OrderLine, 0, len(rows))
	for i, row := range rows {
		row = substituteBalance(row, &stats)

		if strings.TrimSpace(row[ColCredit]) == holdFlag {
			stats.CreditHoldDrops++
			continue
		}
		if strings.TrimSpace(row[ColShipHold]) == holdFlag {
			stats.ShipHoldDrops++
			continue
		}

		line, err := NormalizeRow(row, cfg.Today)
		if err != nil {
			stats.InvalidRows++
			diags.AddInvalidRow(i, err)
			continue
		}
		if !line.Eligible() {
			stats.NotReadyDrops++
			continue
		}

		if len(whse) > 0 {
			if w, ok := row[ColPlanningWhse]; ok {
				if !lo.Contains(whse, strings.ToUpper(strings.TrimSpace(w))) {
					stats.WarehouseDrops++
					continue
				}
			}
			// Column absent: the warehouse filter is a no-op for this row.
		}

		lines = append(lines, line)
	}

	stats.RowsKept = len(lines)
	logrus.Debugf("filter: %d rows in, %d kept (%d credit, %d ship hold, %d not ready, %d warehouse, %d invalid)",
		stats.InputRows, stats.RowsKept, stats.CreditHoldDrops, stats.ShipHoldDrops,
		stats.NotReadyDrops, stats.WarehouseDrops, stats.InvalidRows)
	return lines, stats
}

// substituteBalance applies the balance-quantity override: when the yes_no
// flag reads "yes", the balance columns replace the ready columns before any
// coercion happens. The input row is not modified.
func substituteBalance(row Row, stats *FilterStats) Row {
	if !strings.EqualFold(strings.TrimSpace(row[ColYesNo]), "yes") {
		return row
	}
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	out[ColReadyPieces] = row[ColBalancePieces]
	out[ColReadyWeight] = row[ColBalanceWeight]
	stats.BalanceSubstitutions++
	return out
}
