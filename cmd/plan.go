package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/truckplan/truckplan/plan"
)

var (
	planInput    string   // CSV table path
	planOutput   string   // plan JSON destination, empty for stdout
	planConfig   string   // optional YAML config file
	planWhse     []string // planning warehouse allow-list override
	planToday    string   // planning date pin (YYYY-MM-DD) for reproducible runs
	planLoadList string   // optional dispatch load-list CSV destination
)

// planCmd runs the daily load-planning pipeline over a CSV table.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Pack ready order lines onto trucks for the planning date",
	Run: func(cmd *cobra.Command, args []string) {
		fileCfg, err := loadFileConfig(planConfig)
		if err != nil {
			logrus.Fatalf("Config load failed: %v", err)
		}
		cfg := fileCfg.Planner
		if cmd.Flags().Changed("planning-whse") {
			cfg.PlanningWhse = planWhse
		}
		if planToday != "" {
			day, err := time.Parse("2006-01-02", planToday)
			if err != nil {
				logrus.Fatalf("Invalid --today %q, expected YYYY-MM-DD", planToday)
			}
			cfg.Today = day
		}

		rows, err := LoadTable(planInput)
		if err != nil {
			logrus.Fatalf("Input table load failed: %v", err)
		}

		p, err := plan.PlanLoads(rows, cfg)
		if err != nil {
			logrus.Fatalf("Load planning failed: %v", err)
		}
		logrus.Infof("Planned %d trucks from %d input rows", len(p.Trucks), p.Stats.InputRows)

		if err := writeJSON(p, planOutput); err != nil {
			logrus.Fatalf("Writing plan failed: %v", err)
		}
		if planLoadList != "" {
			f, err := os.Create(planLoadList)
			if err != nil {
				logrus.Fatalf("Creating load list failed: %v", err)
			}
			shipDate := cfg.Normalize().Today
			err = writeLoadListCSV(f, plan.BuildLoadList(p, shipDate))
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				logrus.Fatalf("Writing load list failed: %v", err)
			}
		}
	},
}

func init() {
	planCmd.Flags().StringVar(&planInput, "input", "", "Path to the order-line CSV table")
	planCmd.Flags().StringVar(&planOutput, "output", "", "Path for the plan JSON (default stdout)")
	planCmd.Flags().StringVar(&planConfig, "config", "", "Path to YAML config file")
	planCmd.Flags().StringSliceVar(&planWhse, "planning-whse", nil, "Planning warehouse allow-list (empty disables filtering)")
	planCmd.Flags().StringVar(&planToday, "today", "", "Planning date as YYYY-MM-DD (default current UTC date)")
	planCmd.Flags().StringVar(&planLoadList, "load-list", "", "Also write the dispatch load list CSV to this path")
	_ = planCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(planCmd)
}
