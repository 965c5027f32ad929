package cmd

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	routeInput   string   // CSV table path
	routeOutput  string   // route plan JSON destination, empty for stdout
	routeConfig  string   // optional YAML config file
	routeCacheDB string   // SQLite cache path override
	routeWhse    []string // planning warehouse allow-list override
	routeToday   string   // planning date pin (YYYY-MM-DD)
)

// routeCmd plans multi-stop delivery routes for the ready order lines.
var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Plan multi-stop delivery routes from the yard",
	Run: func(cmd *cobra.Command, args []string) {
		fileCfg, err := loadFileConfig(routeConfig)
		if err != nil {
			logrus.Fatalf("Config load failed: %v", err)
		}
		if cmd.Flags().Changed("cache-db") {
			fileCfg.CacheDB = routeCacheDB
		}
		cfg := fileCfg.Planner
		if cmd.Flags().Changed("planning-whse") {
			cfg.PlanningWhse = routeWhse
		}
		if routeToday != "" {
			day, err := time.Parse("2006-01-02", routeToday)
			if err != nil {
				logrus.Fatalf("Invalid --today %q, expected YYYY-MM-DD", routeToday)
			}
			cfg.Today = day
		}

		router, closer, err := buildRouter(fileCfg)
		if err != nil {
			logrus.Fatalf("Router setup failed: %v", err)
		}
		defer closer()

		rows, err := LoadTable(routeInput)
		if err != nil {
			logrus.Fatalf("Input table load failed: %v", err)
		}

		p, err := router.PlanRoutes(context.Background(), rows, cfg, fileCfg.Routing)
		if err != nil {
			logrus.Fatalf("Route planning failed: %v", err)
		}
		logrus.Infof("Routed %d stops onto %d trucks", p.Totals.Stops, p.Totals.Trucks)

		if err := writeJSON(p, routeOutput); err != nil {
			logrus.Fatalf("Writing routes failed: %v", err)
		}
	},
}

func init() {
	routeCmd.Flags().StringVar(&routeInput, "input", "", "Path to the order-line CSV table")
	routeCmd.Flags().StringVar(&routeOutput, "output", "", "Path for the route plan JSON (default stdout)")
	routeCmd.Flags().StringVar(&routeConfig, "config", "", "Path to YAML config file")
	routeCmd.Flags().StringVar(&routeCacheDB, "cache-db", "", "SQLite geocode/distance cache path")
	routeCmd.Flags().StringSliceVar(&routeWhse, "planning-whse", nil, "Planning warehouse allow-list (empty disables filtering)")
	routeCmd.Flags().StringVar(&routeToday, "today", "", "Planning date as YYYY-MM-DD (default current UTC date)")
	_ = routeCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(routeCmd)
}
