/*
main.go - Batch recalculation of past periods

PURPOSE:
  Recomputes and persists rankings and achievements for a range of months,
  oldest first so each month compares against its freshly stored
  predecessor. Used after a backfill from the retail system or after a
  compensation configuration change.

COMMAND-LINE FLAGS:
  -db      SQLite database path (DB_PATH)
  -config  Compensation JSON (CONFIG_PATH, default: built-in presets)
  -from    First month, YYYY-MM (default: month of the first sale)
  -to      Last month, YYYY-MM (default: month of the last sale)

EXAMPLE:
  ./recalc -db=./data/sales.db -from=2024-01 -to=2024-06

OUTPUT:
  One line per month: period ; ranked employees ; new achievements ; leader
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/schollz/progressbar/v3"
	"github.com/warp/sales-engine/config"
	"github.com/warp/sales-engine/dashboard"
	"github.com/warp/sales-engine/engine"
	"github.com/warp/sales-engine/factory"
	"github.com/warp/sales-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	configPath := flag.String("config", cfg.ConfigPath, "Compensation configuration JSON")
	fromFlag := flag.String("from", "", "First month (YYYY-MM)")
	toFlag := flag.String("to", "", "Last month (YYYY-MM)")
	flag.Parse()

	var engineCfg engine.Config
	var err error
	if *configPath == "" {
		engineCfg, err = dashboard.DefaultConfig()
	} else {
		engineCfg, err = factory.LoadConfigFile(*configPath)
	}
	if err != nil {
		log.Fatalf("[Recalc] config: %v", err)
	}
	eng, err := engine.NewEngine(engineCfg)
	if err != nil {
		log.Fatalf("[Recalc] invalid config: %v", err)
	}

	loc := cfg.Location()
	store, err := sqlite.New(*dbPath, sqlite.WithLocation(loc))
	if err != nil {
		log.Fatalf("[Recalc] open db: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	from, to, err := resolveRange(ctx, store, *fromFlag, *toFlag)
	if err != nil {
		log.Fatalf("[Recalc] %v", err)
	}

	svc := dashboard.NewService(eng, store, dashboard.WithLocation(loc))
	periods := engine.PeriodsBetween(from, to)
	log.Printf("[Recalc] %d months from %s to %s", len(periods), from, to)

	bar := progressbar.Default(int64(len(periods)))
	results := make([]*dashboard.RecalcResult, 0, len(periods))
	for _, p := range periods {
		// Closed months are evaluated as of their last day
		result, err := svc.RecalculatePeriod(ctx, p, p.End())
		if err != nil {
			log.Fatalf("[Recalc] %s: %v", p, err)
		}
		results = append(results, result)
		_ = bar.Add(1)
	}

	for _, r := range results {
		leader := "-"
		if len(r.Leaderboard.Rows) > 0 {
			top := r.Leaderboard.Rows[0]
			leader = fmt.Sprintf("%s (%s)", top.Employee.Name, top.Entry.NetSales.StringFixed(2))
		}
		fmt.Printf("%s ; ranked=%d ; new_achievements=%d ; leader=%s\n",
			r.Leaderboard.Period, r.RankedEmployees, len(r.NewAchievements), leader)
	}
}

func resolveRange(ctx context.Context, store *sqlite.Store, fromFlag, toFlag string) (engine.Period, engine.Period, error) {
	var from, to engine.Period
	var err error
	if fromFlag != "" {
		if from, err = engine.ParsePeriod(fromFlag); err != nil {
			return from, to, fmt.Errorf("-from: %w", err)
		}
	}
	if toFlag != "" {
		if to, err = engine.ParsePeriod(toFlag); err != nil {
			return from, to, fmt.Errorf("-to: %w", err)
		}
	}

	if from.IsZero() || to.IsZero() {
		first, last, ok, err := store.ActivityRange(ctx)
		if err != nil {
			return from, to, fmt.Errorf("activity range: %w", err)
		}
		if !ok {
			return from, to, fmt.Errorf("no sales on record; pass -from and -to")
		}
		if from.IsZero() {
			from = first.Period()
		}
		if to.IsZero() {
			to = last.Period()
		}
	}

	if to.Before(from) {
		return from, to, fmt.Errorf("-to %s is before -from %s", to, from)
	}
	return from, to, nil
}
