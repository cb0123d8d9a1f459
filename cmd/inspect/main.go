package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/config"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/eval"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/explain"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/logging"
)

// #region main

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	backend := flag.String("backend", "", "history backend: file | sqlite | badger (overrides config)")
	historyPath := flag.String("history", "", "path to sensor_history.json (overrides config)")
	dbPath := flag.String("db", "", "path to home_controller.db (overrides config)")
	badgerDir := flag.String("badger", "", "path to the badger history directory (overrides config)")
	last := flag.Int("last", 20, "show N most recent observations")
	decisions := flag.Int("decisions", 0, "show N most recent decision_log rows (sqlite only)")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if *historyPath != "" {
		cfg.Store.HistoryPath = *historyPath
	}
	if *dbPath != "" {
		cfg.Store.DBPath = *dbPath
		if *backend == "" {
			cfg.Store.Backend = config.BackendSQLite
		}
	}

	if *badgerDir != "" {
		cfg.Store.BadgerDir = *badgerDir
		if *backend == "" {
			cfg.Store.Backend = config.BackendBadger
		}
	}

	if err := run(cfg, *last, *decisions, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region run

type report struct {
	Total        int                       `json:"total"`
	Recent       []home.HistoryEntry       `json:"recent"`
	Eval         eval.EvalResult           `json:"eval"`
	Rules        []string                  `json:"rules"`
	Leaves       []explain.LeafRule        `json:"leaves"`
	Decisions    []logging.ProvenanceEntry `json:"decisions,omitempty"`
	ActiveCounts map[string]int            `json:"active_counts"`
}

func run(cfg config.Config, last, decisions int, jsonOut bool) error {
	logger := logging.Discard()
	store, err := history.Open(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// Engine over the store is read-only here: Retrain never appends.
	eng := engine.New(store, engine.FromConfig(cfg.Engine), logger)
	all := eng.History()

	rep := report{
		Total:        len(all),
		Recent:       history.Window(all, last),
		Eval:         eng.Retrain(),
		Rules:        eng.LearnedRules(),
		Leaves:       eng.LeafRules(),
		ActiveCounts: activeCounts(all),
	}

	if decisions > 0 {
		sqlStore, ok := store.(*history.SQLStore)
		if !ok {
			return fmt.Errorf("--decisions requires the sqlite backend")
		}
		if err := logging.EnsureSchema(sqlStore.DB()); err != nil {
			return err
		}
		rep.Decisions, err = logging.RecentDecisions(sqlStore.DB(), decisions)
		if err != nil {
			return err
		}
	}

	if jsonOut {
		return printJSON(rep)
	}
	printReport(rep)
	return nil
}

func activeCounts(entries []home.HistoryEntry) map[string]int {
	counts := make(map[string]int, home.NumLabels)
	for _, name := range home.LabelNames {
		counts[name] = 0
	}
	for _, e := range entries {
		for _, name := range e.Output.Active() {
			counts[name]++
		}
	}
	return counts
}

// #endregion run

// #region output

func printReport(rep report) {
	fmt.Printf("History: %d observations\n\n", rep.Total)
	if len(rep.Recent) == 0 {
		fmt.Println("no observations found")
		return
	}

	fmt.Printf("%6s  %6s  %-6s  %6s  %-8s  %s\n", "Temp", "Hum", "Door", "Air", "Presence", "Decisions")
	fmt.Printf("%6s+-%6s+-%-6s+-%6s+-%-8s+-%s\n", "------", "------", "------", "------", "--------", "--------------------")
	for _, e := range rep.Recent {
		fmt.Printf("%6.1f  %6.1f  %-6v  %6.1f  %-8v  %s\n",
			e.Input.Temperature, e.Input.Humidity, e.Input.DoorOpen, e.Input.AirQuality, e.Input.Presence, e.Output)
	}

	fmt.Println("\nLabel activity:")
	for _, name := range home.LabelNames {
		fmt.Printf("  %-14s %d/%d\n", name, rep.ActiveCounts[name], rep.Total)
	}

	fmt.Printf("\nTraining agreement: passed=%v (%s)\n", rep.Eval.Passed, rep.Eval.Reason)
	for _, m := range rep.Eval.Metrics {
		fmt.Printf("  %-28s %.3f\n", m.Name, m.Value)
	}

	fmt.Println("\nLearned rules:")
	if len(rep.Rules) == 0 {
		fmt.Println("  (none)")
	}
	for _, r := range rep.Rules {
		fmt.Println("  " + r)
	}

	fmt.Println("\nLeaves:")
	for _, l := range rep.Leaves {
		fmt.Printf("  %s -> %v (confidence %.2f, %d samples)\n", l.Condition, l.Actions, l.Confidence, l.Samples)
	}

	if len(rep.Decisions) > 0 {
		fmt.Println("\nRecent decisions:")
		for _, d := range rep.Decisions {
			reason := d.FallbackReason
			if reason == "" {
				reason = "-"
			}
			fmt.Printf("  %s  %-11s  %-15s  %s\n", d.CreatedAt.Format("2006-01-02T15:04:05Z"), d.ClassifierStatus, reason, d.FinalJSON)
		}
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion output
