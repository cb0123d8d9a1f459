package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/config"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/replay"
)

// #region main

func main() {
	configPath := flag.String("config", "", "path to YAML config (history mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	last := flag.Int("last", 0, "replay only the N most recent observations (history mode)")
	verbose := flag.Bool("v", false, "print every turn, not just drifting ones")
	flag.Parse()

	if *configPath != "" && *fixturePath != "" {
		fmt.Fprintln(os.Stderr, "usage: replay [--config path/to/config.yaml] [--last N]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, *verbose)
	} else {
		exitCode = runHistoryMode(*configPath, *last, *verbose)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region modes

// runHistoryMode replays the persisted history under the current rules and
// engine config. Drift is informational, so the exit code is 0 unless the
// history cannot be read.
func runHistoryMode(configPath string, last int, verbose bool) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	store, err := history.Open(cfg.Store, logging.Discard())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open history: %v\n", err)
		return 1
	}
	defer store.Close()

	all := store.Load()
	entries := history.Window(all, last)
	rc := replay.ReplayConfig{
		Engine: engine.FromConfig(cfg.Engine),
		// Older entries seed the model so a tail replay sees the same history length.
		Seed: all[:len(all)-len(entries)],
	}

	fmt.Printf("Replaying %d of %d observations (%s backend)\n\n", len(entries), len(all), cfg.Store.Backend)
	printResults(replay.Replay(entries, rc), verbose)
	return 0
}

// runFixtureMode replays a fixture and fails if any turn drifts.
func runFixtureMode(path string, verbose bool) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if f.Description != "" {
		fmt.Printf("Fixture: %s\n\n", f.Description)
	}

	summary := printResults(replay.Replay(f.Entries(), f.ReplayConfig()), verbose)
	if summary.Drifts > 0 {
		return 1
	}
	return 0
}

// #endregion modes

// #region output

func printResults(results []replay.ReplayResult, verbose bool) replay.ReplaySummary {
	fmt.Printf("%-6s| %-11s| %-40s| %s\n", "Turn", "Classifier", "Recorded", "Drift")
	fmt.Printf("%-6s+%-12s+%-41s+%s\n", "------", "------------", "-----------------------------------------", "----------")
	for _, r := range results {
		if r.Action == "match" && !verbose {
			continue
		}
		drift := "-"
		if len(r.Drift) > 0 {
			drift = strings.Join(r.Drift, ", ")
		}
		fmt.Printf("%-6d| %-11s| %-40s| %s\n", r.Turn, r.Status, truncate(r.Recorded.String(), 40), drift)
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d match, %d drift, %d with classifier active\n",
		s.TotalTurns, s.Matches, s.Drifts, s.ActiveTurns)

	if len(s.DriftByLabel) > 0 {
		labels := make([]string, 0, len(s.DriftByLabel))
		for l := range s.DriftByLabel {
			labels = append(labels, l)
		}
		sort.Slice(labels, func(i, j int) bool { return labelIndex(labels[i]) < labelIndex(labels[j]) })
		for _, l := range labels {
			fmt.Printf("  %-14s %d\n", l, s.DriftByLabel[l])
		}
	}
	return s
}

func labelIndex(name string) int {
	for i, n := range home.LabelNames {
		if n == name {
			return i
		}
	}
	return len(home.LabelNames)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// #endregion output
