// Package replay re-runs recorded readings through the current pipeline and
// reports where its output drifts from what was recorded.
package replay

import (
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/logging"
)

// #region types
// ReplayConfig configures the fresh engine each replay runs on.
type ReplayConfig struct {
	Engine engine.Config
	// Seed entries are loaded into the replay store before the first turn
	// and are not themselves replayed.
	Seed []home.HistoryEntry
}

// DefaultReplayConfig replays with the stock engine on an empty history.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{Engine: engine.DefaultConfig()}
}

// ReplayResult captures one replayed turn.
type ReplayResult struct {
	Turn     int
	Reading  home.Reading
	Recorded home.Decisions
	Replayed home.Decisions
	Action   string   // "match" | "drift"
	Drift    []string // labels that differ, in label order
	Status   engine.ClassifierStatus
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTurns   int
	Matches      int
	Drifts       int
	ActiveTurns  int            // turns where the classifier was fused in
	DriftByLabel map[string]int // label -> turns it drifted on
}

// #endregion types

// #region replay
// Replay feeds each recorded input, in order, to a new in-memory engine and
// compares the result with the recorded output. The engine learns from its
// own replayed outputs exactly as it would live.
func Replay(entries []home.HistoryEntry, config ReplayConfig) []ReplayResult {
	store := history.NewMemoryStore(config.Seed...)
	eng := engine.New(store, config.Engine, logging.Discard())

	results := make([]ReplayResult, 0, len(entries))
	for i, e := range entries {
		got, trace := eng.DecideTrace(e.Input)

		res := ReplayResult{
			Turn:     i,
			Reading:  e.Input,
			Recorded: e.Output,
			Replayed: got,
			Action:   "match",
			Status:   trace.Status,
		}
		if drift := e.Output.Diff(got); len(drift) > 0 {
			res.Action = "drift"
			res.Drift = drift
		}
		results = append(results, res)
	}
	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{
		TotalTurns:   len(results),
		DriftByLabel: make(map[string]int),
	}
	for _, r := range results {
		switch r.Action {
		case "match":
			s.Matches++
		case "drift":
			s.Drifts++
		}
		if r.Status == engine.StatusActive {
			s.ActiveTurns++
		}
		for _, label := range r.Drift {
			s.DriftByLabel[label]++
		}
	}
	return s
}

// #endregion replay
