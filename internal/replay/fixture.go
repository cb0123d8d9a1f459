package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture. Seed is the
// history recorded before the first turn; it is loaded into the replay store
// and not itself replayed.
type Fixture struct {
	Description string              `json:"description"`
	Config      FixtureConfig       `json:"config"`
	Seed        []home.HistoryEntry `json:"seed,omitempty"`
	Turns       []FixtureTurn       `json:"turns"`
}

// FixtureConfig holds the engine knobs a fixture pins. Zero values use defaults.
type FixtureConfig struct {
	ActivationThreshold int `json:"activation_threshold,omitempty"`
	TrainWindow         int `json:"train_window,omitempty"`
	MaxDepth            int `json:"max_depth,omitempty"`
	MinSamplesSplit     int `json:"min_samples_split,omitempty"`
}

// FixtureTurn is one recorded reading and the decisions expected for it.
type FixtureTurn struct {
	Input    home.Reading   `json:"input"`
	Expected home.Decisions `json:"expected"`
}

// #endregion fixture-types

// #region load-save

// LoadFixture reads and decodes a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if len(f.Turns) == 0 {
		return nil, fmt.Errorf("fixture %s has no turns", path)
	}
	return &f, nil
}

// SaveFixture writes f as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// FixtureFromHistory turns recorded history into a fixture expecting the
// recorded outputs.
func FixtureFromHistory(description string, entries []home.HistoryEntry) *Fixture {
	f := &Fixture{Description: description, Turns: make([]FixtureTurn, len(entries))}
	for i, e := range entries {
		f.Turns[i] = FixtureTurn{Input: e.Input, Expected: e.Output}
	}
	return f
}

// ExportFixture turns the newest last entries of all into turns and keeps
// the history before them as the seed, with every engine knob pinned from
// cfg, so replaying the fixture reproduces the recorded decisions. With a
// bounded TrainWindow only the part of the seed the engine can still see is
// kept.
func ExportFixture(description string, all []home.HistoryEntry, last int, cfg engine.Config) *Fixture {
	tail := history.Window(all, last)
	f := FixtureFromHistory(description, tail)
	f.Config = PinConfig(cfg)

	seed := all[:len(all)-len(tail)]
	if cfg.TrainWindow > 0 {
		seed = history.Window(seed, max(cfg.TrainWindow, cfg.ActivationThreshold))
	}
	f.Seed = append([]home.HistoryEntry(nil), seed...)
	return f
}

// PinConfig captures the engine knobs a fixture needs to replay exactly.
func PinConfig(cfg engine.Config) FixtureConfig {
	return FixtureConfig{
		ActivationThreshold: cfg.ActivationThreshold,
		TrainWindow:         cfg.TrainWindow,
		MaxDepth:            cfg.Classifier.MaxDepth,
		MinSamplesSplit:     cfg.Classifier.MinSamplesSplit,
	}
}

// #endregion load-save

// #region conversion

// Entries returns the fixture turns as history entries.
func (f *Fixture) Entries() []home.HistoryEntry {
	out := make([]home.HistoryEntry, len(f.Turns))
	for i, t := range f.Turns {
		out[i] = home.HistoryEntry{Input: t.Input, Output: t.Expected}
	}
	return out
}

// ReplayConfig overlays the fixture's pinned knobs on the default engine
// config and carries its seed history.
func (f *Fixture) ReplayConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	applyFixtureConfig(&cfg.Engine, f.Config)
	cfg.Seed = f.Seed
	return cfg
}

func applyFixtureConfig(c *engine.Config, fc FixtureConfig) {
	if fc.ActivationThreshold > 0 {
		c.ActivationThreshold = fc.ActivationThreshold
	}
	if fc.TrainWindow > 0 {
		c.TrainWindow = fc.TrainWindow
	}
	if fc.MaxDepth > 0 {
		c.Classifier.MaxDepth = fc.MaxDepth
	}
	if fc.MinSamplesSplit > 0 {
		c.Classifier.MinSamplesSplit = fc.MinSamplesSplit
	}
}

// #endregion conversion
