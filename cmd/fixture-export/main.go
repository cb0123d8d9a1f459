package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/config"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/replay"
)

// #region main

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	last := flag.Int("last", 20, "number of most recent observations to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	description := flag.String("description", "", "fixture description")
	activation := flag.Int("activation-threshold", 0, "override the pinned activation threshold (0 = from config)")
	flag.Parse()

	if *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --out path/to/fixture.json [--config path] [--last N] [--description text]")
		os.Exit(2)
	}

	if err := run(*configPath, *last, *outPath, *description, *activation); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(configPath string, last int, outPath, description string, activation int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	store, err := history.Open(cfg.Store, logging.Discard())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	all := store.Load()
	if len(all) == 0 {
		return fmt.Errorf("no observations to export")
	}

	engCfg := engine.New(store, engine.FromConfig(cfg.Engine), logging.Discard()).Config()
	if activation > 0 {
		engCfg.ActivationThreshold = activation
	}

	f := replay.ExportFixture(description, all, last, engCfg)
	if f.Description == "" {
		f.Description = fmt.Sprintf("last %d observations from %s backend", len(f.Turns), cfg.Store.Backend)
	}

	if err := replay.SaveFixture(outPath, f); err != nil {
		return err
	}
	fmt.Printf("Exported %d turns (%d seed entries) to %s\n", len(f.Turns), len(f.Seed), outPath)
	return nil
}

// #endregion export
