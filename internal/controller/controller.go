// Package controller owns the decision engine and serializes access to it
// while a background loop periodically retrains the classifier.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/classifier"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/engine"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/eval"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/explain"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// #region config
// Config drives the retraining loop.
type Config struct {
	RetrainInterval time.Duration
}

// DefaultConfig retrains every five minutes.
func DefaultConfig() Config {
	return Config{RetrainInterval: 300 * time.Second}
}

// #endregion config

// #region controller
// Controller is the single owner of an Engine. Every engine call, foreground
// or background, runs under one mutex.
type Controller struct {
	mu     sync.Mutex
	engine *engine.Engine
	config Config
	logger *slog.Logger

	done     chan struct{}
	lastEval eval.EvalResult
	retrains int
}

// New takes ownership of eng and starts the retraining loop. The loop runs
// until ctx is cancelled; use Wait to block until it has exited.
func New(ctx context.Context, eng *engine.Engine, config Config, logger *slog.Logger) *Controller {
	if config.RetrainInterval <= 0 {
		config.RetrainInterval = DefaultConfig().RetrainInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		engine: eng,
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}
	go c.loop(ctx)
	return c
}

// #endregion controller

// #region loop
func (c *Controller) loop(ctx context.Context) {
	defer close(c.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("retrain loop stopped", "retrains", c.Retrains())
			return
		case <-timer.C:
		}

		c.retrain()
		timer.Reset(c.config.RetrainInterval)
	}
}

func (c *Controller) retrain() eval.EvalResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := c.engine.Retrain()
	c.lastEval = res
	c.retrains++
	return res
}

// Wait blocks until the retrain loop has exited.
func (c *Controller) Wait() {
	<-c.done
}

// Done is closed once the retrain loop has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// #endregion loop

// #region engine-calls
// Decide runs one decision under the engine lock.
func (c *Controller) Decide(r home.Reading) home.Decisions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Decide(r)
}

// DecideTrace runs one decision under the engine lock and returns its trace.
func (c *Controller) DecideTrace(r home.Reading) (home.Decisions, engine.Trace) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.DecideTrace(r)
}

// Retrain forces an immediate retrain outside the periodic schedule.
func (c *Controller) Retrain() eval.EvalResult {
	return c.retrain()
}

// LearnedRules returns the current tree rendered as threshold rules.
func (c *Controller) LearnedRules() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.LearnedRules()
}

// LeafRules returns one record per leaf of the current tree.
func (c *Controller) LeafRules() []explain.LeafRule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.LeafRules()
}

// History returns the persisted observations, oldest first.
func (c *Controller) History() []home.HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.History()
}

// Model returns the current tree, nil if never trained.
func (c *Controller) Model() *classifier.Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Model()
}

// LastEval returns the evaluation of the most recent retrain.
func (c *Controller) LastEval() eval.EvalResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEval
}

// Retrains counts completed retrains, periodic and forced.
func (c *Controller) Retrains() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retrains
}

// #endregion engine-calls
