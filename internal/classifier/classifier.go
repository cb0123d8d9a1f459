// Package classifier implements the learned layer: a bounded-depth,
// multi-label decision tree refit from scratch on the observation history.
package classifier

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// #region classifier
// Classifier owns the current tree. It is not safe for concurrent use;
// callers serialize access.
type Classifier struct {
	config Config
	tree   *Tree
}

// New creates an untrained classifier. Zero config fields fall back to defaults.
func New(config Config) *Classifier {
	def := DefaultConfig()
	if config.MaxDepth <= 0 {
		config.MaxDepth = def.MaxDepth
	}
	if config.MinSamplesSplit < 2 {
		config.MinSamplesSplit = def.MinSamplesSplit
	}
	return &Classifier{config: config}
}

// #endregion classifier

// #region train
// Train refits the tree on every entry of history. Empty history is a no-op
// and keeps any previous model.
func (c *Classifier) Train(history []home.HistoryEntry) {
	if len(history) == 0 {
		return
	}

	b := &builder{
		config:  c.config,
		samples: make([]sample, len(history)),
		nodes:   make([]Node, 0, 2*len(history)),
	}
	idx := make([]int, len(history))
	for i, e := range history {
		b.samples[i] = sample{x: e.Input.Features(), y: e.Output.Labels()}
		idx[i] = i
	}
	b.build(idx, 0)

	c.tree = &Tree{nodes: b.nodes}
}

// #endregion train

// #region predict
// Predict returns the learned decision set for r. Any error means the learned
// layer is unavailable for this reading.
func (c *Classifier) Predict(r home.Reading) (home.Decisions, error) {
	if c.tree == nil {
		return home.Decisions{}, ErrUntrained
	}
	labels, err := c.tree.Predict(r.Features())
	if err != nil {
		return home.Decisions{}, fmt.Errorf("predict: %w", err)
	}
	return home.DecisionsFromLabels(labels), nil
}

// #endregion predict

// #region accessors
// Model returns the current tree, nil if untrained.
func (c *Classifier) Model() *Tree {
	return c.tree
}

// Trained reports whether a tree is available.
func (c *Classifier) Trained() bool {
	return c.tree != nil
}

// Config returns the effective configuration.
func (c *Classifier) Config() Config {
	return c.config
}

// #endregion accessors
