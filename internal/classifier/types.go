package classifier

import (
	"errors"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// #region errors
var (
	// ErrUntrained is returned by Predict before the first successful Train.
	ErrUntrained = errors.New("classifier: model not trained")
	// ErrMalformedTree is returned when a walk hits an invalid node reference.
	ErrMalformedTree = errors.New("classifier: malformed tree")
)

// #endregion errors

// #region node
// Leaf marks a node without a split.
const Leaf = -1

// Node is one entry of a tree in pre-order. Internal nodes send
// feature <= Threshold to Left and everything else to Right.
type Node struct {
	Feature   int // index into home.Reading.Features(), or Leaf
	Threshold float64
	Left      int
	Right     int
	Samples   int
	Counts    [home.NumLabels][2]int // per label: [false, true] training counts
}

// IsLeaf reports whether the node has no split.
func (n Node) IsLeaf() bool {
	return n.Feature == Leaf
}

// Majority returns the per-label prediction of the node. Ties resolve to false.
func (n Node) Majority() [home.NumLabels]bool {
	var out [home.NumLabels]bool
	for l, c := range n.Counts {
		out[l] = c[1] > c[0]
	}
	return out
}

// Confidence is the mean majority fraction across labels.
func (n Node) Confidence() float64 {
	if n.Samples == 0 {
		return 0
	}
	var sum float64
	for _, c := range n.Counts {
		sum += float64(max(c[0], c[1])) / float64(n.Samples)
	}
	return sum / home.NumLabels
}

// #endregion node

// #region config
// Config bounds tree growth.
type Config struct {
	MaxDepth        int // root is depth 0
	MinSamplesSplit int
}

// DefaultConfig returns a depth-5 tree that splits any node with two or more samples.
func DefaultConfig() Config {
	return Config{
		MaxDepth:        5,
		MinSamplesSplit: 2,
	}
}

// #endregion config
