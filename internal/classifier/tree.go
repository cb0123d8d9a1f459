package classifier

import (
	"fmt"
	"math"
	"sort"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// featureEpsilon is the minimum gap between two sorted feature values for a split between them.
const featureEpsilon = 1e-7

// #region tree
// Tree is an immutable trained model. Node 0 is the root.
type Tree struct {
	nodes []Node
}

// NewTree wraps a pre-order node slice. The slice is copied.
func NewTree(nodes []Node) *Tree {
	cp := make([]Node, len(nodes))
	copy(cp, nodes)
	return &Tree{nodes: cp}
}

// Nodes returns a copy of the node slice.
func (t *Tree) Nodes() []Node {
	if t == nil {
		return nil
	}
	cp := make([]Node, len(t.nodes))
	copy(cp, t.nodes)
	return cp
}

// Len is the number of nodes.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Depth is the length of the longest root-to-leaf path, 0 for a single leaf.
func (t *Tree) Depth() int {
	if t.Len() == 0 {
		return 0
	}
	var walk func(i, d int) int
	walk = func(i, d int) int {
		if i < 0 || i >= len(t.nodes) || d > len(t.nodes) {
			return d - 1
		}
		n := t.nodes[i]
		if n.IsLeaf() {
			return d
		}
		return max(walk(n.Left, d+1), walk(n.Right, d+1))
	}
	return walk(0, 0)
}

// Predict walks the tree for a feature vector.
func (t *Tree) Predict(x [home.NumFeatures]float64) ([home.NumLabels]bool, error) {
	var none [home.NumLabels]bool
	if t.Len() == 0 {
		return none, ErrUntrained
	}
	i := 0
	for steps := 0; steps <= len(t.nodes); steps++ {
		if i < 0 || i >= len(t.nodes) {
			return none, fmt.Errorf("%w: node index %d out of range", ErrMalformedTree, i)
		}
		n := t.nodes[i]
		if n.IsLeaf() {
			return n.Majority(), nil
		}
		if n.Feature < 0 || n.Feature >= home.NumFeatures {
			return none, fmt.Errorf("%w: node %d splits on feature %d", ErrMalformedTree, i, n.Feature)
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return none, fmt.Errorf("%w: cycle detected", ErrMalformedTree)
}

// #endregion tree

// #region builder
type sample struct {
	x [home.NumFeatures]float64
	y [home.NumLabels]bool
}

type split struct {
	feature   int
	threshold float64
	score     float64
}

type builder struct {
	config  Config
	samples []sample
	nodes   []Node
}

// build grows the subtree for idx and returns its node index.
func (b *builder) build(idx []int, depth int) int {
	id := len(b.nodes)
	counts := b.count(idx)
	b.nodes = append(b.nodes, Node{
		Feature: Leaf,
		Left:    Leaf,
		Right:   Leaf,
		Samples: len(idx),
		Counts:  counts,
	})

	if depth >= b.config.MaxDepth || len(idx) < b.config.MinSamplesSplit || gini(counts, len(idx)) <= 0 {
		return id
	}

	sp, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.samples[i].x[sp.feature] <= sp.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	b.nodes[id].Feature = sp.feature
	b.nodes[id].Threshold = sp.threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

// bestSplit scans every feature in order and keeps the first split with the
// lowest weighted impurity.
func (b *builder) bestSplit(idx []int) (split, bool) {
	n := len(idx)
	best := split{score: math.Inf(1)}
	found := false
	order := make([]int, n)

	for f := 0; f < home.NumFeatures; f++ {
		copy(order, idx)
		sort.SliceStable(order, func(i, j int) bool {
			return b.samples[order[i]].x[f] < b.samples[order[j]].x[f]
		})

		var left [home.NumLabels][2]int
		right := b.count(order)

		for i := 0; i < n-1; i++ {
			s := b.samples[order[i]]
			for l, on := range s.y {
				c := classOf(on)
				left[l][c]++
				right[l][c]--
			}

			lo, hi := s.x[f], b.samples[order[i+1]].x[f]
			if hi <= lo+featureEpsilon {
				continue
			}

			nl, nr := i+1, n-i-1
			score := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / float64(n)
			if score < best.score {
				best = split{feature: f, threshold: lo + (hi-lo)/2, score: score}
				found = true
			}
		}
	}
	return best, found
}

func (b *builder) count(idx []int) [home.NumLabels][2]int {
	var counts [home.NumLabels][2]int
	for _, i := range idx {
		for l, on := range b.samples[i].y {
			counts[l][classOf(on)]++
		}
	}
	return counts
}

// #endregion builder

// #region helpers
// gini is the label-averaged gini impurity of a node.
func gini(counts [home.NumLabels][2]int, n int) float64 {
	if n == 0 {
		return 0
	}
	var sum float64
	for _, c := range counts {
		p0 := float64(c[0]) / float64(n)
		p1 := float64(c[1]) / float64(n)
		sum += 1 - p0*p0 - p1*p1
	}
	return sum / home.NumLabels
}

func classOf(on bool) int {
	if on {
		return 1
	}
	return 0
}

// #endregion helpers
