// Package explain turns a trained tree into human-readable rules.
package explain

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/classifier"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// #region leaf-rule
// LeafRule describes one leaf: the full path condition, the labels it
// predicts as active and its confidence.
type LeafRule struct {
	Condition  string   `json:"condition"`
	Actions    []string `json:"actions"`
	Confidence float64  `json:"confidence"`
	Samples    int      `json:"samples"`
}

// #endregion leaf-rule

// #region extract-rules
// ExtractRules walks the tree depth-first and emits one rule per split node:
// "If <feature> <= <threshold>: <ancestor conditions>". Leaves emit nothing.
// Ancestor conditions are joined by " AND " with no leading separator, and
// the root rule ends at the colon. Older logs of this engine prefixed every
// path with " AND ", e.g. "If X <= t:  AND Y <= t".
func ExtractRules(tree *classifier.Tree) []string {
	nodes := tree.Nodes()
	if len(nodes) == 0 {
		return []string{}
	}

	rules := []string{}
	walk(nodes, 0, nil, func(n classifier.Node, path []string) {
		if n.IsLeaf() {
			return
		}
		name := featureName(n.Feature)
		rule := fmt.Sprintf("If %s <= %.1f: %s", name, n.Threshold, strings.Join(path, " AND "))
		rules = append(rules, strings.TrimRight(rule, " "))
	})
	return rules
}

// #endregion extract-rules

// #region extract-leaf-rules
// ExtractLeafRules emits one record per leaf, in depth-first order.
func ExtractLeafRules(tree *classifier.Tree) []LeafRule {
	nodes := tree.Nodes()
	if len(nodes) == 0 {
		return []LeafRule{}
	}

	leaves := []LeafRule{}
	walk(nodes, 0, nil, func(n classifier.Node, path []string) {
		if !n.IsLeaf() {
			return
		}
		cond := "always"
		if len(path) > 0 {
			cond = strings.Join(path, " AND ")
		}
		leaves = append(leaves, LeafRule{
			Condition:  cond,
			Actions:    home.DecisionsFromLabels(n.Majority()).Active(),
			Confidence: n.Confidence(),
			Samples:    n.Samples,
		})
	})
	return leaves
}

// #endregion extract-leaf-rules

// #region walk
// walk visits nodes in pre-order. Invalid child references end the branch.
func walk(nodes []classifier.Node, i int, path []string, visit func(classifier.Node, []string)) {
	if i < 0 || i >= len(nodes) || len(path) > len(nodes) {
		return
	}
	n := nodes[i]
	visit(n, path)
	if n.IsLeaf() {
		return
	}

	name := featureName(n.Feature)
	left := append(append([]string(nil), path...), fmt.Sprintf("%s <= %.1f", name, n.Threshold))
	right := append(append([]string(nil), path...), fmt.Sprintf("%s > %.1f", name, n.Threshold))
	walk(nodes, n.Left, left, visit)
	walk(nodes, n.Right, right, visit)
}

func featureName(f int) string {
	if f >= 0 && f < home.NumFeatures {
		return home.FeatureNames[f]
	}
	return fmt.Sprintf("feature[%d]", f)
}

// #endregion walk
