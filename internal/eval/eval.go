package eval

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/classifier"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// #region eval-harness
// EvalHarness scores a freshly trained tree against the history it was fit on.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run computes per-label agreement between the tree and the recorded outputs.
// The result is informational; callers never block a model on it.
func (h *EvalHarness) Run(tree *classifier.Tree, history []home.HistoryEntry) EvalResult {
	if tree.Len() == 0 {
		return EvalResult{Passed: false, Reason: "no model"}
	}
	if len(history) == 0 {
		return EvalResult{Passed: true, Reason: "no history to score"}
	}

	var agree [home.NumLabels]int
	scored := 0
	for _, e := range history {
		pred, err := tree.Predict(e.Input.Features())
		if err != nil {
			return EvalResult{Passed: false, Reason: fmt.Sprintf("predict: %v", err)}
		}
		want := e.Output.Labels()
		for l := range pred {
			if pred[l] == want[l] {
				agree[l]++
			}
		}
		scored++
	}

	passed := true
	var failReasons []string
	metrics := make([]EvalMetric, 0, home.NumLabels)
	for l, name := range home.LabelNames {
		value := float64(agree[l]) / float64(scored)
		pass := value >= h.config.MinAgreement
		metrics = append(metrics, EvalMetric{
			Name:  MetricName(name),
			Value: value,
			Pass:  pass,
		})
		if !pass {
			passed = false
			failReasons = append(failReasons, fmt.Sprintf("%s agreement %.3f below %.3f", name, value, h.config.MinAgreement))
		}
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Samples: scored,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
// MetricName turns a label name into a metric key, e.g. "Energy Saving" -> "agreement_energy_saving".
func MetricName(label string) string {
	return "agreement_" + strings.ReplaceAll(strings.ToLower(label), " ", "_")
}

// #endregion helpers
