package eval

// #region eval-config
// EvalConfig holds thresholds for post-retrain validation.
type EvalConfig struct {
	MinAgreement float64 // per-label fraction of history the tree must reproduce
}

// DefaultEvalConfig returns sensible defaults.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinAgreement: 0.9,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of post-retrain validation.
type EvalResult struct {
	Passed  bool
	Samples int
	Metrics []EvalMetric
	Reason  string
}

// #endregion eval-result
