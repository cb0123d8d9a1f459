// Package engine fuses the rule layer with the learned classifier.
package engine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/classifier"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/eval"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/explain"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/gate"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/history"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/rules"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// #region engine-struct
// Engine makes hybrid decisions. It is not safe for concurrent use; the
// controller serializes every call.
type Engine struct {
	store    HistoryStore
	learner  Learner
	harness  *eval.EvalHarness
	breaker  *gobreaker.CircuitBreaker
	recorder Recorder
	config   Config
	logger   *slog.Logger
	now      func() time.Time
}

var _ Learner = (*classifier.Classifier)(nil)

// Option customizes an Engine.
type Option func(*Engine)

// WithLearner replaces the default decision tree classifier.
func WithLearner(l Learner) Option {
	return func(e *Engine) { e.learner = l }
}

// WithRecorder sends every decision trace to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock overrides the trace timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// #endregion engine-struct

// #region constructor
// New wires an engine over store. Zero config fields fall back to defaults.
func New(store HistoryStore, config Config, logger *slog.Logger, opts ...Option) *Engine {
	def := DefaultConfig()
	if config.ActivationThreshold <= 0 {
		config.ActivationThreshold = def.ActivationThreshold
	}
	if config.TrainWindow < 0 {
		config.TrainWindow = 0
	}
	if config.Eval.MinAgreement <= 0 {
		config.Eval = def.Eval
	}
	if config.Breaker.MaxFailures == 0 {
		config.Breaker.MaxFailures = def.Breaker.MaxFailures
	}
	if config.Breaker.OpenTimeout <= 0 {
		config.Breaker.OpenTimeout = def.Breaker.OpenTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		store:   store,
		harness: eval.NewEvalHarness(config.Eval),
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.learner == nil {
		e.learner = classifier.New(config.Classifier)
	}
	e.breaker = newBreaker(config.Breaker, logger)
	return e
}

func newBreaker(cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "classifier",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.MaxFailures
		},
		// An untrained model is a normal state, not a fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, classifier.ErrUntrained)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				breakerOpen.Set(1)
			} else {
				breakerOpen.Set(0)
			}
		},
	})
}

// #endregion constructor

// #region decide
// Decide returns the final decisions for r and appends {r, final} to the
// history. It never fails: every learner or storage problem degrades to the
// rule layer.
func (e *Engine) Decide(r home.Reading) home.Decisions {
	d, _ := e.DecideTrace(r)
	return d
}

// DecideTrace is Decide plus the full record of how the result was reached.
func (e *Engine) DecideTrace(r home.Reading) (home.Decisions, Trace) {
	rule := rules.Evaluate(r)
	entries := e.store.Load()

	trace := Trace{
		DecisionID: uuid.NewString(),
		Reading:    r,
		Rule:       rule,
		Status:     StatusInactive,
		HistoryLen: len(entries),
		CreatedAt:  e.now().UTC(),
	}

	fused := rule
	if len(entries) >= e.config.ActivationThreshold {
		learned, reason := e.infer(r, entries)
		if reason == "" {
			trace.Status = StatusActive
			trace.Learned = &learned
			fused = rule.Or(learned)
		} else {
			trace.Status = StatusUnavailable
			trace.FallbackReason = reason
		}
	}
	trace.Fused = fused

	res := gate.Apply(r, fused)
	trace.Final = res.Decisions
	trace.Vetoes = res.VetoSignals

	if err := e.store.Append(home.HistoryEntry{Input: r, Output: trace.Final}); err != nil {
		appendFailures.Inc()
		e.logger.Error("history append failed", "decision_id", trace.DecisionID, "err", err)
	}

	e.observe(trace)
	if e.recorder != nil {
		if err := e.recorder.Record(trace); err != nil {
			e.logger.Warn("decision trace not recorded", "decision_id", trace.DecisionID, "err", err)
		}
	}
	return trace.Final, trace
}

// infer refits the learner on the training window and predicts r through the
// breaker. A non-empty reason means the prediction must be ignored.
func (e *Engine) infer(r home.Reading, entries []home.HistoryEntry) (home.Decisions, string) {
	out, err := e.breaker.Execute(func() (interface{}, error) {
		e.learner.Train(e.window(entries))
		return e.learner.Predict(r)
	})
	if err == nil {
		return out.(home.Decisions), ""
	}

	reason := FallbackInferenceError
	switch {
	case errors.Is(err, classifier.ErrUntrained):
		reason = FallbackUntrained
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		reason = FallbackBreakerOpen
	}
	fallbacksTotal.WithLabelValues(reason).Inc()
	e.logger.Warn("classifier unavailable, using rules only", "reason", reason, "err", err)
	return home.Decisions{}, reason
}

func (e *Engine) window(entries []home.HistoryEntry) []home.HistoryEntry {
	return history.Window(entries, e.config.TrainWindow)
}

func (e *Engine) observe(t Trace) {
	decisionsTotal.WithLabelValues(string(t.Status)).Inc()
	for _, label := range t.Final.Active() {
		activeLabels.WithLabelValues(label).Inc()
	}
	for _, v := range t.Vetoes {
		vetoesTotal.WithLabelValues(string(v.Type)).Inc()
	}
	historySize.Set(float64(t.HistoryLen + 1))

	e.logger.Debug("decision",
		"decision_id", t.DecisionID,
		"status", string(t.Status),
		"rule", t.Rule.String(),
		"final", t.Final.String(),
		"vetoes", len(t.Vetoes),
		"history_len", t.HistoryLen,
	)
}

// #endregion decide

// #region retrain
// Retrain refits the learner on the training window and scores it. The
// result is informational: a failing evaluation never discards the model.
func (e *Engine) Retrain() eval.EvalResult {
	start := time.Now()
	all := e.store.Load()
	entries := e.window(all)

	e.learner.Train(entries)
	result := e.harness.Run(e.learner.Model(), entries)

	retrainDuration.Observe(time.Since(start).Seconds())
	historySize.Set(float64(len(all)))
	for _, m := range result.Metrics {
		trainingAgreement.WithLabelValues(m.Name).Set(m.Value)
	}

	if result.Passed {
		e.logger.Info("retrain complete", "samples", result.Samples, "nodes", e.learner.Model().Len())
	} else {
		e.logger.Warn("retrain evaluation failed", "samples", result.Samples, "reason", result.Reason)
	}
	return result
}

// #endregion retrain

// #region introspection
// LearnedRules returns the current tree rendered as threshold rules.
func (e *Engine) LearnedRules() []string {
	return explain.ExtractRules(e.learner.Model())
}

// LeafRules returns one record per leaf of the current tree.
func (e *Engine) LeafRules() []explain.LeafRule {
	return explain.ExtractLeafRules(e.learner.Model())
}

// History returns the persisted observations, oldest first.
func (e *Engine) History() []home.HistoryEntry {
	return e.store.Load()
}

// Model returns the current tree, nil if never trained.
func (e *Engine) Model() *classifier.Tree {
	return e.learner.Model()
}

// Config returns the effective engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// #endregion introspection
