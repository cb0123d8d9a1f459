package engine

import (
	"time"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/classifier"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/config"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/eval"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/gate"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// #region collaborators
// HistoryStore is the observation log the engine reads and appends to.
type HistoryStore interface {
	Load() []home.HistoryEntry
	Append(e home.HistoryEntry) error
}

// Learner is the trainable model fused with the rule layer.
// *classifier.Classifier is the production implementation.
type Learner interface {
	Train(history []home.HistoryEntry)
	Predict(r home.Reading) (home.Decisions, error)
	Model() *classifier.Tree
}

// Recorder receives a trace for every decision.
type Recorder interface {
	Record(t Trace) error
}

// #endregion collaborators

// #region config
// BreakerConfig controls when repeated inference failures stop the engine
// from consulting the learner.
type BreakerConfig struct {
	MaxFailures uint32        // consecutive failures before opening
	OpenTimeout time.Duration // time spent open before a half-open probe
}

// Config tunes the hybrid engine.
type Config struct {
	ActivationThreshold int // minimum history length before the learner is consulted
	TrainWindow         int // newest entries used for training; 0 = all
	Classifier          classifier.Config
	Eval                eval.EvalConfig
	Breaker             BreakerConfig
}

// DefaultConfig returns the stock engine configuration.
func DefaultConfig() Config {
	return Config{
		ActivationThreshold: 10,
		Classifier:          classifier.DefaultConfig(),
		Eval:                eval.DefaultEvalConfig(),
		Breaker: BreakerConfig{
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
	}
}

// FromConfig maps the file/env configuration onto engine settings.
func FromConfig(c config.EngineConfig) Config {
	return Config{
		ActivationThreshold: c.ActivationThreshold,
		TrainWindow:         c.TrainWindow,
		Classifier: classifier.Config{
			MaxDepth:        c.MaxDepth,
			MinSamplesSplit: c.MinSamplesSplit,
		},
		Eval: eval.EvalConfig{MinAgreement: c.MinAgreement},
		Breaker: BreakerConfig{
			MaxFailures: c.Breaker.MaxFailures,
			OpenTimeout: c.Breaker.OpenTimeout,
		},
	}
}

// #endregion config

// #region status
// ClassifierStatus describes the learner's part in one decision.
type ClassifierStatus string

const (
	StatusInactive    ClassifierStatus = "inactive"    // history below the activation threshold
	StatusActive      ClassifierStatus = "active"      // prediction fused into the output
	StatusUnavailable ClassifierStatus = "unavailable" // prediction failed; rules only
)

// Fallback reasons reported when the learner is unavailable.
const (
	FallbackUntrained      = "untrained"
	FallbackBreakerOpen    = "breaker_open"
	FallbackInferenceError = "inference_error"
)

// #endregion status

// #region trace
// Trace is the full record of one decision.
type Trace struct {
	DecisionID     string            `json:"decision_id"`
	Reading        home.Reading      `json:"reading"`
	Rule           home.Decisions    `json:"rule"`
	Learned        *home.Decisions   `json:"learned,omitempty"`
	Fused          home.Decisions    `json:"fused"`
	Final          home.Decisions    `json:"final"`
	Status         ClassifierStatus  `json:"classifier_status"`
	FallbackReason string            `json:"fallback_reason,omitempty"`
	Vetoes         []gate.VetoSignal `json:"vetoes,omitempty"`
	HistoryLen     int               `json:"history_len"`
	CreatedAt      time.Time         `json:"created_at"`
}

// #endregion trace
