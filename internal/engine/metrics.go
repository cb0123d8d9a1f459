package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smarthome",
			Subsystem: "engine",
			Name:      "decisions_total",
			Help:      "Decisions made, by classifier status",
		},
		[]string{"status"},
	)

	activeLabels = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smarthome",
			Subsystem: "engine",
			Name:      "active_labels_total",
			Help:      "Final decisions with the label switched on",
		},
		[]string{"label"},
	)

	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smarthome",
			Subsystem: "engine",
			Name:      "classifier_fallbacks_total",
			Help:      "Decisions that fell back to rules only, by reason",
		},
		[]string{"reason"},
	)

	vetoesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smarthome",
			Subsystem: "engine",
			Name:      "vetoes_total",
			Help:      "Flags forced off by the energy override",
		},
		[]string{"type"},
	)

	appendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smarthome",
			Subsystem: "engine",
			Name:      "history_append_failures_total",
			Help:      "Decisions whose observation could not be persisted",
		},
	)

	historySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "smarthome",
			Subsystem: "engine",
			Name:      "history_entries",
			Help:      "Observation history length seen by the last decision or retrain",
		},
	)

	retrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "smarthome",
			Subsystem: "engine",
			Name:      "retrain_duration_seconds",
			Help:      "Wall time of a full retrain and evaluation",
			Buckets:   prometheus.DefBuckets,
		},
	)

	trainingAgreement = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "smarthome",
			Subsystem: "engine",
			Name:      "training_agreement",
			Help:      "Per-label agreement of the last retrained tree with its training data",
		},
		[]string{"label"},
	)

	breakerOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "smarthome",
			Subsystem: "engine",
			Name:      "classifier_breaker_open",
			Help:      "1 while the classifier circuit breaker is open",
		},
	)
)
