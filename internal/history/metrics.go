package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smarthome",
			Subsystem: "history",
			Name:      "load_failures_total",
			Help:      "History loads that fell back to an empty sequence",
		},
		[]string{"backend"},
	)

	appendRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smarthome",
			Subsystem: "history",
			Name:      "append_busy_retries_total",
			Help:      "SQLite appends retried because the database was locked",
		},
	)
)
