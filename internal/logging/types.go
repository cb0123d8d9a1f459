package logging

import "time"

// #region provenance-entry
// ProvenanceEntry is a single row in the decision_log table.
type ProvenanceEntry struct {
	DecisionID       string
	ClassifierStatus string // "inactive" | "active" | "unavailable"
	FallbackReason   string
	ReadingJSON      string
	RuleJSON         string
	LearnedJSON      string
	FinalJSON        string
	VetoesJSON       string
	HistoryLen       int
	CreatedAt        time.Time
}

// #endregion provenance-entry
