package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/engine"
)

// #region schema
const provenanceSchema = `
CREATE TABLE IF NOT EXISTS decision_log (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	decision_id       TEXT NOT NULL,
	classifier_status TEXT NOT NULL,
	fallback_reason   TEXT,
	reading_json      TEXT NOT NULL,
	rule_json         TEXT NOT NULL,
	learned_json      TEXT,
	final_json        TEXT NOT NULL,
	vetoes_json       TEXT,
	history_len       INTEGER NOT NULL,
	created_at        TEXT NOT NULL
);
`

// EnsureSchema creates the decision_log table if needed.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(provenanceSchema); err != nil {
		return fmt.Errorf("create decision_log: %w", err)
	}
	return nil
}

// #endregion schema

// #region log-decision
// LogDecision writes a provenance entry to the decision_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (decision_id, classifier_status, fallback_reason, reading_json, rule_json,
		 learned_json, final_json, vetoes_json, history_len, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.DecisionID,
		entry.ClassifierStatus,
		nullIfEmpty(entry.FallbackReason),
		entry.ReadingJSON,
		entry.RuleJSON,
		nullIfEmpty(entry.LearnedJSON),
		entry.FinalJSON,
		nullIfEmpty(entry.VetoesJSON),
		entry.HistoryLen,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region recent-decisions
// RecentDecisions returns up to limit decision_log rows, oldest first.
func RecentDecisions(db *sql.DB, limit int) ([]ProvenanceEntry, error) {
	rows, err := db.Query(
		`SELECT decision_id, classifier_status, fallback_reason, reading_json, rule_json,
		        learned_json, final_json, vetoes_json, history_len, created_at
		 FROM (SELECT * FROM decision_log ORDER BY id DESC LIMIT ?) sub
		 ORDER BY id ASC`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query decision_log: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var (
			e                       ProvenanceEntry
			reason, learned, vetoes sql.NullString
			createdAt               string
		)
		err := rows.Scan(&e.DecisionID, &e.ClassifierStatus, &reason, &e.ReadingJSON, &e.RuleJSON,
			&learned, &e.FinalJSON, &vetoes, &e.HistoryLen, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan decision_log: %w", err)
		}
		e.FallbackReason = reason.String
		e.LearnedJSON = learned.String
		e.VetoesJSON = vetoes.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion recent-decisions

// #region sql-recorder
// SQLRecorder persists every engine trace into decision_log.
type SQLRecorder struct {
	db *sql.DB
}

// NewSQLRecorder ensures the schema and returns a recorder bound to db.
func NewSQLRecorder(db *sql.DB) (*SQLRecorder, error) {
	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	return &SQLRecorder{db: db}, nil
}

// Record implements engine.Recorder.
func (r *SQLRecorder) Record(t engine.Trace) error {
	entry, err := EntryFromTrace(t)
	if err != nil {
		return err
	}
	return LogDecision(r.db, entry)
}

// EntryFromTrace flattens a trace into a provenance row.
func EntryFromTrace(t engine.Trace) (ProvenanceEntry, error) {
	entry := ProvenanceEntry{
		DecisionID:       t.DecisionID,
		ClassifierStatus: string(t.Status),
		FallbackReason:   t.FallbackReason,
		HistoryLen:       t.HistoryLen,
		CreatedAt:        t.CreatedAt,
	}

	var err error
	if entry.ReadingJSON, err = marshalString(t.Reading); err != nil {
		return ProvenanceEntry{}, err
	}
	if entry.RuleJSON, err = marshalString(t.Rule); err != nil {
		return ProvenanceEntry{}, err
	}
	if entry.FinalJSON, err = marshalString(t.Final); err != nil {
		return ProvenanceEntry{}, err
	}
	if t.Learned != nil {
		if entry.LearnedJSON, err = marshalString(t.Learned); err != nil {
			return ProvenanceEntry{}, err
		}
	}
	if len(t.Vetoes) > 0 {
		if entry.VetoesJSON, err = marshalString(t.Vetoes); err != nil {
			return ProvenanceEntry{}, err
		}
	}
	return entry, nil
}

// #endregion sql-recorder

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func marshalString(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal provenance field: %w", err)
	}
	return string(b), nil
}

// #endregion helpers
