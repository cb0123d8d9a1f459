package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS observations (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	temperature    REAL NOT NULL,
	humidity       REAL NOT NULL,
	door_open      INTEGER NOT NULL,
	air_quality    REAL NOT NULL,
	presence       INTEGER NOT NULL,
	ventilation    INTEGER NOT NULL,
	hvac           INTEGER NOT NULL,
	lighting       INTEGER NOT NULL,
	security       INTEGER NOT NULL,
	energy_saving  INTEGER NOT NULL,
	created_at     TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// SQLStore keeps observations in SQLite. Several processes may share one
// database file; writers that hit a lock are retried with backoff.
type SQLStore struct {
	db          *sql.DB
	logger      *slog.Logger
	busyRetries uint64
	initialWait time.Duration
}

// #endregion store-struct

// #region constructor
// NewSQLStore opens a SQLite database and runs migrations.
func NewSQLStore(dbPath string, busyRetries int, logger *slog.Logger) (*SQLStore, error) {
	// busy_timeout goes in the DSN so every pooled connection gets it.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	s, err := NewSQLStoreWithDB(db, busyRetries, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStoreWithDB wraps an existing *sql.DB (e.g. shared with the
// provenance log) and runs migrations.
func NewSQLStoreWithDB(db *sql.DB, busyRetries int, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if busyRetries < 0 {
		busyRetries = 0
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLStore{
		db:          db,
		logger:      logger,
		busyRetries: uint64(busyRetries),
		initialWait: 50 * time.Millisecond,
	}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region load
// Load returns all observations ordered by insertion. Query or scan failures
// are logged and yield an empty history.
func (s *SQLStore) Load() []home.HistoryEntry {
	entries, err := s.query()
	if err != nil {
		loadFailures.WithLabelValues("sqlite").Inc()
		s.logger.Warn("history load failed, using empty history", "err", err)
		return []home.HistoryEntry{}
	}
	return entries
}

func (s *SQLStore) query() ([]home.HistoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT temperature, humidity, door_open, air_quality, presence,
		        ventilation, hvac, lighting, security, energy_saving
		 FROM observations ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	entries := []home.HistoryEntry{}
	for rows.Next() {
		var e home.HistoryEntry
		err := rows.Scan(
			&e.Input.Temperature, &e.Input.Humidity, &e.Input.DoorOpen, &e.Input.AirQuality, &e.Input.Presence,
			&e.Output.Ventilation, &e.Output.HVAC, &e.Output.Lighting, &e.Output.Security, &e.Output.EnergySaving,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return entries, nil
}

// #endregion load

// #region append
// Append inserts one observation, retrying while another writer holds the lock.
func (s *SQLStore) Append(e home.HistoryEntry) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.initialWait
	bo.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		err := s.insert(e)
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return backoff.Permanent(err)
		}
		if attempt > 1 {
			appendRetries.Inc()
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Debug("history append busy, retrying", "attempt", attempt, "wait", wait, "err", err)
	}

	if err := backoff.RetryNotify(op, backoff.WithMaxRetries(bo, s.busyRetries), notify); err != nil {
		return fmt.Errorf("append observation: %w", err)
	}
	return nil
}

func (s *SQLStore) insert(e home.HistoryEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO observations (temperature, humidity, door_open, air_quality, presence,
		 ventilation, hvac, lighting, security, energy_saving, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Input.Temperature, e.Input.Humidity, e.Input.DoorOpen, e.Input.AirQuality, e.Input.Presence,
		e.Output.Ventilation, e.Output.HVAC, e.Output.Lighting, e.Output.Security, e.Output.EnergySaving,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return tx.Commit()
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// #endregion append
