package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

var (
	obsPrefix = []byte("obs/")
	seqKey    = []byte("seq/obs")
)

// BadgerStore keeps observations in an embedded BadgerDB keyed by a
// monotonically increasing sequence. The directory is locked by one process.
type BadgerStore struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger
}

// badgerLogger adapts slog to BadgerDB's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// NewBadgerStore opens (or creates) a BadgerDB at dir. An empty dir opens an
// in-memory database.
func NewBadgerStore(dir string, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence(seqKey, 64)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("badger sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq, logger: logger}, nil
}

// Load iterates the observation keys in order. Undecodable values are
// logged and the whole load falls back to an empty history.
func (s *BadgerStore) Load() []home.HistoryEntry {
	entries := []home.HistoryEntry{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = obsPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var e home.HistoryEntry
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &e)
			}); err != nil {
				return fmt.Errorf("decode %x: %w", it.Item().Key(), err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		loadFailures.WithLabelValues("badger").Inc()
		s.logger.Warn("history load failed, using empty history", "err", err)
		return []home.HistoryEntry{}
	}
	return entries
}

// Append stores e under the next sequence number.
func (s *BadgerStore) Append(e home.HistoryEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode observation: %w", err)
	}
	n, err := s.seq.Next()
	if err != nil {
		if errors.Is(err, badger.ErrDBClosed) {
			return ErrClosed
		}
		return fmt.Errorf("next sequence: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(obsKey(n), data)
	})
	if err != nil {
		return fmt.Errorf("append observation: %w", err)
	}
	return nil
}

// Close releases the unused sequence lease and closes the database.
func (s *BadgerStore) Close() error {
	relErr := s.seq.Release()
	return errors.Join(relErr, s.db.Close())
}

func obsKey(n uint64) []byte {
	key := make([]byte, len(obsPrefix)+8)
	copy(key, obsPrefix)
	binary.BigEndian.PutUint64(key[len(obsPrefix):], n)
	return key
}
