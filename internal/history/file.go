package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// errCorrupt marks a history file that exists but does not decode.
var errCorrupt = errors.New("corrupt history file")

// #region file-store
// FileStore keeps the whole history as one JSON array on disk.
// Safe for concurrent use within one process only.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewFileStore opens path, creating it as an empty array if it does not exist.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileStore{path: path, logger: logger}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.write(nil); err != nil {
			return nil, fmt.Errorf("create history file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat history file: %w", err)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// #endregion file-store

// #region load
// Load reads the full array. A missing file is an empty history; an
// unreadable or corrupt one is logged and treated as empty.
func (s *FileStore) Load() []home.HistoryEntry {
	entries, err := s.read()
	if err != nil {
		loadFailures.WithLabelValues("file").Inc()
		s.logger.Warn("history load failed, using empty history", "path", s.path, "err", err)
		return []home.HistoryEntry{}
	}
	return entries
}

func (s *FileStore) read() ([]home.HistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []home.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var entries []home.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if entries == nil {
		entries = []home.HistoryEntry{}
	}
	return entries, nil
}

// #endregion load

// #region append
// Append rewrites the file with e added at the end. The new contents are
// written to a temp file and renamed over the old one, so readers see either
// the previous or the next sequence. A corrupt file is moved aside to
// <path>.corrupt-<unixnano> and the history restarts from e.
func (s *FileStore) Append(e home.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	entries, err := s.read()
	if errors.Is(err, errCorrupt) {
		entries, err = s.quarantine(err)
	}
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	entries = append(entries, e)
	if err := s.write(entries); err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return nil
}

func (s *FileStore) quarantine(cause error) ([]home.HistoryEntry, error) {
	aside := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().UnixNano())
	if err := os.Rename(s.path, aside); err != nil {
		return nil, fmt.Errorf("quarantine history: %w", err)
	}
	loadFailures.WithLabelValues("file").Inc()
	s.logger.Warn("corrupt history moved aside, starting empty", "path", s.path, "quarantine", aside, "err", cause)
	return []home.HistoryEntry{}, nil
}

func (s *FileStore) write(entries []home.HistoryEntry) error {
	if entries == nil {
		entries = []home.HistoryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename temp: %w", err)
	}
	return nil
}

// #endregion append

// Close marks the store closed. Further appends fail with ErrClosed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
