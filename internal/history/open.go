package history

import (
	"fmt"
	"log/slog"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/config"
)

// Open builds the backend selected by cfg.Backend.
func Open(cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.HistoryPath, logger)
	case config.BackendSQLite:
		return NewSQLStore(cfg.DBPath, cfg.BusyRetries, logger)
	case config.BackendBadger:
		return NewBadgerStore(cfg.BadgerDir, logger)
	}
	return nil, fmt.Errorf("open history: unknown backend %q", cfg.Backend)
}
