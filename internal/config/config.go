// Package config loads controller settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// #region types
// Config is the full controller configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Engine     EngineConfig     `yaml:"engine"`
	Controller ControllerConfig `yaml:"controller"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// StoreConfig selects the observation history backend.
type StoreConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=file sqlite badger"`
	HistoryPath string `yaml:"history_path" validate:"required_if=Backend file"`
	DBPath      string `yaml:"db_path" validate:"required_if=Backend sqlite"`
	BadgerDir   string `yaml:"badger_dir" validate:"required_if=Backend badger"`
	BusyRetries int    `yaml:"busy_retries" validate:"gte=0"` // sqlite append retries on SQLITE_BUSY
}

// EngineConfig tunes the hybrid decision engine.
type EngineConfig struct {
	ActivationThreshold int           `yaml:"activation_threshold" validate:"gte=1"`
	TrainWindow         int           `yaml:"train_window" validate:"gte=0"` // 0 = whole history
	MaxDepth            int           `yaml:"max_depth" validate:"gte=1"`
	MinSamplesSplit     int           `yaml:"min_samples_split" validate:"gte=2"`
	MinAgreement        float64       `yaml:"min_agreement" validate:"gte=0,lte=1"`
	Breaker             BreakerConfig `yaml:"breaker"`
}

// BreakerConfig guards classifier inference.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures" validate:"gte=1"`
	OpenTimeout time.Duration `yaml:"open_timeout" validate:"gt=0"`
}

// ControllerConfig drives the background retraining loop.
type ControllerConfig struct {
	RetrainInterval time.Duration `yaml:"retrain_interval" validate:"gt=0"`
}

// MetricsConfig exposes Prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// #endregion types

// #region defaults
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend:     BackendFile,
			HistoryPath: "sensor_history.json",
			DBPath:      "home_controller.db",
			BadgerDir:   "home_history.badger",
			BusyRetries: 5,
		},
		Engine: EngineConfig{
			ActivationThreshold: 10,
			TrainWindow:         0,
			MaxDepth:            5,
			MinSamplesSplit:     2,
			MinAgreement:        0.9,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				OpenTimeout: 30 * time.Second,
			},
		},
		Controller: ControllerConfig{
			RetrainInterval: 300 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// #endregion defaults

// #region load
// Load reads path (if non-empty) over the defaults, then applies environment
// overrides (including a .env file in the working directory, if present) and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	_ = godotenv.Load()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// #endregion load

// #region env
func applyEnv(cfg *Config) error {
	cfg.Store.Backend = envOr("SMARTHOME_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.HistoryPath = envOr("SMARTHOME_HISTORY_PATH", cfg.Store.HistoryPath)
	cfg.Store.DBPath = envOr("SMARTHOME_DB_PATH", cfg.Store.DBPath)
	cfg.Store.BadgerDir = envOr("SMARTHOME_BADGER_DIR", cfg.Store.BadgerDir)
	cfg.Metrics.Addr = envOr("SMARTHOME_METRICS_ADDR", cfg.Metrics.Addr)
	cfg.Log.Level = envOr("SMARTHOME_LOG_LEVEL", cfg.Log.Level)

	if v := os.Getenv("SMARTHOME_RETRAIN_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SMARTHOME_RETRAIN_INTERVAL: %w", err)
		}
		cfg.Controller.RetrainInterval = d
	}
	if v := os.Getenv("SMARTHOME_ACTIVATION_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMARTHOME_ACTIVATION_THRESHOLD: %w", err)
		}
		cfg.Engine.ActivationThreshold = n
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion env

// #region validate
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML keys.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate rejects configurations the controller cannot run with.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("%s: %s", fieldPath(fe), describe(fe)))
	}
	return errors.Join(errs...)
}

// fieldPath turns "Config.store.db_path" into "store.db_path".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required_if":
		return fmt.Sprintf("required when %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("%v is not one of [%s]", fe.Value(), fe.Param())
	case "gt", "gte", "lte":
		return fmt.Sprintf("%v must be %s %s", fe.Value(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%v fails %s", fe.Value(), fe.Tag())
}

// #endregion validate
