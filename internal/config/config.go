// Package config provides configuration loading, validation, and hot-reload
// for the octoreflex decision-evaluation engine and its streaming core.
//
// Configuration file: /etc/octoreflex/config.yaml (default)
// Schema version: 1
//
// Hot-reload:
//   - Process listens for SIGHUP.
//   - On SIGHUP: re-read and re-validate config.yaml and log the result.
//   - No reloaded field is applied to the running process; every change
//     (including listen address and storage path) takes effect on restart.
//   - If the new config is invalid, the old config remains active and an
//     error is logged. The process does NOT crash on invalid hot-reload
//     config.
//
// Validation:
//   - All required fields must be present.
//   - Numeric ranges enforced (e.g., max_connections >= 1, weights >= 0).
//   - Invalid config on startup: process refuses to start (fatal error).
//   - Invalid config on hot-reload: logged, old config retained.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Version, GitCommit, BuildTime are injected by the Makefile via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Config is the root configuration structure for octoreflex.
// All fields have defaults; see Defaults() for values.
type Config struct {
	// SchemaVersion must be "1". Future versions will trigger migration.
	SchemaVersion string `yaml:"schema_version"`

	// NodeID is a unique identifier for this engine instance. Used in
	// ledger entries and log context.
	// Default: hostname.
	NodeID string `yaml:"node_id"`

	// Server configures the streaming-core listener.
	Server ServerConfig `yaml:"server"`

	// Decision configures kernel-wide defaults (system spec §4.D).
	Decision DecisionConfig `yaml:"decision"`

	// Storage configures the BoltDB-backed decision run ledger.
	Storage StorageConfig `yaml:"storage"`

	// Observability configures metrics and logging.
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds the wire-protocol listener's operational parameters.
type ServerConfig struct {
	// ListenAddr is the TCP address the streaming core binds (system spec
	// §1: socket listeners are an external collaborator — this process
	// only needs an address to hand accepted connections to the state
	// machine). Default: 127.0.0.1:9443.
	ListenAddr string `yaml:"listen_addr"`

	// MaxConnections caps concurrently tracked sessions. Default: 4096.
	MaxConnections int `yaml:"max_connections"`

	// MaxPendingEvents is validated (>= 1) but not read by
	// internal/protocol, whose per-session outgoing event queue has a
	// fixed capacity of 64. Default: 64.
	MaxPendingEvents int `yaml:"max_pending_events"`

	// HandshakeTimeout is validated (>= 1s) but not read by
	// internal/protocol, whose connections use a fixed 30s read deadline
	// in every state. Default: 10s.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// DecisionConfig holds kernel-wide decision settings (system spec §4.D,
// §9 "Open questions resolved"). Load and Validate check them; neither
// decision.Evaluate nor sensitivity.RankVOI reads them, and the bootstrap
// shell only logs DefaultAlgorithm on reload.
type DecisionConfig struct {
	// DefaultAlgorithm names a criterion key. octoreflex-sim does not read
	// it. Default: maximin.
	DefaultAlgorithm string `yaml:"default_algorithm"`

	// CompositeWeights are (worst_case, max_regret, adversarial) weights;
	// Validate requires each >= 0 and a positive sum. decision.Evaluate
	// uses decision.DefaultCompositeWeights() instead. Default: 0.4, 0.4,
	// 0.2.
	CompositeWeightWorstCase   float64 `yaml:"composite_weight_worst_case"`
	CompositeWeightMaxRegret   float64 `yaml:"composite_weight_max_regret"`
	CompositeWeightAdversarial float64 `yaml:"composite_weight_adversarial"`

	// VOIDoNowMultiple and VOIPlanLaterMultiple are validated (do_now >
	// plan_later). sensitivity.RankVOI does not read them; its bucket
	// thresholds are fixed at 2x and 1x the caller's minEVOI (system spec
	// §4.E). Defaults: 2.0 and 1.0.
	VOIDoNowMultiple     float64 `yaml:"voi_do_now_multiple"`
	VOIPlanLaterMultiple float64 `yaml:"voi_plan_later_multiple"`
}

// StorageConfig holds BoltDB parameters for the decision run ledger.
type StorageConfig struct {
	// Enabled controls whether evaluated runs are persisted at all. The
	// ledger is an optional sink (system spec §1 Non-goals: "persistent
	// storage" is out of core scope); the core evaluates and fingerprints
	// regardless of this flag. Default: false.
	Enabled bool `yaml:"enabled"`

	// DBPath is the absolute path to the BoltDB file.
	// Default: /var/lib/octoreflex/octoreflex.db.
	DBPath string `yaml:"db_path"`

	// RetentionDays is the ledger retention period. Default: 30.
	RetentionDays int `yaml:"retention_days"`
}

// ObservabilityConfig holds metrics and logging parameters.
type ObservabilityConfig struct {
	// MetricsAddr is the Prometheus metrics HTTP bind address.
	// Default: 127.0.0.1:9091.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls the minimum log level (debug, info, warn, error).
	// Default: info.
	LogLevel string `yaml:"log_level"`

	// LogFormat controls the log output format (json, console).
	// Default: json.
	LogFormat string `yaml:"log_format"`
}

// Defaults returns a Config populated with all default values.
func Defaults() Config {
	hostname, _ := os.Hostname()
	return Config{
		SchemaVersion: "1",
		NodeID:        hostname,
		Server: ServerConfig{
			ListenAddr:       "127.0.0.1:9443",
			MaxConnections:   4096,
			MaxPendingEvents: 64,
			HandshakeTimeout: 10 * time.Second,
		},
		Decision: DecisionConfig{
			DefaultAlgorithm:           "maximin",
			CompositeWeightWorstCase:   0.4,
			CompositeWeightMaxRegret:   0.4,
			CompositeWeightAdversarial: 0.2,
			VOIDoNowMultiple:           2.0,
			VOIPlanLaterMultiple:       1.0,
		},
		Storage: StorageConfig{
			Enabled:       false,
			DBPath:        DefaultDBPath,
			RetentionDays: 30,
		},
		Observability: ObservabilityConfig{
			MetricsAddr: "127.0.0.1:9091",
			LogLevel:    "info",
			LogFormat:   "json",
		},
	}
}

// DefaultDBPath mirrors the storage package constant for use in config defaults.
const DefaultDBPath = "/var/lib/octoreflex/octoreflex.db"

// Load reads and validates a config file from the given path.
// Returns the merged config (defaults overridden by file values).
// Returns an error if the file cannot be read, parsed, or validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks all config fields for correctness, accumulating every
// violation into one error rather than failing on the first (matches the
// teacher's config.Validate discipline).
func Validate(cfg *Config) error {
	var errs []string

	if cfg.SchemaVersion != "1" {
		errs = append(errs, fmt.Sprintf("schema_version must be \"1\", got %q", cfg.SchemaVersion))
	}
	if cfg.NodeID == "" {
		errs = append(errs, "node_id must not be empty")
	}
	if cfg.Server.ListenAddr == "" {
		errs = append(errs, "server.listen_addr must not be empty")
	}
	if cfg.Server.MaxConnections < 1 {
		errs = append(errs, fmt.Sprintf("server.max_connections must be >= 1, got %d", cfg.Server.MaxConnections))
	}
	if cfg.Server.MaxPendingEvents < 1 {
		errs = append(errs, fmt.Sprintf("server.max_pending_events must be >= 1, got %d", cfg.Server.MaxPendingEvents))
	}
	if cfg.Server.HandshakeTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("server.handshake_timeout must be >= 1s, got %s", cfg.Server.HandshakeTimeout))
	}
	if cfg.Decision.DefaultAlgorithm == "" {
		errs = append(errs, "decision.default_algorithm must not be empty")
	}
	if cfg.Decision.CompositeWeightWorstCase < 0 || cfg.Decision.CompositeWeightMaxRegret < 0 ||
		cfg.Decision.CompositeWeightAdversarial < 0 {
		errs = append(errs, "all decision composite weights must be >= 0")
	}
	if cfg.Decision.CompositeWeightWorstCase+cfg.Decision.CompositeWeightMaxRegret+cfg.Decision.CompositeWeightAdversarial <= 0 {
		errs = append(errs, "decision composite weights must not all be zero")
	}
	if cfg.Decision.VOIDoNowMultiple <= cfg.Decision.VOIPlanLaterMultiple {
		errs = append(errs, "decision.voi_do_now_multiple must be > decision.voi_plan_later_multiple")
	}
	if cfg.Storage.Enabled {
		if cfg.Storage.DBPath == "" {
			errs = append(errs, "storage.db_path must not be empty when storage.enabled is true")
		}
		if cfg.Storage.RetentionDays < 1 {
			errs = append(errs, fmt.Sprintf("storage.retention_days must be >= 1, got %d", cfg.Storage.RetentionDays))
		}
	}
	if cfg.Observability.MetricsAddr == "" {
		errs = append(errs, "observability.metrics_addr must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s",
			joinStrings(errs, "\n  - "))
	}
	return nil
}

// joinStrings joins a slice of strings with a separator.
func joinStrings(ss []string, sep string) string {
	if len(ss) == 0 {
		return ""
	}
	result := ss[0]
	for _, s := range ss[1:] {
		result += sep + s
	}
	return result
}
