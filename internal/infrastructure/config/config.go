// Package config loads and validates .blotter/config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/blotter/pkg/storage"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultAddr = "127.0.0.1:8787"
)

// Config is the workspace configuration. Zero values fall back to Default.
type Config struct {
	Timezone   string           `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Delivery   DeliveryConfig   `yaml:"delivery" json:"delivery"`
	RemoteSync RemoteSyncConfig `yaml:"remote_sync,omitempty" json:"remote_sync,omitempty"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	// DSN is a file path for sqlite (relative to .blotter) or a connection URL for postgres.
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// DeliveryConfig drives the notifier retry policy.
type DeliveryConfig struct {
	MaxAttempts    int    `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay   string `yaml:"initial_delay" json:"initial_delay"`
	DeadLetterFile string `yaml:"dead_letter_file,omitempty" json:"dead_letter_file,omitempty"`
}

type RemoteSyncConfig struct {
	URL     string `yaml:"url,omitempty" json:"url,omitempty"`
	Token   string `yaml:"token,omitempty" json:"token,omitempty"`
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
	// RefreshInterval is how often serve picks up hearings changed by other processes.
	RefreshInterval string `yaml:"refresh_interval,omitempty" json:"refresh_interval,omitempty"`
}

func Default() *Config {
	return &Config{
		Store:    StoreConfig{Driver: DriverSQLite, DSN: storage.DatabaseFile},
		Delivery: DeliveryConfig{MaxAttempts: 3, InitialDelay: "500ms", DeadLetterFile: storage.DeadLetterFile},
		Server:   ServerConfig{Addr: DefaultAddr, RefreshInterval: "30s"},
	}
}

// Load reads config.yaml under root. A missing file yields Default.
func Load(root string) (*Config, error) {
	repo := storage.NewFilesystemRepository(root)
	path, err := repo.ResolvePath(storage.ConfigFile)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the schema and decodes it over the defaults.
func Parse(data []byte) (*Config, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, cfg.Validate()
}

func Save(root string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	repo := storage.NewFilesystemRepository(root)
	path, err := repo.ResolvePath(storage.ConfigFile)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks the decoded values the schema cannot express.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := parseDuration("delivery.initial_delay", c.Delivery.InitialDelay); err != nil {
		return err
	}
	if _, err := parseDuration("remote_sync.timeout", c.RemoteSync.Timeout); err != nil {
		return err
	}
	if _, err := parseDuration("server.refresh_interval", c.Server.RefreshInterval); err != nil {
		return err
	}
	if c.Store.Driver == DriverPostgres && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for the postgres driver")
	}
	return nil
}

// Location resolves Timezone; empty means the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RetryConfig converts the delivery settings into a fortify retry policy.
func (c *Config) RetryConfig() retry.Config {
	delay, _ := parseDuration("delivery.initial_delay", c.Delivery.InitialDelay)
	if delay == 0 {
		delay = 500 * time.Millisecond
	}
	attempts := c.Delivery.MaxAttempts
	if attempts < 1 {
		attempts = 3
	}
	return retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  delay,
		BackoffPolicy: retry.BackoffExponential,
	}
}

// SyncTimeout is the remote sync push deadline, 5s when unset.
func (c *Config) SyncTimeout() time.Duration {
	d, _ := parseDuration("remote_sync.timeout", c.RemoteSync.Timeout)
	if d == 0 {
		return 5 * time.Second
	}
	return d
}

// RefreshInterval is the serve refresh period, 30s when unset.
func (c *Config) RefreshInterval() time.Duration {
	d, _ := parseDuration("server.refresh_interval", c.Server.RefreshInterval)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// DatabasePath resolves the sqlite DSN against the workspace.
func (c *Config) DatabasePath(root string) string {
	dsn := c.Store.DSN
	if dsn == "" {
		dsn = storage.DatabaseFile
	}
	if dsn == ":memory:" || filepath.IsAbs(dsn) {
		return dsn
	}
	return filepath.Join(root, storage.BlotterDir, dsn)
}

// DeadLetterPath resolves the dead-letter file against the workspace.
func (c *Config) DeadLetterPath(root string) string {
	name := c.Delivery.DeadLetterFile
	if name == "" {
		name = storage.DeadLetterFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(root, storage.BlotterDir, name)
}

func parseDuration(field, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", field, v)
	}
	return d, nil
}
