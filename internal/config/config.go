// Package config provides configuration loading for acheron.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/telemetry"
)

const (
	// EnvPrefix is the prefix of acheron environment variables
	EnvPrefix = "ACHERON"

	// DatabasePasswordEnv holds the LIMS database password when no file is set
	DatabasePasswordEnv = EnvPrefix + "_DATABASE_PASSWORD"
)

// Defaults
const (
	DefaultWorkers            = 12
	DefaultQueueTimeout       = 3 * time.Second
	DefaultCharonTimeout      = 30 * time.Second
	DefaultConnectTimeout     = time.Minute
	DefaultSSLMode            = "require"
	DefaultSequencingFacility = "NGI-S"
	DefaultPipeline           = "NGI"

	dateLayout = "2006-01-02"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Charon    *CharonConfig     `yaml:"charon,omitempty"`
	Database  *DatabaseConfig   `yaml:"database,omitempty"`
	LIMS      *LIMSConfig       `yaml:"lims,omitempty"`
	Workers   *WorkersConfig    `yaml:"workers,omitempty"`
	Project   *ProjectConfig    `yaml:"project,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// CharonConfig defines how to reach the tracking service
type CharonConfig struct {
	// BaseURL is the Charon root, e.g. https://charon.example.org
	BaseURL string `yaml:"baseURL,omitempty"`

	// Token is the API token. Prefer TokenFile outside of development.
	Token string `yaml:"token,omitempty"`

	// TokenFile is the path to a file containing the API token
	TokenFile string `yaml:"tokenFile,omitempty"`

	// Timeout is the per-request timeout (e.g., "30s")
	Timeout string `yaml:"timeout,omitempty"`
}

// DatabaseConfig defines LIMS database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// The file should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns caps the pool. It is raised to the worker count when lower.
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the number of connections kept open when idle
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`

	// ConnectTimeout bounds the retries when establishing a connection
	ConnectTimeout string `yaml:"connectTimeout,omitempty"`
}

// LIMSConfig tunes the LIMS queries
type LIMSConfig struct {
	LibPrepTypeIDs []int32 `yaml:"libprepTypeIDs,omitempty"`
	SeqRunTypeIDs  []int32 `yaml:"seqrunTypeIDs,omitempty"`

	// RecentWindow is how far back --new looks (e.g., "24h")
	RecentWindow string `yaml:"recentWindow,omitempty"`

	// AllProjectsSince is the creation cut-off of --all (YYYY-MM-DD)
	AllProjectsSince string `yaml:"allProjectsSince,omitempty"`
}

// WorkersConfig sizes the worker pool
type WorkersConfig struct {
	Count        int    `yaml:"count,omitempty"`
	QueueTimeout string `yaml:"queueTimeout,omitempty"`
}

// ProjectConfig holds the constant fields of project documents
type ProjectConfig struct {
	SequencingFacility string `yaml:"sequencingFacility,omitempty"`
	Pipeline           string `yaml:"pipeline,omitempty"`
}

// GetToken returns the Charon API token, reading TokenFile first
func (c *CharonConfig) GetToken() (string, error) {
	if c == nil {
		return "", nil
	}
	if c.TokenFile != "" {
		data, err := os.ReadFile(filepath.Clean(c.TokenFile))
		if err != nil {
			return "", fmt.Errorf("failed to read token from file %s: %w", c.TokenFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return c.Token, nil
}

// GetTimeout returns the per-request timeout
func (c *CharonConfig) GetTimeout() time.Duration {
	if c == nil {
		return DefaultCharonTimeout
	}
	return durationOr(c.Timeout, DefaultCharonTimeout)
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from ACHERON_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		data, err := os.ReadFile(filepath.Clean(d.PasswordFile))
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(DatabasePasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable", DatabasePasswordEnv,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String(), nil
}

// GetConnMaxLifetime returns the connection lifetime, zero meaning the pool default
func (d *DatabaseConfig) GetConnMaxLifetime() time.Duration {
	return durationOr(d.ConnMaxLifetime, 0)
}

// GetConnectTimeout returns how long connection establishment may be retried
func (d *DatabaseConfig) GetConnectTimeout() time.Duration {
	if d == nil {
		return DefaultConnectTimeout
	}
	return durationOr(d.ConnectTimeout, DefaultConnectTimeout)
}

// GetRecentWindow returns the --new window, zero meaning the LIMS default
func (l *LIMSConfig) GetRecentWindow() time.Duration {
	if l == nil {
		return 0
	}
	return durationOr(l.RecentWindow, 0)
}

// GetAllProjectsSince returns the --all cut-off, zero meaning the LIMS default
func (l *LIMSConfig) GetAllProjectsSince() time.Time {
	if l == nil || l.AllProjectsSince == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, l.AllProjectsSince)
	if err != nil {
		return time.Time{}
	}
	return t
}

// GetCount returns the number of workers
func (w *WorkersConfig) GetCount() int {
	if w == nil || w.Count <= 0 {
		return DefaultWorkers
	}
	return w.Count
}

// GetQueueTimeout returns how long an idle worker waits for work
func (w *WorkersConfig) GetQueueTimeout() time.Duration {
	if w == nil {
		return DefaultQueueTimeout
	}
	return durationOr(w.QueueTimeout, DefaultQueueTimeout)
}

// GetSequencingFacility returns the facility written on project documents
func (p *ProjectConfig) GetSequencingFacility() string {
	if p == nil || p.SequencingFacility == "" {
		return DefaultSequencingFacility
	}
	return p.SequencingFacility
}

// GetPipeline returns the pipeline written on project documents
func (p *ProjectConfig) GetPipeline() string {
	if p == nil || p.Pipeline == "" {
		return DefaultPipeline
	}
	return p.Pipeline
}

func durationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// LoadConfig loads and parses configuration from a YAML file. Without a path
// it returns an empty configuration, every section then using its defaults.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	var config Config
	if loaderCfg.path == "" {
		return &config, nil
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error
	if c.Charon != nil {
		errs = append(errs, c.Charon.validate())
	}
	if c.Database != nil {
		errs = append(errs, c.Database.validate())
	}
	if c.LIMS != nil {
		errs = append(errs, c.LIMS.validate())
	}
	if c.Workers != nil {
		errs = append(errs, c.Workers.validate())
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}
	return errors.Join(errs...)
}

func (c *CharonConfig) validate() error {
	if c.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
			return fmt.Errorf("charon.baseURL must be a valid URL: %w", err)
		}
	}
	if c.Token != "" && c.TokenFile != "" {
		return fmt.Errorf("charon: only one of token or tokenFile may be specified")
	}
	return validateDuration("charon.timeout", c.Timeout)
}

func (d *DatabaseConfig) validate() error {
	var errs []error
	if d.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if d.Port == 0 {
		errs = append(errs, fmt.Errorf("database.port is required"))
	}
	if d.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}
	if d.Database == "" {
		errs = append(errs, fmt.Errorf("database.database is required"))
	}
	errs = append(errs,
		validateDuration("database.connMaxLifetime", d.ConnMaxLifetime),
		validateDuration("database.connectTimeout", d.ConnectTimeout),
	)
	return errors.Join(errs...)
}

func (l *LIMSConfig) validate() error {
	var errs []error
	for _, id := range append(append([]int32(nil), l.LibPrepTypeIDs...), l.SeqRunTypeIDs...) {
		if id <= 0 {
			errs = append(errs, fmt.Errorf("lims: process type ids must be positive, got %d", id))
		}
	}
	errs = append(errs, validateDuration("lims.recentWindow", l.RecentWindow))
	if l.AllProjectsSince != "" {
		if _, err := time.Parse(dateLayout, l.AllProjectsSince); err != nil {
			errs = append(errs, fmt.Errorf("lims.allProjectsSince must be a date (YYYY-MM-DD): %w", err))
		}
	}
	return errors.Join(errs...)
}

func (w *WorkersConfig) validate() error {
	if w.Count < 0 {
		return fmt.Errorf("workers.count must not be negative, got %d", w.Count)
	}
	return validateDuration("workers.queueTimeout", w.QueueTimeout)
}

func validateDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '30s', '1h'): %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return nil
}
