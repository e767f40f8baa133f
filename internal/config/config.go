package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"

	"github.com/waypost/waypost/pkg/database"
)

// Defaults applied to absent configuration values.
const (
	DefaultAddr                    = ":8000"
	DefaultLogFormat               = "standard"
	DefaultChannel                 = "waypost_registry_changed"
	DefaultCacheTTLSeconds         = 30
	DefaultNegativeCacheTTLSeconds = 5
	DefaultBatchMaxIDs             = 1000
	DefaultSQLitePath              = ".waypost/waypost.db"
)

// Config is the top-level waypost configuration, decoded from HCL.
type Config struct {
	// BaseURL is the public base URL of this waypost instance.
	BaseURL string `hcl:"base_url,optional"`

	// LogFormat configures log output ("standard" or "json").
	LogFormat string `hcl:"log_format,optional"`

	// Server configures the HTTP API.
	Server *Server `hcl:"server,block"`

	// Database selects and configures the storage backend.
	Database *Database `hcl:"database,block"`

	// Resolver configures node resolution behavior.
	Resolver *Resolver `hcl:"resolver,block"`

	// Listener configures registry change notifications.
	Listener *Listener `hcl:"listener,block"`
}

// Server represents the HTTP server configuration.
type Server struct {
	// Addr is the listen address (e.g., ":8000").
	Addr string `hcl:"addr,optional"`
}

// Database represents the storage backend configuration.
type Database struct {
	// Driver selects the backend: "postgres" (default) or "sqlite".
	Driver string `hcl:"driver,optional"`

	// PostgreSQL settings.
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	User     string `hcl:"user,optional"`
	Password string `hcl:"password,optional"`
	DBName   string `hcl:"dbname,optional"`
	SSLMode  string `hcl:"sslmode,optional"`

	// Path is the SQLite database file.
	Path string `hcl:"path,optional"`
}

// Resolver represents node resolution configuration.
type Resolver struct {
	// CacheTTLSeconds is how long resolved nodes stay cached.
	CacheTTLSeconds int `hcl:"cache_ttl_seconds,optional"`

	// NegativeCacheTTLSeconds is how long misses stay cached.
	NegativeCacheTTLSeconds int `hcl:"negative_cache_ttl_seconds,optional"`

	// DisableCache turns the resolution cache off entirely.
	DisableCache bool `hcl:"disable_cache,optional"`

	// BatchMaxIDs caps the number of IDs accepted by a batch resolve.
	BatchMaxIDs int `hcl:"batch_max_ids,optional"`

	// SkipStartupRebuild leaves the node view untouched at startup. By
	// default the server rebuilds it once during boot.
	SkipStartupRebuild bool `hcl:"skip_startup_rebuild,optional"`
}

// Listener represents registry change notification configuration.
// PostgreSQL only; the sqlite backend ignores this block.
type Listener struct {
	// Enabled turns the LISTEN loop on.
	Enabled bool `hcl:"enabled,optional"`

	// Channel is the NOTIFY channel carrying registry changes.
	Channel string `hcl:"channel,optional"`
}

// Load reads and decodes a configuration file from the OS filesystem.
func Load(path string) (*Config, error) {
	return LoadFS(afero.NewOsFs(), path)
}

// LoadFS reads and decodes a configuration file from the given filesystem.
func LoadFS(fs afero.Fs, path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("configuration file path is required")
	}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat configuration file: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}

	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var cfg Config
	if err := hclsimple.Decode(path, src, nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied, suitable
// for running without a configuration file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Embedded returns a configuration for running against an embedded
// SQLite database at the given path. An empty path selects the default
// location.
func Embedded(path string) *Config {
	if path == "" {
		path = DefaultSQLitePath
	}

	cfg := &Config{
		Database: &Database{
			Driver: database.TypeSQLite,
			Path:   path,
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}

	if c.Server == nil {
		c.Server = &Server{}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}

	if c.Database == nil {
		c.Database = &Database{}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = database.TypePostgres
	}
	switch c.Database.Driver {
	case database.TypePostgres:
		if c.Database.Host == "" {
			c.Database.Host = "localhost"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case database.TypeSQLite:
		if c.Database.Path == "" {
			c.Database.Path = DefaultSQLitePath
		}
	}

	if c.Resolver == nil {
		c.Resolver = &Resolver{}
	}
	if c.Resolver.CacheTTLSeconds == 0 {
		c.Resolver.CacheTTLSeconds = DefaultCacheTTLSeconds
	}
	if c.Resolver.NegativeCacheTTLSeconds == 0 {
		c.Resolver.NegativeCacheTTLSeconds = DefaultNegativeCacheTTLSeconds
	}
	if c.Resolver.BatchMaxIDs == 0 {
		c.Resolver.BatchMaxIDs = DefaultBatchMaxIDs
	}

	if c.Listener == nil {
		c.Listener = &Listener{}
	}
	if c.Listener.Channel == "" {
		c.Listener.Channel = DefaultChannel
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In("standard", "json")),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(c.Database,
		validation.Field(&c.Database.Driver,
			validation.Required,
			validation.In(database.TypePostgres, database.TypeSQLite)),
	); err != nil {
		return err
	}

	switch c.Database.Driver {
	case database.TypePostgres:
		if err := validation.ValidateStruct(c.Database,
			validation.Field(&c.Database.User, validation.Required),
			validation.Field(&c.Database.DBName, validation.Required),
		); err != nil {
			return err
		}
	case database.TypeSQLite:
		if err := validation.ValidateStruct(c.Database,
			validation.Field(&c.Database.Path, validation.Required),
		); err != nil {
			return err
		}
	}

	if c.Listener.Enabled && c.Database.Driver != database.TypePostgres {
		return fmt.Errorf("listener requires the postgres driver")
	}

	return validation.ValidateStruct(c.Resolver,
		validation.Field(&c.Resolver.CacheTTLSeconds, validation.Min(1)),
		validation.Field(&c.Resolver.NegativeCacheTTLSeconds, validation.Min(1)),
		validation.Field(&c.Resolver.BatchMaxIDs, validation.Min(1)),
	)
}

// DatabaseConfig converts the database block into connection settings.
func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		Type:     c.Database.Driver,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		DBName:   c.Database.DBName,
		SSLMode:  c.Database.SSLMode,
		Path:     c.Database.Path,
	}
}

// CacheTTL returns the node cache TTL as a duration.
func (r *Resolver) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

// NegativeCacheTTL returns the miss cache TTL as a duration.
func (r *Resolver) NegativeCacheTTL() time.Duration {
	return time.Duration(r.NegativeCacheTTLSeconds) * time.Second
}
