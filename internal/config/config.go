package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the server-side configuration, loaded from a YAML file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	// Path is the sqlite database file, or ":memory:" for an ephemeral
	// database.
	Path string `yaml:"path"`

	// WAL enables write-ahead logging.
	WAL bool `yaml:"wal"`

	// BusyTimeoutMs is the sqlite busy timeout in milliseconds.
	BusyTimeoutMs int `yaml:"busy_timeout_ms"`

	// ForeignKeys enables foreign key enforcement.
	ForeignKeys bool `yaml:"foreign_keys"`
}

type AuthConfig struct {
	// APIKeyHashes are hex-encoded sha256 digests of the shared API keys
	// accepted on agent routes.
	APIKeyHashes []string `yaml:"api_key_hashes"`

	// AdminSigningKey signs and verifies the HMAC JWTs required on admin
	// routes.
	AdminSigningKey string `yaml:"admin_signing_key"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	NoColor bool   `yaml:"no_color"`
}

// Load reads and parses the configuration file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "arbiter.db"
	}
	if c.Database.BusyTimeoutMs == 0 {
		c.Database.BusyTimeoutMs = 5000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

func (c *Config) Validate() error {
	if c.Auth.AdminSigningKey == "" {
		return fmt.Errorf("auth.admin_signing_key is required")
	}
	for _, h := range c.Auth.APIKeyHashes {
		if _, err := hex.DecodeString(h); err != nil || len(h) != sha256.Size*2 {
			return fmt.Errorf("auth.api_key_hashes entry %q is not a hex sha256 digest", h)
		}
	}
	return nil
}

// HashAPIKey returns the hex sha256 digest of a raw API key, the form
// stored in the config file.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// AcceptsAPIKey reports whether the raw key matches any configured hash.
func (a AuthConfig) AcceptsAPIKey(raw string) bool {
	if raw == "" {
		return false
	}
	hashed := HashAPIKey(raw)
	for _, h := range a.APIKeyHashes {
		if h == hashed {
			return true
		}
	}
	return false
}
