package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvDBPath   = "TRADEBOOK_DB"
	EnvAddr     = "TRADEBOOK_ADDR"
	EnvLogLevel = "TRADEBOOK_LOG_LEVEL"
	EnvCurrency = "TRADEBOOK_CURRENCY"
	EnvEnforce  = "TRADEBOOK_ENFORCE_INSTRUMENTS"
)

// Config represents the complete tradebook configuration
type Config struct {
	Database DatabaseConfig `json:"database" yaml:"database"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Auth     AuthConfig     `json:"auth" yaml:"auth"`
	Ledger   LedgerConfig   `json:"ledger" yaml:"ledger"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// DatabaseConfig locates the SQLite ledger
type DatabaseConfig struct {
	Path string `json:"path" yaml:"path"`
}

// ServerConfig contains HTTP API parameters
type ServerConfig struct {
	Addr       string  `json:"addr" yaml:"addr"`
	LoginRate  float64 `json:"login_rate" yaml:"login_rate"` // login attempts per second
	LoginBurst int     `json:"login_burst" yaml:"login_burst"`

	// TrustedProxies lists addresses or CIDRs whose X-Forwarded-For is
	// honored. Empty means the peer address is always the client.
	TrustedProxies []string `json:"trusted_proxies,omitempty" yaml:"trusted_proxies,omitempty"`
}

// AuthConfig contains credential and session parameters
type AuthConfig struct {
	BcryptCost int    `json:"bcrypt_cost,omitempty" yaml:"bcrypt_cost,omitempty"`
	SessionTTL string `json:"session_ttl" yaml:"session_ttl"` // e.g. "12h"
}

// ParseSessionTTL converts the TTL string to time.Duration
func (a AuthConfig) ParseSessionTTL() (time.Duration, error) {
	if a.SessionTTL == "" {
		return 0, nil
	}
	return time.ParseDuration(a.SessionTTL)
}

// LedgerConfig contains trade recording rules
type LedgerConfig struct {
	Currency           string `json:"currency" yaml:"currency"`
	EnforceInstruments bool   `json:"enforce_instruments" yaml:"enforce_instruments"`
}

// LogConfig contains logging parameters
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// LoadFromFile loads configuration from a file (JSON or YAML)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Load reads path when given, otherwise starts from Default, then applies
// environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		c, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none)
// into the process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvCurrency); v != "" {
		c.Ledger.Currency = strings.ToUpper(v)
	}
	if v := getenv(EnvEnforce); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvEnforce, err)
		}
		c.Ledger.EnforceInstruments = b
	}
	return nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.LoginRate <= 0 {
		return fmt.Errorf("server.login_rate must be positive")
	}
	if c.Server.LoginBurst <= 0 {
		return fmt.Errorf("server.login_burst must be positive")
	}
	for _, p := range c.Server.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("server.trusted_proxies: invalid address %q", p)
			}
		}
	}
	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31")
	}
	ttl, err := c.Auth.ParseSessionTTL()
	if err != nil {
		return fmt.Errorf("auth.session_ttl: %w", err)
	}
	if ttl < 0 {
		return fmt.Errorf("auth.session_ttl must not be negative")
	}
	if c.Ledger.Currency == "" {
		return fmt.Errorf("ledger.currency is required")
	}
	if money.GetCurrency(c.Ledger.Currency) == nil {
		return fmt.Errorf("unknown currency: %s", c.Ledger.Currency)
	}
	if _, err := logrus.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "./tradebook.sqlite",
		},
		Server: ServerConfig{
			Addr:       ":8080",
			LoginRate:  1,
			LoginBurst: 5,
		},
		Auth: AuthConfig{
			SessionTTL: "12h",
		},
		Ledger: LedgerConfig{
			Currency: "EUR",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
