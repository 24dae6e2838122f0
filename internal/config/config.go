// Package config handles command-line arguments and the optional TOML
// settings file.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// AdminPrefix is the path prefix reserved for the proxy's own endpoints.
// Every other path is routed through the shadow router.
const AdminPrefix = "/_shadow"

// configSearchPaths lists paths checked in order when no explicit settings file is given.
var configSearchPaths = []string{
	"/etc/shadow-proxy/config.toml",
	"configs/config.toml",
}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Addr     string `kong:"arg,optional,default='127.0.0.1:3000',help='Listen address (host:port).'"`
	Routes   string `kong:"arg,optional,default='config.txt',help='Path to the route table file.'"`
	Config   string `kong:"short='c',help='Path to TOML settings file.',env='CONFIG_PATH'"`
	LogLevel string `kong:"help='Log level: debug|info|warn|error (overrides settings).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Upstream UpstreamConfig `toml:"upstream"`
	Routes   RoutesConfig   `toml:"routes"`
	Compare  CompareConfig  `toml:"compare"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // resolved settings file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string          `toml:"-"` // only settable from the command line
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// UpstreamConfig holds outbound connection settings shared by all destinations.
type UpstreamConfig struct {
	TimeoutMS        int   `toml:"timeout_ms"`
	IdleConnections  int   `toml:"idle_connections"`
	ResponseMaxBytes int64 `toml:"response_max_bytes"`
}

// Timeout returns the per-destination call timeout.
func (u *UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutMS) * time.Millisecond
}

// RoutesConfig holds route table settings.
type RoutesConfig struct {
	File  string `toml:"-"` // only settable from the command line
	Watch bool   `toml:"watch"`
}

// Comparison modes.
const (
	CompareBytes = "bytes"
	CompareJSON  = "json"
)

// CompareConfig controls how shadow bodies are compared with the primary's.
type CompareConfig struct {
	Mode         string `toml:"mode"`
	DiffMaxBytes int    `toml:"diff_max_bytes"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the optional TOML settings file and applies CLI arguments.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/shadow-proxy/config.toml then configs/config.toml. A missing settings
// file is not an error: defaults apply.
func Load(cli *CLI) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI copies positional arguments and overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	c.Server.Addr = cli.Addr
	c.Routes.File = cli.Routes
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	if c.Server.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
			return fmt.Errorf("listen address %q is not host:port: %w", c.Server.Addr, err)
		}
	}

	// Numeric bounds.
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutMS < 0 {
		return fmt.Errorf("upstream.timeout_ms must be non-negative; got %d", c.Upstream.TimeoutMS)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Upstream.ResponseMaxBytes < 0 {
		return fmt.Errorf("upstream.response_max_bytes must be non-negative; got %d", c.Upstream.ResponseMaxBytes)
	}
	if c.Compare.DiffMaxBytes < 0 {
		return fmt.Errorf("compare.diff_max_bytes must be non-negative; got %d", c.Compare.DiffMaxBytes)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	switch strings.ToLower(c.Compare.Mode) {
	case CompareBytes, CompareJSON, "":
		// valid
	default:
		return fmt.Errorf("compare.mode must be one of: bytes, json; got %q", c.Compare.Mode)
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		if p == AdminPrefix || strings.HasPrefix(p, AdminPrefix+"/") {
			return fmt.Errorf("metrics.path %q conflicts with reserved prefix %q", p, AdminPrefix)
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields, zero means "unset" because TOML cannot distinguish
// between an explicit 0 and an omitted key.
func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:3000"
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 10 * 1024 * 1024 // 10 MB
	}
	if c.Upstream.TimeoutMS == 0 {
		c.Upstream.TimeoutMS = 5000
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Upstream.ResponseMaxBytes == 0 {
		c.Upstream.ResponseMaxBytes = 10 * 1024 * 1024
	}
	if c.Routes.File == "" {
		c.Routes.File = "config.txt"
	}
	if c.Compare.Mode == "" {
		c.Compare.Mode = CompareBytes
	}
	c.Compare.Mode = strings.ToLower(c.Compare.Mode)
	if c.Compare.DiffMaxBytes == 0 {
		c.Compare.DiffMaxBytes = 2048
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first settings path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FilePath returns the settings file that was loaded, or empty string when
// running on defaults.
func (c *Config) FilePath() string {
	return c.filePath
}

// WarnPermissions logs a warning if the settings file is writable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o022 != 0 {
		logger.Warn("settings file is writable by group/others; consider chmod 644",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
