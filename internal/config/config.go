// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/jsonrelay/config.toml",
	"configs/config.toml",
}

// portEnvPrefix introduces per-discriminator upstream ports, e.g. SERVER_PORT_TWITTER=8001.
const portEnvPrefix = "SERVER_PORT_"

// defaultAllowedOrigins is used when the config does not list any origins.
var defaultAllowedOrigins = []string{
	"https://ai.docal.pro",
	"http://localhost:3000",
}

// reservedSegments are first path segments served by the relay itself.
var reservedSegments = []string{"healthz", "proxy"}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config    string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host      string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port      int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	ServerURL string `kong:"name='server-url',help='Upstream scheme://host without port (overrides config).',env='SERVER_URL'"`
	LogLevel  string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Upstream UpstreamConfig `toml:"upstream"`
	CORS     CORSConfig     `toml:"cors"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (8000); TOML cannot distinguish 0 from unset
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// UpstreamConfig holds the upstream backend and connection settings.
type UpstreamConfig struct {
	ServerURL        string         `toml:"server_url"`
	Ports            map[string]int `toml:"ports"`
	TimeoutSeconds   int            `toml:"timeout_seconds"`
	IdleConnections  int            `toml:"idle_connections"`
	MaxResponseBytes int64          `toml:"max_response_bytes"`
	QuerySegment     bool           `toml:"query_segment"`
}

// CORSConfig holds the origin allow-list.
type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
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

// Load reads the TOML config file and applies environment and CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/jsonrelay/config.toml then configs/config.toml; if neither exists the
// configuration comes from the environment alone.
func Load(cli *CLI) (*Config, error) {
	return load(cli, os.Environ())
}

func load(cli *CLI, environ []string) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}

	var cfg Config
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

	if err := cfg.applyEnv(environ); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}
	cfg.applyCLI(cli)
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.Upstream.ServerURL = strings.TrimSuffix(cfg.Upstream.ServerURL, "/")
	return &cfg, nil
}

// applyEnv reads SERVER_PORT_<DISCRIMINATOR> variables. The discriminator is
// the lower-cased suffix; an env value replaces a port from the file.
func (c *Config) applyEnv(environ []string) error {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, portEnvPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, portEnvPrefix))
		if name == "" {
			continue
		}
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: not a port number: %q", key, value)
		}
		if c.Upstream.Ports == nil {
			c.Upstream.Ports = make(map[string]int)
		}
		c.Upstream.Ports[name] = port
	}
	return nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.ServerURL != "" {
		c.Upstream.ServerURL = cli.ServerURL
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	// Upstream URL: required, scheme and host only. Ports come per discriminator.
	if c.Upstream.ServerURL == "" {
		return fmt.Errorf("upstream.server_url is required (or set SERVER_URL)")
	}
	u, err := url.Parse(c.Upstream.ServerURL)
	if err != nil {
		return fmt.Errorf("upstream.server_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream.server_url must use http or https; got %q", c.Upstream.ServerURL)
	}
	if u.Host == "" {
		return fmt.Errorf("upstream.server_url has no host; got %q", c.Upstream.ServerURL)
	}
	if u.Port() != "" {
		return fmt.Errorf("upstream.server_url must not carry a port; use upstream.ports; got %q", c.Upstream.ServerURL)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("upstream.server_url must not carry a path or query; got %q", c.Upstream.ServerURL)
	}

	if len(c.Upstream.Ports) == 0 {
		return fmt.Errorf("upstream.ports must define at least one discriminator (or set %s<NAME>)", portEnvPrefix)
	}
	reserved := c.reservedSegments()
	for _, name := range c.Discriminators() {
		if name == "" || strings.Contains(name, "/") {
			return fmt.Errorf("upstream.ports: invalid discriminator %q", name)
		}
		for _, r := range reserved {
			if name == r {
				return fmt.Errorf("upstream.ports: discriminator %q conflicts with reserved route /%s", name, r)
			}
		}
		if p := c.Upstream.Ports[name]; p < 1 || p > 65535 {
			return fmt.Errorf("upstream.ports.%s must be 1–65535; got %d", name, p)
		}
	}

	for _, origin := range c.CORS.AllowedOrigins {
		if origin == "" || origin == "*" {
			return fmt.Errorf("cors.allowed_origins entries must be exact origins; got %q", origin)
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Upstream.MaxResponseBytes < 0 {
		return fmt.Errorf("upstream.max_response_bytes must be non-negative; got %d", c.Upstream.MaxResponseBytes)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	if c.Metrics.Enabled {
		p := c.Metrics.Path
		if p[0] != '/' || len(p) == 1 {
			return fmt.Errorf("metrics.path must start with '/' and name a route; got %q", p)
		}
		for _, r := range reservedSegments {
			if firstSegment(p) == r {
				return fmt.Errorf("metrics.path %q conflicts with reserved route /%s", p, r)
			}
		}
	}

	return nil
}

// reservedSegments returns the first path segments a discriminator may not use.
func (c *Config) reservedSegments() []string {
	out := append([]string(nil), reservedSegments...)
	if c.Metrics.Enabled {
		out = append(out, firstSegment(c.Metrics.Path))
	}
	return out
}

func firstSegment(p string) string {
	seg, _, _ := strings.Cut(strings.TrimPrefix(p, "/"), "/")
	return seg
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields (Port, BodyMaxBytes, etc.), zero means "unset" because TOML
// cannot distinguish between an explicit 0 and an omitted key.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 10 * 1024 * 1024 // 10 MB
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 120
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Upstream.MaxResponseBytes == 0 {
		c.Upstream.MaxResponseBytes = 10 * 1024 * 1024
	}
	if c.CORS.AllowedOrigins == nil {
		c.CORS.AllowedOrigins = append([]string(nil), defaultAllowedOrigins...)
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

// Discriminators returns the configured discriminators in sorted order.
func (c *Config) Discriminators() []string {
	names := make([]string, 0, len(c.Upstream.Ports))
	for name := range c.Upstream.Ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// findConfig returns the first config path that exists, or empty string.
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

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
