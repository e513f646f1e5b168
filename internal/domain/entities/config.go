package entities

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Sites     SitesConfig     `toml:"sites"`
	Tool      ToolConfig      `toml:"tool"`
	Preview   PreviewConfig   `toml:"preview"`
	Watcher   WatcherConfig   `toml:"watcher"`
	Generator GeneratorConfig `toml:"generator"`
	Logging   LoggingConfig   `toml:"logging"`
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Sites.Validate(); err != nil {
		return fmt.Errorf("sites config: %w", err)
	}
	if err := c.Tool.Validate(); err != nil {
		return fmt.Errorf("tool config: %w", err)
	}
	if err := c.Preview.Validate(); err != nil {
		return fmt.Errorf("preview config: %w", err)
	}
	if err := c.Watcher.Validate(); err != nil {
		return fmt.Errorf("watcher config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	ReadTimeout     int      `toml:"read_timeout"`
	WriteTimeout    int      `toml:"write_timeout"`
	ShutdownTimeout int      `toml:"shutdown_timeout"`
	Environment     string   `toml:"environment"`
	CORSOrigins     []string `toml:"cors_origins"`
}

// Validate validates the server configuration
func (s *ServerConfig) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", s.Port)
	}
	if s.Host != "" && s.Host != "localhost" {
		if net.ParseIP(s.Host) == nil {
			return fmt.Errorf("invalid host: %s", s.Host)
		}
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.ShutdownTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode
func (s *ServerConfig) IsDevelopment() bool {
	return s.Environment == "" || s.Environment == "development"
}

// SitesConfig controls where site storage directories live
type SitesConfig struct {
	RootDir string `toml:"root_dir"`
}

// Validate validates the sites configuration
func (s *SitesConfig) Validate() error {
	if strings.TrimSpace(s.RootDir) == "" {
		return errors.New("sites root directory is required")
	}
	if !filepath.IsAbs(s.RootDir) {
		if _, err := filepath.Abs(s.RootDir); err != nil {
			return fmt.Errorf("resolving sites root: %w", err)
		}
	}
	return nil
}

// ToolConfig describes the external build/serve tool invocation
type ToolConfig struct {
	Command        string   `toml:"command"`
	BuildArgs      []string `toml:"build_args"`
	ServeArgs      []string `toml:"serve_args"`
	BuildTimeoutMs int      `toml:"build_timeout_ms"`
}

// Validate validates the tool configuration
func (t *ToolConfig) Validate() error {
	if strings.TrimSpace(t.Command) == "" {
		return errors.New("tool command is required")
	}
	if t.BuildTimeoutMs < 0 {
		return errors.New("build timeout must not be negative")
	}
	return nil
}

// BuildTimeout returns the build deadline as a duration
func (t *ToolConfig) BuildTimeout() time.Duration {
	if t.BuildTimeoutMs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(t.BuildTimeoutMs) * time.Millisecond
}

// PreviewConfig controls preview port allocation
type PreviewConfig struct {
	BasePort int `toml:"base_port"`
	MinPort  int `toml:"min_port"`
	MaxPort  int `toml:"max_port"`
}

// Validate validates the preview configuration
func (p *PreviewConfig) Validate() error {
	if p.MinPort <= 0 || p.MaxPort > 65535 || p.MinPort > p.MaxPort {
		return fmt.Errorf("invalid preview port range %d-%d", p.MinPort, p.MaxPort)
	}
	if p.BasePort < p.MinPort || p.BasePort > p.MaxPort {
		return fmt.Errorf("base port %d outside range %d-%d", p.BasePort, p.MinPort, p.MaxPort)
	}
	return nil
}

// InRange reports whether a requested port is inside the configured range
func (p *PreviewConfig) InRange(port int) bool {
	return port >= p.MinPort && port <= p.MaxPort
}

// WatcherConfig contains file watcher configuration
type WatcherConfig struct {
	IntervalMs int `toml:"interval_ms"`
	DebounceMs int `toml:"debounce_ms"`
}

// Validate validates the watcher configuration
func (w *WatcherConfig) Validate() error {
	if w.IntervalMs <= 0 {
		return errors.New("watcher interval must be positive")
	}
	if w.DebounceMs < 0 {
		return errors.New("watcher debounce must not be negative")
	}
	return nil
}

// Interval returns the polling interval as a duration
func (w *WatcherConfig) Interval() time.Duration {
	return time.Duration(w.IntervalMs) * time.Millisecond
}

// Debounce returns the per-path debounce window as a duration
func (w *WatcherConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// GeneratorConfig configures the generative content collaborator
type GeneratorConfig struct {
	Endpoint   string `toml:"endpoint"`
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	TimeoutMs  int    `toml:"timeout_ms"`
	MaxRetries int    `toml:"max_retries"`
}

// Timeout returns the per-attempt generation deadline
func (g *GeneratorConfig) Timeout() time.Duration {
	if g.TimeoutMs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(g.TimeoutMs) * time.Millisecond
}

// Retries returns the bounded attempt count for generation
func (g *GeneratorConfig) Retries() int {
	if g.MaxRetries <= 0 {
		return 3
	}
	return g.MaxRetries
}

// LogLevel represents logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level   string `toml:"level"`
	Verbose bool   `toml:"verbose"`
	File    string `toml:"file"`
}

// Validate validates the logging configuration
func (l *LoggingConfig) Validate() error {
	switch LogLevel(l.Level) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s", l.Level)
	}
	if l.File != "" {
		dir := filepath.Dir(l.File)
		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			return fmt.Errorf("log file directory is not a directory: %s", dir)
		}
	}
	return nil
}

// GetLevel returns the configured level, defaulting to info
func (l *LoggingConfig) GetLevel() LogLevel {
	if l.Level == "" {
		return LogLevelInfo
	}
	return LogLevel(l.Level)
}
