// Package config handles loading and managing photogrid configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
)

// Duration is a time.Duration that decodes from strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnsplashConfig holds Unsplash API client configuration.
type UnsplashConfig struct {
	AccessKey    string   `toml:"access_key"`
	BaseURL      string   `toml:"base_url"`
	PerPage      int      `toml:"per_page"`       // photos per page (default: 100)
	RateLimitQPS float64  `toml:"rate_limit_qps"` // outgoing requests per second, 0 = unlimited
	Timeout      Duration `toml:"timeout"`        // per HTTP request
}

// GridConfig holds grid geometry and fetch settings.
type GridConfig struct {
	ColumnWidth  int      `toml:"column_width"`  // minimum column width in cells
	RowHeight    int      `toml:"row_height"`    // row height in lines
	FetchTimeout Duration `toml:"fetch_timeout"` // 0 disables
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	APIPort       int      `toml:"api_port"`       // HTTP server port (default: 8080)
	BindAddr      string   `toml:"bind_addr"`      // default: 127.0.0.1
	APIKey        string   `toml:"api_key"`        // API authentication key
	CORSOrigins   []string `toml:"cors_origins"`   // allowed origins, empty disables CORS
	SessionTTL    Duration `toml:"session_ttl"`    // idle grid sessions are evicted after this
	SweepSchedule string   `toml:"sweep_schedule"` // cron spec for the idle-session sweep
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.BindAddr, strconv.Itoa(s.APIPort))
}

// IsLoopback reports whether the server binds only to a loopback address.
func (s ServerConfig) IsLoopback() bool {
	if s.BindAddr == "localhost" {
		return true
	}
	ip := net.ParseIP(s.BindAddr)
	return ip != nil && ip.IsLoopback()
}

// ValidateSecure refuses to expose the API beyond loopback without a key.
func (s ServerConfig) ValidateSecure() error {
	if !s.IsLoopback() && s.APIKey == "" {
		return fmt.Errorf("refusing to bind to %s without authentication\n\n"+
			"Set [server] api_key in config.toml, or bind to 127.0.0.1", s.BindAddr)
	}
	return nil
}

// Config represents the photogrid configuration.
type Config struct {
	Unsplash UnsplashConfig `toml:"unsplash"`
	Grid     GridConfig     `toml:"grid"`
	Server   ServerConfig   `toml:"server"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	configPath string
}

// DefaultHome returns the default photogrid home directory.
// Respects PHOTOGRID_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("PHOTOGRID_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".photogrid"
	}
	return filepath.Join(home, ".photogrid")
}

// Defaults returns the configuration used when no file is present.
func Defaults(homeDir string) *Config {
	return &Config{
		HomeDir: homeDir,
		Unsplash: UnsplashConfig{
			BaseURL:      "https://api.unsplash.com",
			PerPage:      100,
			RateLimitQPS: 1.0,
			Timeout:      Duration{30 * time.Second},
		},
		Grid: GridConfig{
			ColumnWidth:  32,
			RowHeight:    4,
			FetchTimeout: Duration{30 * time.Second},
		},
		Server: ServerConfig{
			APIPort:       8080,
			BindAddr:      "127.0.0.1",
			SessionTTL:    Duration{30 * time.Minute},
			SweepSchedule: "@every 5m",
		},
	}
}

// Load reads the configuration from path. If path is empty, it uses
// config.toml in homeDir; if homeDir is empty, DefaultHome. A missing file
// is not an error. UNSPLASH_ACCESS_KEY overrides the file's access key.
func Load(path, homeDir string) (*Config, error) {
	if homeDir == "" {
		homeDir = DefaultHome()
	} else {
		homeDir = expandPath(homeDir)
	}
	explicit := path != ""
	if !explicit {
		path = filepath.Join(homeDir, "config.toml")
	} else {
		path = expandPath(path)
	}

	cfg := Defaults(homeDir)
	cfg.configPath = path

	// Config file is optional - use defaults if not present, unless the
	// caller named it explicitly.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	} else {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decode config: unknown key %q", undecoded[0].String())
		}
	}

	if key := os.Getenv("UNSPLASH_ACCESS_KEY"); key != "" {
		cfg.Unsplash.AccessKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Unsplash.PerPage <= 0 {
		return fmt.Errorf("unsplash.per_page must be positive, got %d", c.Unsplash.PerPage)
	}
	if c.Unsplash.RateLimitQPS < 0 {
		return fmt.Errorf("unsplash.rate_limit_qps must not be negative, got %v", c.Unsplash.RateLimitQPS)
	}
	if c.Grid.ColumnWidth <= 0 || c.Grid.RowHeight <= 0 {
		return fmt.Errorf("grid.column_width and grid.row_height must be positive, got %d and %d",
			c.Grid.ColumnWidth, c.Grid.RowHeight)
	}
	if c.Grid.FetchTimeout.Duration < 0 {
		return fmt.Errorf("grid.fetch_timeout must not be negative")
	}
	if c.Server.APIPort < 0 || c.Server.APIPort > 65535 {
		return fmt.Errorf("server.api_port out of range: %d", c.Server.APIPort)
	}
	if c.Server.SessionTTL.Duration <= 0 {
		return fmt.Errorf("server.session_ttl must be positive")
	}
	if c.Server.SweepSchedule != "" {
		if _, err := cron.ParseStandard(c.Server.SweepSchedule); err != nil {
			return fmt.Errorf("server.sweep_schedule: %w", err)
		}
	}
	return nil
}

// ConfigFilePath returns the config file Load read, or would have read.
func (c *Config) ConfigFilePath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return filepath.Join(c.HomeDir, "config.toml")
}

// LogPath returns the path of the TUI debug log.
func (c *Config) LogPath() string {
	return filepath.Join(c.HomeDir, "photogrid.log")
}

// EnsureHomeDir creates the home directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return os.MkdirAll(c.HomeDir, 0700)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || (len(path) > 1 && path[0] == '~' && path[1] == filepath.Separator) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
