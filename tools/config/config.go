package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Config holds all tabvar-studio configuration.
type Config struct {
	// Where generated .tex and .png files go
	OutputDir string `yaml:"output_dir"`

	// Preview backend: "local" (pdflatex + pdftoppm) or "remote"
	Backend string `yaml:"backend"`

	Toolchain ToolchainConfig `yaml:"toolchain"`
	Remote    RemoteConfig    `yaml:"remote"`
	Preview   PreviewConfig   `yaml:"preview"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ToolchainConfig locates the local LaTeX tools.
type ToolchainConfig struct {
	PDFLatex string `yaml:"pdflatex"`
	PDFToPPM string `yaml:"pdftoppm"`
}

// RemoteConfig configures the remote compilation API.
type RemoteConfig struct {
	URL      string `yaml:"url"`
	Compiler string `yaml:"compiler"`
	Timeout  string `yaml:"timeout"`
	Retries  int    `yaml:"retries"`
}

// PreviewConfig tunes rendering.
type PreviewConfig struct {
	DPI           int    `yaml:"dpi"`
	MaxWidth      int    `yaml:"max_width"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	Timeout       string `yaml:"timeout"`
}

// ServerConfig configures the HTTP proxy.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputDir: "./output",
		Backend:   BackendLocal,

		Toolchain: ToolchainConfig{
			PDFLatex: "pdflatex",
			PDFToPPM: "pdftoppm",
		},

		Remote: RemoteConfig{
			URL:      "https://latex.ytotech.com/builds/sync",
			Compiler: "pdflatex",
			Timeout:  "60s",
			Retries:  3,
		},

		Preview: PreviewConfig{
			DPI:           150,
			MaxWidth:      1600,
			MaxConcurrent: 2,
			Timeout:       "30s",
		},

		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 1 << 20,
			ReadTimeout:  "10s",
			WriteTimeout: "90s",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file on top of the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("TABVAR_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if port := os.Getenv("PORT"); port != "" && os.Getenv("TABVAR_ADDR") == "" {
		c.Server.Addr = ":" + port
	}
	if backend := os.Getenv("TABVAR_BACKEND"); backend != "" {
		c.Backend = backend
	}
	if url := os.Getenv("TABVAR_REMOTE_URL"); url != "" {
		c.Remote.URL = url
	}
	if bin := os.Getenv("TABVAR_PDFLATEX"); bin != "" {
		c.Toolchain.PDFLatex = bin
	}
	if bin := os.Getenv("TABVAR_PDFTOPPM"); bin != "" {
		c.Toolchain.PDFToPPM = bin
	}
	if dir := os.Getenv("TABVAR_OUTPUT_DIR"); dir != "" {
		c.OutputDir = dir
	}
	if v := os.Getenv("TABVAR_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Preview.MaxConcurrent = n
		}
	}
}

// GetRemoteTimeout returns the remote API timeout.
func (c *Config) GetRemoteTimeout() time.Duration {
	return parseDuration(c.Remote.Timeout, 60*time.Second)
}

// GetPreviewTimeout returns the per-render timeout.
func (c *Config) GetPreviewTimeout() time.Duration {
	return parseDuration(c.Preview.Timeout, 30*time.Second)
}

// GetReadTimeout returns the server read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 10*time.Second)
}

// GetWriteTimeout returns the server write timeout.
func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 90*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendLocal, BackendRemote:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want %q or %q)", c.Backend, BackendLocal, BackendRemote))
	}
	if c.Backend == BackendRemote && c.Remote.URL == "" {
		errs = append(errs, errors.New("remote backend requires remote.url"))
	}
	if c.Toolchain.PDFToPPM == "" {
		errs = append(errs, errors.New("toolchain.pdftoppm is required for previews"))
	}
	if c.Preview.DPI < 0 || c.Preview.MaxWidth < 0 {
		errs = append(errs, errors.New("preview.dpi and preview.max_width must not be negative"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	for name, s := range map[string]string{
		"remote.timeout":       c.Remote.Timeout,
		"preview.timeout":      c.Preview.Timeout,
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
	} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
