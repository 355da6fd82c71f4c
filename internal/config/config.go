// Package config loads astro-tools settings from YAML with environment
// overrides. A missing file is not an error; the defaults apply.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/astro-tools-mcp/internal/detection"
	"github.com/ironsheep/astro-tools-mcp/internal/report"
	"github.com/ironsheep/astro-tools-mcp/internal/source"
)

// Environment variables read by ApplyEnv.
const (
	EnvConfigPath = "ASTRO_CONFIG"
	EnvAPIKey     = "ASTRO_NASA_API_KEY"
	EnvLogLevel   = "ASTRO_LOG_LEVEL"
	EnvDataDir    = "ASTRO_DATA_DIR"
)

// DefaultPath is the config file read when neither a flag nor
// ASTRO_CONFIG names one.
const DefaultPath = "astro-tools.yaml"

// Config is the complete application configuration.
type Config struct {
	// DataDir is the root for raw downloads, processed output and the catalog.
	DataDir string `yaml:"data_dir"`

	SDSS struct {
		BaseURL string  `yaml:"base_url"`
		Scale   float64 `yaml:"scale"`
		Width   int     `yaml:"width"`
		Height  int     `yaml:"height"`
	} `yaml:"sdss"`

	NASA struct {
		BaseURL string `yaml:"base_url"`
		// APIKey is normally supplied through ASTRO_NASA_API_KEY.
		APIKey string `yaml:"api_key"`
	} `yaml:"nasa"`

	HTTP struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"http"`

	Detection detection.Options      `yaml:"detection"`
	Frame     detection.FrameOptions `yaml:"frame"`

	Report struct {
		report.Policy `yaml:",inline"`
		Style         report.Style `yaml:"style"`
		PanelHeight   int          `yaml:"panel_height"`
	} `yaml:"report"`

	Catalog struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"catalog"`

	Watch struct {
		Extensions []string `yaml:"extensions"`
		// Settle is how long a new file must stay unchanged before it is read.
		Settle time.Duration `yaml:"settle"`
	} `yaml:"watch"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.DataDir = "data"

	cfg.SDSS.BaseURL = source.DefaultSDSSURL
	cfg.SDSS.Scale = source.DefaultSDSSScale
	cfg.SDSS.Width = source.DefaultSDSSSize
	cfg.SDSS.Height = source.DefaultSDSSSize

	cfg.NASA.BaseURL = source.DefaultAPODURL
	cfg.HTTP.Timeout = source.DefaultTimeout

	cfg.Detection = detection.DefaultOptions()
	cfg.Frame = detection.DefaultFrameOptions()

	cfg.Report.Policy = report.DefaultPolicy()
	cfg.Report.Style = report.DefaultStyle()
	cfg.Report.PanelHeight = report.DefaultPanelHeight

	cfg.Catalog.Enabled = true

	cfg.Watch.Extensions = []string{".jpg", ".jpeg", ".png", ".gif"}
	cfg.Watch.Settle = 500 * time.Millisecond

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return cfg
}

// Load reads the YAML file at path over the defaults and then applies the
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolvePath picks the config file: the explicit flag value, then
// ASTRO_CONFIG, then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultPath
}

// ApplyEnv overrides settings from the environment. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAPIKey); v != "" {
		c.NASA.APIKey = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.SDSS.Scale <= 0 {
		return fmt.Errorf("sdss.scale must be positive, got %v", c.SDSS.Scale)
	}
	if c.SDSS.Width <= 0 || c.SDSS.Height <= 0 {
		return fmt.Errorf("sdss size must be positive, got %dx%d", c.SDSS.Width, c.SDSS.Height)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative, got %v", c.HTTP.Timeout)
	}
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if c.Frame.BlurKernel < 1 || c.Frame.BlurKernel%2 == 0 {
		return fmt.Errorf("frame.blur_kernel must be odd and positive, got %d", c.Frame.BlurKernel)
	}
	if c.Frame.CannyLow < 0 || c.Frame.CannyHigh < c.Frame.CannyLow {
		return fmt.Errorf("frame canny thresholds invalid: low=%v high=%v", c.Frame.CannyLow, c.Frame.CannyHigh)
	}
	if b := c.Frame.Bilateral; b.Enabled && (b.Diameter < 1 || b.SigmaColor <= 0 || b.SigmaSpace <= 0) {
		return fmt.Errorf("frame.bilateral invalid: diameter=%d sigma_color=%v sigma_space=%v", b.Diameter, b.SigmaColor, b.SigmaSpace)
	}
	if err := c.Report.Policy.Validate(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if _, err := report.ParseColor(c.Report.Style.Color); err != nil {
		return fmt.Errorf("report.style: %w", err)
	}
	if c.Report.Style.Grid < 0 {
		return fmt.Errorf("report.style.grid must be non-negative, got %d", c.Report.Style.Grid)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// RawDir holds SDSS downloads.
func (c *Config) RawDir() string { return filepath.Join(c.DataDir, "raw") }

// NASADir holds APOD downloads.
func (c *Config) NASADir() string { return filepath.Join(c.DataDir, "nasa") }

// ProcessedDir receives pipeline output.
func (c *Config) ProcessedDir() string { return filepath.Join(c.DataDir, "processed") }

// CatalogPath is the SQLite file, defaulting to DataDir/catalog.db.
func (c *Config) CatalogPath() string {
	if c.Catalog.Path != "" {
		return c.Catalog.Path
	}
	return filepath.Join(c.DataDir, "catalog.db")
}

// SkyKey applies the configured cut-out geometry to a position.
func (c *Config) SkyKey(ra, dec float64) source.Key {
	return source.Key{RA: ra, Dec: dec, Scale: c.SDSS.Scale, Width: c.SDSS.Width, Height: c.SDSS.Height}
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
