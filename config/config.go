package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/gg"
	"gopkg.in/yaml.v3"
)

// Config is the showcase configuration shared by the thumbnailer and the viewer.
type Config struct {
	LogLevel string         `yaml:"log_level"` // debug, info, warn, error
	API      APIConfig      `yaml:"api"`
	Renderer RendererConfig `yaml:"renderer"`
	Queue    QueueConfig    `yaml:"queue"`
	Cache    CacheConfig    `yaml:"cache"`
	Batch    BatchConfig    `yaml:"batch"`
	Viewer   ViewerConfig   `yaml:"viewer"`
}

// APIConfig locates the catalog API and asset store.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// RendererConfig configures thumbnail renderers.
type RendererConfig struct {
	Width         int    `yaml:"width"`
	Height        int    `yaml:"height"`
	Supersample   int    `yaml:"supersample"`
	RasterWorkers int    `yaml:"raster_workers"` // 0 = one per CPU
	DoubleSided   bool   `yaml:"double_sided"`
	Grid          bool   `yaml:"grid"`
	ClearColor    string `yaml:"clear_color"` // hex, empty = transparent
	PanoramaURL   string `yaml:"panorama_url"`
}

// QueueConfig configures the rendering queue.
type QueueConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// CacheConfig configures the render cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"` // empty = in memory
	MaxAge  time.Duration `yaml:"max_age"`
}

// BatchConfig configures the batch thumbnailer.
type BatchConfig struct {
	Workers   int    `yaml:"workers"`
	PageSize  int    `yaml:"page_size"`
	Search    string `yaml:"search"`
	OutputDir string `yaml:"output_dir"` // PNG files are also written here when set
}

// ViewerConfig configures the interactive viewer window.
type ViewerConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Title       string `yaml:"title"`
	FPSLimit    int    `yaml:"fps_limit"` // 0 = unlimited
	Profiling   bool   `yaml:"profiling"`
	PanoramaURL string `yaml:"panorama_url"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		API: APIConfig{
			BaseURL:   "http://localhost:3001",
			Timeout:   15 * time.Second,
			UserAgent: "oxy-showcase",
		},
		Renderer: RendererConfig{
			Width:       400,
			Height:      400,
			Supersample: 2,
			DoubleSided: true,
		},
		Queue: QueueConfig{
			IdleTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".cache/renders",
		},
		Batch: BatchConfig{
			Workers:  4,
			PageSize: 20,
		},
		Viewer: ViewerConfig{
			Width:    1280,
			Height:   720,
			Title:    "Showcase Viewer",
			FPSLimit: 60,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ClearRGBA converts the clear color. An empty value is fully transparent.
func (r RendererConfig) ClearRGBA() gg.RGBA {
	if r.ClearColor == "" {
		return gg.RGBA{}
	}
	return gg.Hex(r.ClearColor)
}

// Level maps LogLevel to a slog level. Unknown values mean info.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
