package config

import (
	"fmt"
	"net/url"
	"regexp"
)

var hexColorPattern = regexp.MustCompile(`^#?([0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Validate checks the configuration and fills defaults for optional zero values.
func Validate(cfg *Config) error {
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}

	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL")
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must be >= 0")
	}

	if err := validateRenderer(&cfg.Renderer); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}

	if cfg.Queue.IdleTimeout < 0 {
		return fmt.Errorf("queue.idle_timeout must be >= 0")
	}
	if cfg.Cache.MaxAge < 0 {
		return fmt.Errorf("cache.max_age must be >= 0")
	}

	if cfg.Batch.Workers <= 0 {
		cfg.Batch.Workers = 1
	}
	if cfg.Batch.PageSize <= 0 {
		cfg.Batch.PageSize = 20
	}

	if cfg.Viewer.Width <= 0 || cfg.Viewer.Height <= 0 {
		return fmt.Errorf("viewer size must be > 0, got %dx%d", cfg.Viewer.Width, cfg.Viewer.Height)
	}
	if cfg.Viewer.FPSLimit < 0 {
		return fmt.Errorf("viewer.fps_limit must be >= 0")
	}
	return nil
}

func validateRenderer(r *RendererConfig) error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("size must be > 0, got %dx%d", r.Width, r.Height)
	}
	if r.Supersample <= 0 {
		r.Supersample = 1
	}
	if r.Supersample > 4 {
		return fmt.Errorf("supersample must be <= 4, got %d", r.Supersample)
	}
	if r.RasterWorkers < 0 {
		return fmt.Errorf("raster_workers must be >= 0")
	}
	if r.ClearColor != "" && !hexColorPattern.MatchString(r.ClearColor) {
		return fmt.Errorf("clear_color %q is not a hex color", r.ClearColor)
	}
	return nil
}
