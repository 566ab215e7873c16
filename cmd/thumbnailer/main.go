// Command thumbnailer renders a thumbnail for every catalog model that has an asset.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-showcase/catalog"
	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/config"
	"github.com/Carmen-Shannon/oxy-showcase/engine/batch"
	"github.com/Carmen-Shannon/oxy-showcase/engine/cache"
	"github.com/Carmen-Shannon/oxy-showcase/engine/queue"
	"github.com/Carmen-Shannon/oxy-showcase/engine/renderer"
	"github.com/gogpu/gg"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	search := flag.String("search", "", "only render models matching this search")
	outDir := flag.String("out", "", "also write PNG files to this directory")
	workers := flag.Int("workers", 0, "concurrent models, overrides the config")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *search != "" {
		cfg.Batch.Search = *search
	}
	if *outDir != "" {
		cfg.Batch.OutputDir = *outDir
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)
	common.SetLogger(logger)
	gg.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("thumbnailer failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	client := catalog.NewClient(
		catalog.WithBaseURL(cfg.API.BaseURL),
		catalog.WithTimeout(cfg.API.Timeout),
		catalog.WithUserAgent(cfg.API.UserAgent),
	)

	q := queue.NewRenderingQueue(
		queue.WithIdleTimeout(cfg.Queue.IdleTimeout),
		queue.WithRendererOptions(rendererOptions(cfg.Renderer)...),
	)
	defer q.Close()

	options := []batch.ThumbnailerBuilderOption{
		batch.WithCatalog(client),
		batch.WithQueue(q),
		batch.WithWorkers(cfg.Batch.Workers),
		batch.WithPageSize(cfg.Batch.PageSize),
		batch.WithSearch(cfg.Batch.Search),
		batch.WithOutputDir(cfg.Batch.OutputDir),
		batch.WithOnResult(func(res batch.Result) {
			switch {
			case res.Err != nil:
				logger.Warn("model failed", "id", res.ModelID, "name", res.Name, "error", res.Err)
			case res.Cached:
				logger.Debug("model cached", "id", res.ModelID, "name", res.Name)
			default:
				logger.Info("model rendered", "id", res.ModelID, "name", res.Name)
			}
		}),
	}
	if cfg.Cache.Enabled {
		var cacheOptions []cache.CacheBuilderOption
		if cfg.Cache.Dir != "" {
			cacheOptions = append(cacheOptions, cache.WithDir(cfg.Cache.Dir))
		}
		if cfg.Cache.MaxAge > 0 {
			cacheOptions = append(cacheOptions, cache.WithMaxAge(cfg.Cache.MaxAge))
		}
		c, err := cache.NewCache(cacheOptions...)
		if err != nil {
			return fmt.Errorf("open render cache: %w", err)
		}
		options = append(options, batch.WithCache(c))
	}

	t, err := batch.NewThumbnailer(options...)
	if err != nil {
		return err
	}
	summary, err := t.Run(ctx)
	logger.Info("run finished",
		"total", summary.Total(),
		"rendered", summary.Rendered,
		"cached", summary.Cached,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d models failed", summary.Failed, summary.Total())
	}
	return nil
}

func rendererOptions(rc config.RendererConfig) []renderer.SceneRendererBuilderOption {
	options := []renderer.SceneRendererBuilderOption{
		renderer.WithSize(rc.Width, rc.Height),
		renderer.WithSupersample(rc.Supersample),
		renderer.WithDoubleSided(rc.DoubleSided),
		renderer.WithGrid(rc.Grid),
		renderer.WithClearColor(rc.ClearRGBA()),
	}
	if rc.RasterWorkers > 0 {
		options = append(options, renderer.WithRasterWorkers(rc.RasterWorkers))
	}
	if rc.PanoramaURL != "" {
		options = append(options, renderer.WithPanoramaURL(rc.PanoramaURL))
	}
	return options
}
