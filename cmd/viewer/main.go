// Command viewer opens a catalog model or a local glTF file in the preview dialog.
//
// Keys: Esc closes, R replays the fly-in, C centers, G toggles the grid,
// M logs the current framing, P pauses and Space starts pointer follow.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/Carmen-Shannon/oxy-showcase/catalog"
	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/config"
	"github.com/Carmen-Shannon/oxy-showcase/engine/profiler"
	"github.com/Carmen-Shannon/oxy-showcase/engine/renderer"
	"github.com/Carmen-Shannon/oxy-showcase/engine/viewer"
	"github.com/Carmen-Shannon/oxy-showcase/engine/window"
	"github.com/gogpu/gg"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	modelID := flag.String("model", "", "catalog model id to open")
	file := flag.String("file", "", "local .gltf or .glb file to open")
	watch := flag.Bool("watch", false, "reload -file whenever it changes")
	fallback := flag.Bool("fallback-adapter", false, "force the software GPU adapter")
	flag.Parse()

	if (*modelID == "") == (*file == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -model or -file is required")
		os.Exit(2)
	}
	if *watch && *file == "" {
		fmt.Fprintln(os.Stderr, "-watch needs -file")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		cfg = loaded
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)
	common.SetLogger(logger)
	gg.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *modelID, *file, *watch, *fallback); err != nil {
		logger.Error("viewer failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, modelID, file string, watch, fallback bool) error {
	subject, err := resolveSubject(ctx, cfg, modelID, file)
	if err != nil {
		return err
	}

	windowOptions := []window.WindowBuilderOption{
		window.WithTitle(fmt.Sprintf("%s - %s", cfg.Viewer.Title, subject.Name)),
		window.WithWidth(cfg.Viewer.Width),
		window.WithHeight(cfg.Viewer.Height),
	}
	if cfg.Viewer.FPSLimit > 0 {
		windowOptions = append(windowOptions, window.WithFPSLimit(float64(cfg.Viewer.FPSLimit)))
	}
	w, err := window.NewWindow(windowOptions...)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer w.Close()

	host, err := window.NewHost(w, window.WithFallbackAdapter(fallback))
	if err != nil {
		return fmt.Errorf("create window host: %w", err)
	}
	defer host.Release()

	rendererOptions := []renderer.SceneRendererBuilderOption{
		renderer.WithSupersample(cfg.Renderer.Supersample),
		renderer.WithClearColor(cfg.Renderer.ClearRGBA()),
	}
	if cfg.Renderer.RasterWorkers > 0 {
		rendererOptions = append(rendererOptions, renderer.WithRasterWorkers(cfg.Renderer.RasterWorkers))
	}
	viewerOptions := []viewer.ViewerBuilderOption{
		viewer.WithHost(host),
		viewer.WithSize(w.Width(), w.Height()),
		viewer.WithRendererOptions(rendererOptions...),
	}
	if cfg.Viewer.PanoramaURL != "" {
		viewerOptions = append(viewerOptions, viewer.WithPanoramaURL(cfg.Viewer.PanoramaURL))
	}
	v := viewer.NewViewer(viewerOptions...)
	v.Bind(w)

	var prof *profiler.Profiler
	if cfg.Viewer.Profiling {
		prof = profiler.NewProfiler(profiler.WithLogger(logger.With("component", "profiler")))
	}

	var opened atomic.Bool
	var openErr atomic.Pointer[error]
	go func() {
		if err := v.Open(ctx, subject); err != nil {
			openErr.Store(&err)
			w.RequestClose()
			return
		}
		opened.Store(true)
		if watch {
			if err := v.Watch(ctx, file); err != nil {
				logger.Warn("hot reload disabled", "file", file, "error", err)
			}
		}
	}()

	w.SetUpdateCallback(func() {
		host.Flush()
		if prof != nil {
			prof.Tick()
		}
		if ctx.Err() != nil {
			w.RequestClose()
			return
		}
		// The window closes once the fly-out has played and the renderer is gone.
		if opened.Load() && !v.IsOpen() {
			select {
			case <-v.Done():
				w.RequestClose()
			default:
			}
		}
	})
	w.ProcessMessages()

	if r := v.Renderer(); r != nil {
		r.Dispose()
	}
	if p := openErr.Load(); p != nil && !errors.Is(*p, context.Canceled) {
		return *p
	}
	return nil
}

func resolveSubject(ctx context.Context, cfg *config.Config, modelID, file string) (viewer.Subject, error) {
	if file != "" {
		abs, err := filepath.Abs(file)
		if err != nil {
			return viewer.Subject{}, fmt.Errorf("resolve %s: %w", file, err)
		}
		return viewer.Subject{Name: filepath.Base(abs), URL: abs}, nil
	}

	client := catalog.NewClient(
		catalog.WithBaseURL(cfg.API.BaseURL),
		catalog.WithTimeout(cfg.API.Timeout),
		catalog.WithUserAgent(cfg.API.UserAgent),
	)
	m, err := client.GetModel(ctx, modelID)
	if err != nil {
		return viewer.Subject{}, fmt.Errorf("fetch model %s: %w", modelID, err)
	}
	if !m.HasAsset() {
		return viewer.Subject{}, fmt.Errorf("model %s has no asset", modelID)
	}
	return viewer.Subject{
		Name: m.Name,
		URL:  client.AssetURL(m.GLTF.ResourceID),
		Meta: m.Display(),
	}, nil
}
