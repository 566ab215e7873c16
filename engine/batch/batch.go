package batch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-showcase/catalog"
	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/engine/cache"
	"github.com/Carmen-Shannon/oxy-showcase/engine/queue"
	"github.com/Carmen-Shannon/oxy-showcase/engine/renderer"
)

// ErrNoAsset marks catalog models that have no uploaded glTF.
var ErrNoAsset = errors.New("model has no asset")

// Result is the outcome of one model.
type Result struct {
	ModelID int64
	Name    string
	Key     string
	DataURL string
	Cached  bool
	Err     error
}

// Summary counts the outcomes of a run.
type Summary struct {
	Rendered int
	Cached   int
	Skipped  int
	Failed   int
}

// Total returns the number of models seen.
func (s Summary) Total() int {
	return s.Rendered + s.Cached + s.Skipped + s.Failed
}

// thumbnailer is the implementation of the Thumbnailer interface.
type thumbnailer struct {
	catalog   catalog.Client
	queue     queue.RenderingQueue
	cache     cache.Cache
	workers   int
	pageSize  int
	search    string
	outputDir string
	onResult  func(Result)
	logger    *slog.Logger
}

// Thumbnailer renders catalog thumbnails through the rendering queue and stores them in the render cache.
type Thumbnailer interface {
	// Run walks every catalog page and renders each model with an asset.
	// Cancelling ctx stops paging and cancels queued renders.
	//
	// Parameters:
	//   - ctx: the run context
	//
	// Returns:
	//   - Summary: the outcome counts
	//   - error: error if listing the catalog fails or ctx ends
	Run(ctx context.Context) (Summary, error)

	// RenderModel renders one model, using the cache when it holds a matching entry.
	//
	// Parameters:
	//   - ctx: cancels the queued render when done
	//   - m: the catalog model
	//
	// Returns:
	//   - Result: the outcome
	RenderModel(ctx context.Context, m catalog.Model) Result
}

var _ Thumbnailer = &thumbnailer{}

// NewThumbnailer creates a Thumbnailer. A catalog client is required;
// without a queue the process-wide default queue is used.
//
// Parameters:
//   - options: functional options to configure the thumbnailer
//
// Returns:
//   - Thumbnailer: the thumbnailer
//   - error: error if no catalog client was given
func NewThumbnailer(options ...ThumbnailerBuilderOption) (Thumbnailer, error) {
	t := &thumbnailer{
		workers:  4,
		pageSize: catalog.DefaultTake,
		logger:   common.Logger("batch"),
	}
	for _, option := range options {
		option(t)
	}
	if t.catalog == nil {
		return nil, errors.New("batch: catalog client is required")
	}
	if t.queue == nil {
		t.queue = queue.Default()
	}
	return t, nil
}

func (t *thumbnailer) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	pool := worker.NewDynamicWorkerPool(t.workers, 256, time.Second)
	defer common.StopWorkerPool(pool)

	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
	)
	record := func(r Result) {
		mu.Lock()
		switch {
		case errors.Is(r.Err, ErrNoAsset):
			summary.Skipped++
		case r.Err != nil:
			summary.Failed++
		case r.Cached:
			summary.Cached++
		default:
			summary.Rendered++
		}
		mu.Unlock()
		if t.onResult != nil {
			t.onResult(r)
		}
	}

	taskID := 0
	var runErr error
	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		resp, err := t.catalog.ListModels(ctx, catalog.ListOptions{Page: page, Take: t.pageSize, Search: t.search})
		if err != nil {
			runErr = fmt.Errorf("list page %d: %w", page, err)
			break
		}
		for _, m := range resp.Data {
			wg.Add(1)
			model := m
			pool.SubmitTask(worker.Task{
				ID: taskID,
				Do: func() (any, error) {
					defer wg.Done()
					record(t.RenderModel(ctx, model))
					return nil, nil
				},
			})
			taskID++
		}
		if len(resp.Data) == 0 || page+1 >= resp.Pages(t.pageSize) {
			break
		}
	}
	wg.Wait()

	t.logger.Info("batch finished",
		"rendered", summary.Rendered,
		"cached", summary.Cached,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"elapsed", time.Since(start),
	)
	return summary, runErr
}

func (t *thumbnailer) RenderModel(ctx context.Context, m catalog.Model) Result {
	res := Result{ModelID: m.ID, Name: m.Name}
	if !m.HasAsset() {
		res.Err = ErrNoAsset
		return res
	}
	meta := m.Display()
	res.Key = cache.Key(m.Key(), meta)

	if t.cache != nil {
		entry, err := t.cache.Get(res.Key)
		switch {
		case err == nil:
			res.DataURL = entry.DataURL
			res.Cached = true
			res.Err = t.writeOutput(m, res.DataURL)
			return res
		case !errors.Is(err, cache.ErrMiss):
			t.logger.Warn("cache read failed", "model_id", m.ID, "error", err)
		}
	}

	ticket, id := t.queue.Enqueue(t.catalog.AssetURL(m.GLTF.ResourceID), meta)
	url, err := ticket.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			t.queue.Cancel(id)
		}
		res.Err = fmt.Errorf("render model %d: %w", m.ID, err)
		t.logger.Warn("render failed", "model_id", m.ID, "error", err)
		return res
	}
	res.DataURL = url

	if t.cache != nil {
		if err := t.cache.Put(&cache.Entry{Key: res.Key, AssetID: m.Key(), DataURL: url}); err != nil {
			t.logger.Warn("cache write failed", "model_id", m.ID, "error", err)
		}
	}
	res.Err = t.writeOutput(m, url)
	return res
}

// writeOutput saves the thumbnail as <id>.png in the output directory, when one is set.
func (t *thumbnailer) writeOutput(m catalog.Model, dataURL string) error {
	if t.outputDir == "" {
		return nil
	}
	encoded, ok := strings.CutPrefix(dataURL, renderer.DataURLPrefix)
	if !ok {
		return fmt.Errorf("model %d: %w", m.ID, renderer.ErrInvalidDataURL)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("model %d: %w", m.ID, err)
	}
	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return os.WriteFile(filepath.Join(t.outputDir, m.Key()+".png"), data, 0o644)
}
