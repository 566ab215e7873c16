package loader

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/Carmen-Shannon/oxy-showcase/engine/model"
)

// loaderBackend imports one payload format into an ImportedModel.
type loaderBackend interface {
	Import(ctx context.Context, source string, data []byte) (*model.ImportedModel, error)
}

// loader is the implementation of the Loader interface.
type loader struct {
	fetcher  *fetcher
	backends map[assetFormat]loaderBackend
	logger   *slog.Logger
}

// Loader fetches and imports 3D assets.
// The payload format is sniffed from its content, so extension-less asset store
// URLs work the same as local .gltf and .glb files.
type Loader interface {
	// Load fetches source and imports it as a Model.
	// The context aborts the HTTP request and any external buffer or image fetches.
	//
	// Parameters:
	//   - ctx: the request context
	//   - source: an http(s) URL, file:// URL, filesystem path or data: URI
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if fetching or parsing fails
	Load(ctx context.Context, source string) (model.Model, error)

	// LoadBytes imports an already fetched payload.
	// Relative references inside the payload are resolved against source.
	//
	// Parameters:
	//   - ctx: the request context
	//   - source: the reference data came from, may be empty
	//   - data: the glTF JSON or GLB payload
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if parsing fails
	LoadBytes(ctx context.Context, source string, data []byte) (model.Model, error)

	// LoadImage fetches and decodes a PNG, JPEG or WebP image, such as a sky panorama.
	//
	// Parameters:
	//   - ctx: the request context
	//   - source: the image reference, same forms as Load
	//
	// Returns:
	//   - *image.RGBA: the decoded image
	//   - error: error if fetching or decoding fails
	LoadImage(ctx context.Context, source string) (*image.RGBA, error)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the glTF backend registered for both JSON and GLB payloads.
//
// Parameters:
//   - options: functional options applied after defaults
//
// Returns:
//   - Loader: the loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		fetcher: newFetcher(),
		logger:  common.Logger("loader"),
	}
	for _, option := range options {
		option(l)
	}

	gltf := newGLTFImporter(l.fetcher)
	l.backends = map[assetFormat]loaderBackend{
		formatGLTF: gltf,
		formatGLB:  gltf,
	}
	return l
}

func (l *loader) Load(ctx context.Context, source string) (model.Model, error) {
	start := time.Now()
	data, err := l.fetcher.fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	m, err := l.LoadBytes(ctx, source, data)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("asset loaded",
		"source", displaySource(source),
		"bytes", len(data),
		"meshes", len(m.Meshes()),
		"triangles", m.TriangleCount(),
		"elapsed", time.Since(start),
	)
	return m, nil
}

func (l *loader) LoadBytes(ctx context.Context, source string, data []byte) (model.Model, error) {
	format, err := sniffFormat(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", displaySource(source), err)
	}
	backend, ok := l.backends[format]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", displaySource(source), ErrUnsupportedFormat)
	}

	imported, err := backend.Import(ctx, source, data)
	if err != nil {
		return nil, err
	}
	return model.NewModel(imported), nil
}
