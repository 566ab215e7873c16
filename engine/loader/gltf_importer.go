package loader

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/Carmen-Shannon/oxy-showcase/engine/model"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	fetcher *fetcher
}

// gltfImporter orchestrates a full glTF/GLB import.
// It combines the parser and the extractors to produce an ImportedModel.
type gltfImporter interface {
	// Import parses data and extracts meshes and materials.
	//
	// Parameters:
	//   - ctx: cancels fetches of external buffers and images
	//   - source: the reference data was loaded from, used to resolve relative URIs
	//   - data: the glTF JSON or GLB payload
	//
	// Returns:
	//   - *model.ImportedModel: the imported meshes
	//   - error: error if import fails
	Import(ctx context.Context, source string, data []byte) (*model.ImportedModel, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Parameters:
//   - f: the fetcher used for external resources
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(f *fetcher) gltfImporter {
	return &gltfImporterImpl{fetcher: f}
}

func (imp *gltfImporterImpl) Import(ctx context.Context, source string, data []byte) (*model.ImportedModel, error) {
	parser := newGLTFParser(imp.fetcher, source)
	if err := parser.Parse(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", displaySource(source), err)
	}

	if required := parser.Document().ExtensionsRequired; len(required) > 0 {
		return nil, fmt.Errorf("%w: required extension %s", ErrUnsupportedFormat, required[0])
	}

	materials := newGLTFMaterialExtractor(ctx, parser, imp.fetcher)
	meshes, err := newGLTFMeshExtractor(parser, materials).ExtractScene()
	if err != nil {
		return nil, fmt.Errorf("failed to extract meshes from %s: %w", displaySource(source), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &model.ImportedModel{
		Name:   modelName(source),
		Meshes: meshes,
	}, nil
}

// modelName derives a readable name from the last path segment of source.
func modelName(source string) string {
	if strings.HasPrefix(source, "data:") {
		return "inline"
	}
	p := source
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "." || base == "/" || base == "" {
		return "model"
	}
	return base
}

func displaySource(source string) string {
	if strings.HasPrefix(source, "data:") {
		return "data URI"
	}
	return source
}
