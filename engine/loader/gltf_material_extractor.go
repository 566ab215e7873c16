package loader

import (
	"context"
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-showcase/engine/model"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	ctx     context.Context
	parser  gltfParser
	fetcher *fetcher

	textures map[int]*image.RGBA
}

// gltfMaterialExtractor resolves glTF materials into model.Material values.
// Decoded textures are shared between materials that reference the same texture,
// but every call returns a fresh Material so per-mesh flags stay independent.
type gltfMaterialExtractor interface {
	// Material returns a new material for the given index. A nil index yields the default material.
	//
	// Parameters:
	//   - materialIndex: the material index of a primitive, or nil
	//
	// Returns:
	//   - *model.Material: the resolved material
	//   - error: error if the material or its texture cannot be loaded
	Material(materialIndex *int) (*model.Material, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
//
// Parameters:
//   - ctx: cancels external image fetches
//   - parser: the parser containing a loaded document
//   - f: the fetcher used for external images
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(ctx context.Context, parser gltfParser, f *fetcher) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{
		ctx:      ctx,
		parser:   parser,
		fetcher:  f,
		textures: make(map[int]*image.RGBA),
	}
}

func (e *gltfMaterialExtractorImpl) Material(materialIndex *int) (*model.Material, error) {
	if materialIndex == nil {
		return model.DefaultMaterial(), nil
	}
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if *materialIndex < 0 || *materialIndex >= len(doc.Materials) {
		return nil, fmt.Errorf("material index %d out of range", *materialIndex)
	}

	src := &doc.Materials[*materialIndex]
	mat := model.DefaultMaterial()
	mat.Name = src.Name
	mat.DoubleSided = src.DoubleSided

	switch src.AlphaMode {
	case gltfAlphaModeMask:
		mat.AlphaMode = model.AlphaMask
	case gltfAlphaModeBlend:
		mat.AlphaMode = model.AlphaBlend
	default:
		mat.AlphaMode = model.AlphaOpaque
	}
	if src.AlphaCutoff != nil {
		mat.AlphaCutoff = *src.AlphaCutoff
	}

	if pbr := src.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			mat.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.BaseColorTexture != nil {
			tex, nearest, err := e.texture(pbr.BaseColorTexture.Index)
			if err != nil {
				return nil, fmt.Errorf("material %d: %w", *materialIndex, err)
			}
			mat.Texture = tex
			if nearest {
				mat.Filter = model.FilterNearest
			}
		}
	}
	return mat, nil
}

// texture decodes a texture's source image and reports whether its sampler magnifies with NEAREST.
func (e *gltfMaterialExtractorImpl) texture(textureIndex int) (*image.RGBA, bool, error) {
	doc := e.parser.Document()
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return nil, false, fmt.Errorf("texture index %d out of range", textureIndex)
	}
	tex := doc.Textures[textureIndex]

	nearest := false
	if tex.Sampler != nil && *tex.Sampler >= 0 && *tex.Sampler < len(doc.Samplers) {
		if mag := doc.Samplers[*tex.Sampler].MagFilter; mag != nil && *mag == gltfFilterNearest {
			nearest = true
		}
	}

	if tex.Source == nil {
		return nil, nearest, nil
	}
	if img, ok := e.textures[*tex.Source]; ok {
		return img, nearest, nil
	}

	img, err := e.decodeImage(*tex.Source)
	if err != nil {
		return nil, false, err
	}
	e.textures[*tex.Source] = img
	return img, nearest, nil
}

func (e *gltfMaterialExtractorImpl) decodeImage(imageIndex int) (*image.RGBA, error) {
	doc := e.parser.Document()
	if imageIndex < 0 || imageIndex >= len(doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", imageIndex)
	}
	src := doc.Images[imageIndex]

	var data []byte
	var err error
	switch {
	case src.BufferView != nil:
		data, err = e.parser.BufferViewData(*src.BufferView)
	case src.URI != "":
		data, err = e.fetcher.fetch(e.ctx, resolveReference(e.parser.Source(), src.URI))
	default:
		return nil, fmt.Errorf("image %d has no data source", imageIndex)
	}
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", imageIndex, err)
	}

	img, err := decodeRGBA(data)
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", imageIndex, err)
	}
	return img, nil
}
