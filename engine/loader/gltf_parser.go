package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errMissingBinChunk    = errors.New("GLB buffer references missing BIN chunk")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errAccessorOutOfRange = errors.New("accessor index out of range")
	errSparseAccessor     = errors.New("sparse accessors are not supported")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	fetcher        *fetcher
	source         string
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser decodes a glTF or GLB payload, resolves its buffers and exposes typed accessor reads.
// This is internal to the loader package.
type gltfParser interface {
	// Parse decodes data and loads every buffer it references.
	// External buffers are resolved relative to the parser's source and fetched under ctx.
	//
	// Parameters:
	//   - ctx: cancels external buffer fetches
	//   - data: the glTF JSON or GLB payload
	//
	// Returns:
	//   - error: error if parsing fails
	Parse(ctx context.Context, data []byte) error

	// Document returns the parsed glTF document, or nil before a successful Parse.
	//
	// Returns:
	//   - *gltfDocument: the parsed document or nil
	Document() *gltfDocument

	// Source returns the reference the payload was loaded from.
	//
	// Returns:
	//   - string: the source URL or path
	Source() string

	// BufferViewData returns the bytes covered by a buffer view.
	//
	// Parameters:
	//   - index: the buffer view index
	//
	// Returns:
	//   - []byte: the view's bytes
	//   - error: error if the view is out of range
	BufferViewData(index int) ([]byte, error)

	// ReadVec2Accessor reads an accessor as vec2 float data.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][2]float32: the vec2 data
	//   - error: error if reading fails
	ReadVec2Accessor(accessorIndex int) ([][2]float32, error)

	// ReadVec3Accessor reads an accessor as vec3 float data.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][3]float32: the vec3 data
	//   - error: error if reading fails
	ReadVec3Accessor(accessorIndex int) ([][3]float32, error)

	// ReadIndicesAccessor reads an accessor as index data.
	// Handles UNSIGNED_BYTE, UNSIGNED_SHORT, and UNSIGNED_INT component types.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []uint32: the index data
	//   - error: error if reading fails
	ReadIndicesAccessor(accessorIndex int) ([]uint32, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a parser that resolves external references relative to source.
//
// Parameters:
//   - f: the fetcher used for external buffers
//   - source: the reference the payload came from
//
// Returns:
//   - gltfParser: a new parser instance
func newGLTFParser(f *fetcher, source string) gltfParser {
	return &gltfParserImpl{fetcher: f, source: source}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Source() string {
	return p.source
}

func (p *gltfParserImpl) Parse(ctx context.Context, data []byte) error {
	var jsonData []byte
	if isGLB(data) {
		j, bin, err := splitGLB(data)
		if err != nil {
			return err
		}
		jsonData = j
		p.glbBinaryChunk = bin
	} else {
		jsonData = data
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if len(doc.Asset.Version) < 1 || doc.Asset.Version[0] != '2' {
		return errInvalidGLTFVersion
	}
	p.document = &doc

	return p.loadBuffers(ctx)
}

func isGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic
}

// splitGLB returns the JSON chunk and the optional BIN chunk of a GLB container.
func splitGLB(data []byte) ([]byte, []byte, error) {
	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return nil, nil, errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return nil, nil, errInvalidGLBVersion
	}

	var jsonChunk, binChunk []byte
	offset := 12
	end := int(header.Length)
	if end > len(data) {
		end = len(data)
	}
	for offset+8 <= end {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(bytes.NewReader(data[offset:offset+8]), binary.LittleEndian, &chunk); err != nil {
			return nil, nil, fmt.Errorf("failed to read GLB chunk header: %w", err)
		}
		start := offset + 8
		stop := start + int(chunk.ChunkLength)
		if stop > end {
			return nil, nil, fmt.Errorf("GLB chunk exceeds file length: %w", errBufferSizeMismatch)
		}
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonChunk = data[start:stop]
		case gltfGLBChunkBIN:
			binChunk = data[start:stop]
		}
		// chunks are 4-byte aligned
		offset = stop + (4-int(chunk.ChunkLength)%4)%4
	}

	if jsonChunk == nil {
		return nil, nil, errMissingJSONChunk
	}
	return jsonChunk, binChunk, nil
}

func (p *gltfParserImpl) loadBuffers(ctx context.Context) error {
	for i := range p.document.Buffers {
		buf := &p.document.Buffers[i]
		switch {
		case buf.URI == "":
			if p.glbBinaryChunk == nil {
				return fmt.Errorf("buffer %d: %w", i, errMissingBinChunk)
			}
			buf.Data = p.glbBinaryChunk
		default:
			data, err := p.fetcher.fetch(ctx, resolveReference(p.source, buf.URI))
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: have %d bytes, want %d: %w", i, len(buf.Data), buf.ByteLength, errBufferSizeMismatch)
		}
	}
	return nil
}

func (p *gltfParserImpl) BufferViewData(index int) ([]byte, error) {
	if index < 0 || index >= len(p.document.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", index)
	}
	view := p.document.BufferViews[index]
	if view.Buffer < 0 || view.Buffer >= len(p.document.Buffers) {
		return nil, fmt.Errorf("buffer view %d: buffer %d out of range", index, view.Buffer)
	}
	data := p.document.Buffers[view.Buffer].Data
	end := view.ByteOffset + view.ByteLength
	if view.ByteOffset < 0 || end > len(data) {
		return nil, fmt.Errorf("buffer view %d: %w", index, errBufferSizeMismatch)
	}
	return data[view.ByteOffset:end], nil
}

// accessorLayout resolves an accessor to its backing bytes, element stride and component size.
func (p *gltfParserImpl) accessorLayout(accessorIndex int, wantType string) (*gltfAccessor, []byte, int, int, error) {
	if accessorIndex < 0 || accessorIndex >= len(p.document.Accessors) {
		return nil, nil, 0, 0, fmt.Errorf("accessor %d: %w", accessorIndex, errAccessorOutOfRange)
	}
	acc := &p.document.Accessors[accessorIndex]
	if acc.Sparse != nil {
		return nil, nil, 0, 0, fmt.Errorf("accessor %d: %w", accessorIndex, errSparseAccessor)
	}
	if wantType != "" && acc.Type != wantType {
		return nil, nil, 0, 0, fmt.Errorf("accessor %d: type %s, want %s", accessorIndex, acc.Type, wantType)
	}

	compSize := componentSize(acc.ComponentType)
	if compSize == 0 {
		return nil, nil, 0, 0, fmt.Errorf("accessor %d: unknown component type %d", accessorIndex, acc.ComponentType)
	}
	elemSize := compSize * componentCount(acc.Type)

	if acc.BufferView == nil {
		// accessors without a view are all zeros
		return acc, make([]byte, elemSize*acc.Count), elemSize, compSize, nil
	}

	view, err := p.BufferViewData(*acc.BufferView)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	stride := elemSize
	if bv := p.document.BufferViews[*acc.BufferView]; bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	if acc.ByteOffset < 0 || acc.ByteOffset > len(view) {
		return nil, nil, 0, 0, fmt.Errorf("accessor %d: %w", accessorIndex, errBufferSizeMismatch)
	}
	if acc.Count > 0 {
		need := acc.ByteOffset + stride*(acc.Count-1) + elemSize
		if need > len(view) {
			return nil, nil, 0, 0, fmt.Errorf("accessor %d: %w", accessorIndex, errBufferSizeMismatch)
		}
	}
	return acc, view[acc.ByteOffset:], stride, compSize, nil
}

func (p *gltfParserImpl) ReadVec2Accessor(accessorIndex int) ([][2]float32, error) {
	acc, data, stride, compSize, err := p.accessorLayout(accessorIndex, gltfAccessorTypeVec2)
	if err != nil {
		return nil, err
	}
	out := make([][2]float32, acc.Count)
	for i := range out {
		base := i * stride
		for c := 0; c < 2; c++ {
			out[i][c] = readComponent(data[base+c*compSize:], acc.ComponentType, acc.Normalized)
		}
	}
	return out, nil
}

func (p *gltfParserImpl) ReadVec3Accessor(accessorIndex int) ([][3]float32, error) {
	acc, data, stride, compSize, err := p.accessorLayout(accessorIndex, gltfAccessorTypeVec3)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, acc.Count)
	for i := range out {
		base := i * stride
		for c := 0; c < 3; c++ {
			out[i][c] = readComponent(data[base+c*compSize:], acc.ComponentType, acc.Normalized)
		}
	}
	return out, nil
}

func (p *gltfParserImpl) ReadIndicesAccessor(accessorIndex int) ([]uint32, error) {
	acc, data, stride, _, err := p.accessorLayout(accessorIndex, gltfAccessorTypeScalar)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, acc.Count)
	for i := range out {
		b := data[i*stride:]
		switch acc.ComponentType {
		case gltfComponentTypeUnsignedByte:
			out[i] = uint32(b[0])
		case gltfComponentTypeUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(b))
		case gltfComponentTypeUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(b)
		default:
			return nil, fmt.Errorf("accessor %d: invalid index component type %d", accessorIndex, acc.ComponentType)
		}
	}
	return out, nil
}

func componentSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

func componentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4:
		return 4
	default:
		return 1
	}
}

// readComponent decodes one component to float32, applying glTF normalization rules when normalized is set.
func readComponent(b []byte, componentType int, normalized bool) float32 {
	switch componentType {
	case gltfComponentTypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltfComponentTypeUnsignedByte:
		v := float32(b[0])
		if normalized {
			return v / 255
		}
		return v
	case gltfComponentTypeByte:
		v := float32(int8(b[0]))
		if normalized {
			return max(v/127, -1)
		}
		return v
	case gltfComponentTypeUnsignedShort:
		v := float32(binary.LittleEndian.Uint16(b))
		if normalized {
			return v / 65535
		}
		return v
	case gltfComponentTypeShort:
		v := float32(int16(binary.LittleEndian.Uint16(b)))
		if normalized {
			return max(v/32767, -1)
		}
		return v
	case gltfComponentTypeUnsignedInt:
		return float32(binary.LittleEndian.Uint32(b))
	default:
		return 0
	}
}
