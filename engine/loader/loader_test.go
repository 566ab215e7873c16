package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-showcase/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cubeIndices = []uint16{
	0, 1, 2, 0, 2, 3,
	4, 6, 5, 4, 7, 6,
	0, 4, 5, 0, 5, 1,
	1, 5, 6, 1, 6, 2,
	2, 6, 7, 2, 7, 3,
	3, 7, 4, 3, 4, 0,
}

// cubeBuffer returns 8 unit-cube vertices followed by 36 uint16 indices.
func cubeBuffer() []byte {
	var buf bytes.Buffer
	for i := 0; i < 8; i++ {
		x := float32(-0.5)
		y := float32(-0.5)
		z := float32(-0.5)
		if i&1 != 0 {
			x = 0.5
		}
		if i&2 != 0 {
			y = 0.5
		}
		if i&4 != 0 {
			z = 0.5
		}
		for _, v := range []float32{x, y, z} {
			_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
		}
	}
	for _, idx := range cubeIndices {
		_ = binary.Write(&buf, binary.LittleEndian, idx)
	}
	return buf.Bytes()
}

func cubeDocument(bufferURI string, byteLength int) map[string]any {
	buffer := map[string]any{"byteLength": byteLength}
	if bufferURI != "" {
		buffer["uri"] = bufferURI
	}
	return map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"nodes": []int{0}}},
		"nodes": []any{map[string]any{
			"name":        "root",
			"mesh":        0,
			"translation": []float32{0, 1, 0},
		}},
		"meshes": []any{map[string]any{
			"name": "cube",
			"primitives": []any{map[string]any{
				"attributes": map[string]int{"POSITION": 0},
				"indices":    1,
			}},
		}},
		"accessors": []any{
			map[string]any{"bufferView": 0, "componentType": gltfComponentTypeFloat, "count": 8, "type": "VEC3"},
			map[string]any{"bufferView": 1, "componentType": gltfComponentTypeUnsignedShort, "count": 36, "type": "SCALAR"},
		},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": 96},
			map[string]any{"buffer": 0, "byteOffset": 96, "byteLength": 72},
		},
		"buffers": []any{buffer},
	}
}

func embeddedCubeGLTF(t *testing.T) []byte {
	t.Helper()
	bin := cubeBuffer()
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)
	data, err := json.Marshal(cubeDocument(uri, len(bin)))
	require.NoError(t, err)
	return data
}

func cubeGLB(t *testing.T) []byte {
	t.Helper()
	bin := cubeBuffer()
	jsonData, err := json.Marshal(cubeDocument("", len(bin)))
	require.NoError(t, err)
	for len(jsonData)%4 != 0 {
		jsonData = append(jsonData, ' ')
	}

	var out bytes.Buffer
	total := 12 + 8 + len(jsonData) + 8 + len(bin)
	_ = binary.Write(&out, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: 2, Length: uint32(total)})
	_ = binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(jsonData)), ChunkType: gltfGLBChunkJSON})
	out.Write(jsonData)
	_ = binary.Write(&out, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN})
	out.Write(bin)
	return out.Bytes()
}

func assertCube(t *testing.T, m model.Model) {
	t.Helper()
	require.Len(t, m.Meshes(), 1)
	assert.Equal(t, 12, m.TriangleCount())
	assert.Equal(t, "cube", m.Meshes()[0].Name)

	b := m.Bounds()
	assert.InDelta(t, -0.5, b.Min[0], 1e-6)
	assert.InDelta(t, 0.5, b.Min[1], 1e-6)
	assert.InDelta(t, 1.5, b.Max[1], 1e-6)
	assert.InDelta(t, 0.5, b.Max[2], 1e-6)
	assert.NotNil(t, m.Meshes()[0].Material)
}

func TestLoader_LoadBytes_EmbeddedBuffer(t *testing.T) {
	m, err := NewLoader().LoadBytes(context.Background(), "cube.gltf", embeddedCubeGLTF(t))
	require.NoError(t, err)
	assertCube(t, m)
}

func TestLoader_LoadBytes_GLB(t *testing.T) {
	m, err := NewLoader().LoadBytes(context.Background(), "", cubeGLB(t))
	require.NoError(t, err)
	assertCube(t, m)
	assert.Equal(t, "model", m.Name())
}

func TestLoader_LoadBytes_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))

	_, err := NewLoader().LoadBytes(context.Background(), "x", buf.Bytes())
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "image/png")

	_, err = NewLoader().LoadBytes(context.Background(), "x", []byte("not a model"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoader_LoadBytes_InvalidVersion(t *testing.T) {
	_, err := NewLoader().LoadBytes(context.Background(), "x", []byte(`{"asset":{"version":"1.0"}}`))
	require.ErrorIs(t, err, errInvalidGLTFVersion)
}

func TestLoader_Load_HTTPWithExternalBuffer(t *testing.T) {
	bin := cubeBuffer()
	doc, err := json.Marshal(cubeDocument("cube.bin", len(bin)))
	require.NoError(t, err)

	var userAgent string
	mux := http.NewServeMux()
	mux.HandleFunc("/assets/42", func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		_, _ = w.Write(doc)
	})
	mux.HandleFunc("/assets/cube.bin", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bin)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m, err := NewLoader(WithUserAgent("test-agent")).Load(context.Background(), srv.URL+"/assets/42")
	require.NoError(t, err)
	assertCube(t, m)
	assert.Equal(t, "42", m.Name())
	assert.Equal(t, "test-agent", userAgent)
}

func TestLoader_Load_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewLoader().Load(context.Background(), srv.URL+"/assets/missing")
	require.ErrorIs(t, err, ErrHTTPStatus)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestLoader_Load_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	_, err := NewLoader(WithMaxBytes(1024)).Load(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestLoader_Load_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := NewLoader().Load(ctx, srv.URL)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("load did not abort after cancellation")
	}
}

func TestLoader_Load_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader().Load(ctx, "data:application/json;base64,e30=")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoader_Material_TextureAndSampler(t *testing.T) {
	tex := image.NewRGBA(image.Rect(0, 0, 2, 2))
	tex.Set(1, 1, color.RGBA{R: 255, A: 255})
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, tex))

	bin := cubeBuffer()
	doc := cubeDocument("data:application/octet-stream;base64,"+base64.StdEncoding.EncodeToString(bin), len(bin))
	doc["meshes"].([]any)[0].(map[string]any)["primitives"].([]any)[0].(map[string]any)["material"] = 0
	doc["materials"] = []any{map[string]any{
		"name":        "skin",
		"alphaMode":   "MASK",
		"alphaCutoff": 0.3,
		"doubleSided": true,
		"pbrMetallicRoughness": map[string]any{
			"baseColorFactor":  []float32{1, 0.5, 1, 1},
			"baseColorTexture": map[string]any{"index": 0},
		},
	}}
	doc["samplers"] = []any{map[string]any{"magFilter": gltfFilterNearest}}
	doc["textures"] = []any{map[string]any{"sampler": 0, "source": 0}}
	doc["images"] = []any{map[string]any{"uri": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBuf.Bytes())}}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	m, err := NewLoader().LoadBytes(context.Background(), "", data)
	require.NoError(t, err)

	mat := m.Meshes()[0].Material
	assert.Equal(t, "skin", mat.Name)
	assert.Equal(t, model.AlphaMask, mat.AlphaMode)
	assert.InDelta(t, 0.3, mat.AlphaCutoff, 1e-6)
	assert.True(t, mat.DoubleSided)
	assert.Equal(t, model.FilterNearest, mat.Filter)
	assert.Equal(t, [4]float32{1, 0.5, 1, 1}, mat.BaseColor)
	require.NotNil(t, mat.Texture)
	assert.Equal(t, 2, mat.Texture.Bounds().Dx())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, mat.Texture.RGBAAt(1, 1))
}

func TestResolveReference(t *testing.T) {
	assert.Equal(t, "http://host/assets/cube.bin", resolveReference("http://host/assets/42", "cube.bin"))
	assert.Equal(t, "data:,x", resolveReference("http://host/a", "data:,x"))
	assert.Equal(t, "https://cdn/x.png", resolveReference("/tmp/a.gltf", "https://cdn/x.png"))
	assert.Equal(t, "/tmp/models/tex a.png", resolveReference("/tmp/models/a.gltf", "tex%20a.png"))
	assert.Equal(t, "cube.bin", resolveReference("", "cube.bin"))
}

func TestDecodeDataURI(t *testing.T) {
	data, mime, err := decodeDataURI("data:text/plain;base64,aGk=")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
	assert.Equal(t, "text/plain", mime)

	data, _, err = decodeDataURI("data:,a%20b")
	require.NoError(t, err)
	assert.Equal(t, "a b", string(data))

	_, _, err = decodeDataURI("data:nocomma")
	require.ErrorIs(t, err, errInvalidDataURI)
}

func TestTriangulate(t *testing.T) {
	assert.Equal(t, []uint32{0, 1, 2, 2, 1, 3}, triangulate([]uint32{0, 1, 2, 3}, gltfPrimitiveModeTriangleStrip))
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, triangulate([]uint32{0, 1, 2, 3}, gltfPrimitiveModeTriangleFan))
	assert.Equal(t, []uint32{0, 1, 2}, triangulate([]uint32{0, 1, 2, 3}, gltfPrimitiveModeTriangles))
}

func TestLoadImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	src.Set(3, 1, color.NRGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	l := NewLoader()
	img, err := l.LoadImage(context.Background(), srv.URL+"/sky.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), img.Rect)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, img.RGBAAt(3, 1))

	_, err = l.LoadImage(context.Background(), "data:text/plain;base64,aGk=")
	require.Error(t, err)
}
