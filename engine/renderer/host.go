package renderer

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/png"

	"github.com/gogpu/gg"
)

// FrameID identifies a pending frame request.
type FrameID uint64

// FrameCallback is invoked by a Host when a requested frame is due.
type FrameCallback func()

// Surface is a drawable target of fixed pixel size owned by one renderer.
type Surface interface {
	// Size returns the surface dimensions in pixels.
	//
	// Returns:
	//   - width, height: the surface size
	Size() (width, height int)

	// Resize changes the surface dimensions.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	//
	// Returns:
	//   - error: error if the size is invalid or the backing store cannot be resized
	Resize(width, height int) error

	// Present displays a finished frame. The image must not be modified after the call.
	//
	// Parameters:
	//   - frame: the rendered frame, sized to the surface
	//
	// Returns:
	//   - error: error if presentation fails
	Present(frame *image.RGBA) error

	// Release frees the surface. Safe to call multiple times.
	Release()
}

// Host provides the platform capabilities a renderer needs: surface allocation,
// frame scheduling and image export. The window host drives frames from the
// window loop; the offscreen host uses timers; tests use ManualHost.
type Host interface {
	// CreateSurface allocates a surface.
	//
	// Parameters:
	//   - width, height: the size in pixels
	//
	// Returns:
	//   - Surface: the new surface
	//   - error: error if allocation fails
	CreateSurface(width, height int) (Surface, error)

	// RequestFrame schedules cb to run once on the next frame.
	//
	// Parameters:
	//   - cb: the callback
	//
	// Returns:
	//   - FrameID: an id usable with CancelFrame
	RequestFrame(cb FrameCallback) FrameID

	// CancelFrame drops a pending frame request. Unknown ids are ignored.
	//
	// Parameters:
	//   - id: the request to cancel
	CancelFrame(id FrameID)

	// ExportImage encodes a frame as an image data URL.
	//
	// Parameters:
	//   - frame: the frame to encode
	//
	// Returns:
	//   - string: a data:image/png;base64 URL
	//   - error: error if encoding fails
	ExportImage(frame image.Image) (string, error)
}

// DataURLPrefix is the prefix of every exported image.
const DataURLPrefix = "data:image/png;base64,"

// EncodeDataURL encodes img as a PNG data URL.
//
// Parameters:
//   - img: the image to encode
//
// Returns:
//   - string: the data URL
//   - error: error if PNG encoding fails
func EncodeDataURL(img image.Image) (string, error) {
	dc := gg.NewContextForImage(img)
	defer dc.Close()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return "", err
	}
	return DataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL decodes a data URL produced by EncodeDataURL back into an image.
//
// Parameters:
//   - url: the data URL
//
// Returns:
//   - image.Image: the decoded image
//   - error: error if the URL is malformed or not a PNG
func DecodeDataURL(url string) (image.Image, error) {
	if len(url) < len(DataURLPrefix) || url[:len(DataURLPrefix)] != DataURLPrefix {
		return nil, ErrInvalidDataURL
	}
	data, err := base64.StdEncoding.DecodeString(url[len(DataURLPrefix):])
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
