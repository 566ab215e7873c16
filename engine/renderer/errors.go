package renderer

import "errors"

var (
	// ErrDisposed is returned by operations on a disposed renderer or a released surface.
	ErrDisposed = errors.New("renderer disposed")
	// ErrNoAsset is returned by ExportImage before any frame has been rendered.
	ErrNoAsset = errors.New("no rendered frame to export")
	// ErrInvalidSize is returned for non-positive surface dimensions.
	ErrInvalidSize = errors.New("invalid surface size")
	// ErrInvalidDataURL is returned when decoding a string that is not a PNG data URL.
	ErrInvalidDataURL = errors.New("invalid image data URL")
)
