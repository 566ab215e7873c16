package loader

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/h2non/filetype"
)

// ErrUnsupportedFormat is returned when an asset payload is neither glTF JSON nor GLB.
var ErrUnsupportedFormat = errors.New("unsupported asset format")

type assetFormat int

const (
	formatGLTF assetFormat = iota
	formatGLB
)

// sniffFormat identifies the payload from its leading bytes rather than its URL,
// since asset store URLs carry no extension.
func sniffFormat(data []byte) (assetFormat, error) {
	if isGLB(data) {
		return formatGLB, nil
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return formatGLTF, nil
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return 0, ErrUnsupportedFormat
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind.MIME.Value)
}
