package loader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/clone"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp"
)

// decodeRGBA decodes a PNG, JPEG or WebP payload into a tightly packed RGBA image.
func decodeRGBA(data []byte) (*image.RGBA, error) {
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		kind, _ := filetype.Match(data)
		return nil, fmt.Errorf("decode %s: %w", kind.MIME.Value, err)
	}
	return clone.AsRGBA(decoded), nil
}

func (l *loader) LoadImage(ctx context.Context, source string) (*image.RGBA, error) {
	data, err := l.fetcher.fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	img, err := decodeRGBA(data)
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", displaySource(source), err)
	}
	l.logger.Debug("image loaded", "source", displaySource(source), "width", img.Rect.Dx(), "height", img.Rect.Dy())
	return img, nil
}
