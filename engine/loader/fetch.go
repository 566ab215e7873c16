package loader

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultUserAgent = "oxy-showcase/1.0"
	defaultTimeout   = 60 * time.Second
	defaultMaxBytes  = 64 << 20
)

var (
	// ErrHTTPStatus is wrapped by StatusError for non-200 responses.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	// ErrTooLarge is returned when a payload exceeds the configured size limit.
	ErrTooLarge = errors.New("payload exceeds size limit")

	errInvalidDataURI = errors.New("invalid data URI")
)

// StatusError reports a non-200 response from the asset store.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrHTTPStatus
}

// fetcher retrieves raw bytes for a source reference.
// Supported sources: http(s) URLs, file:// URLs, bare filesystem paths and data: URIs.
type fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

func newFetcher() *fetcher {
	return &fetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		maxBytes:  defaultMaxBytes,
	}
}

// fetch reads the full payload for source. The context aborts in-flight HTTP requests.
func (f *fetcher) fetch(ctx context.Context, source string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(source, "data:"):
		data, _, err := decodeDataURI(source)
		return data, err
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return f.fetchHTTP(ctx, source)
	case strings.HasPrefix(source, "file://"):
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		return f.fetchFile(u.Path)
	default:
		return f.fetchFile(source)
	}
}

func (f *fetcher) fetchHTTP(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: source, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("fetch %s: %w", source, ErrTooLarge)
	}
	return data, nil
}

func (f *fetcher) fetchFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	if info.Size() > f.maxBytes {
		return nil, fmt.Errorf("fetch %s: %w", path, ErrTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	return data, nil
}

// resolveReference resolves a URI found inside an asset against the asset's own source.
// data: URIs and absolute URLs are returned unchanged.
func resolveReference(base, ref string) string {
	if strings.HasPrefix(ref, "data:") || strings.Contains(ref, "://") {
		return ref
	}
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		b, err := url.Parse(base)
		if err != nil {
			return ref
		}
		r, err := url.Parse(ref)
		if err != nil {
			return ref
		}
		return b.ResolveReference(r).String()
	}
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}
	if base == "" || strings.HasPrefix(base, "data:") {
		return ref
	}
	base = strings.TrimPrefix(base, "file://")
	return filepath.Join(filepath.Dir(base), ref)
}

// decodeDataURI decodes a base64 data URI and returns its bytes and MIME type.
// Format: data:[<mediatype>][;base64],<data>
func decodeDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", errInvalidDataURI
	}
	comma := strings.Index(uri, ",")
	if comma < 0 {
		return nil, "", errInvalidDataURI
	}

	header := uri[5:comma]
	payload := uri[comma+1:]

	mimeType := header
	if semi := strings.Index(header, ";"); semi >= 0 {
		mimeType = header[:semi]
	}

	if !strings.Contains(header, ";base64") {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", errInvalidDataURI, err)
		}
		return []byte(decoded), mimeType, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errInvalidDataURI, err)
	}
	return data, mimeType, nil
}
