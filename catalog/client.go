package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-showcase/common"
)

const (
	// DefaultBaseURL is the catalog API used when none is configured.
	DefaultBaseURL = "http://localhost:3001"
	// DefaultTake is the page size used when ListOptions.Take is zero.
	DefaultTake = 20

	defaultTimeout  = 15 * time.Second
	maxResponseSize = 8 << 20
)

var (
	// ErrHTTPStatus is wrapped by every *StatusError.
	ErrHTTPStatus = errors.New("unexpected catalog response status")
	// ErrNotFound is returned by GetModel for unknown ids.
	ErrNotFound = errors.New("catalog model not found")
)

// StatusError reports a non-2xx catalog response.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog %s: status %d", e.Path, e.Code)
}

func (e *StatusError) Unwrap() error {
	return ErrHTTPStatus
}

// client is the implementation of the Client interface.
type client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	logger    *slog.Logger
}

// Client is a read-only client for the showcase catalog API.
type Client interface {
	// ListModels fetches one page of models.
	//
	// Parameters:
	//   - ctx: the request context
	//   - opts: page, page size and search text
	//
	// Returns:
	//   - *ModelPage: the page
	//   - error: error if the request or decoding fails
	ListModels(ctx context.Context, opts ListOptions) (*ModelPage, error)

	// GetModel fetches a model by id.
	//
	// Parameters:
	//   - ctx: the request context
	//   - id: the model id
	//
	// Returns:
	//   - *Model: the model
	//   - error: ErrNotFound for unknown ids, or a request error
	GetModel(ctx context.Context, id string) (*Model, error)

	// Filters fetches the available seasons and categories.
	//
	// Parameters:
	//   - ctx: the request context
	//
	// Returns:
	//   - *Filters: the filters
	//   - error: error if the request or decoding fails
	Filters(ctx context.Context) (*Filters, error)

	// AssetURL builds the download URL of a stored asset.
	//
	// Parameters:
	//   - resourceID: the asset resource id
	//
	// Returns:
	//   - string: the asset URL
	AssetURL(resourceID string) string

	// BaseURL returns the API root.
	//
	// Returns:
	//   - string: the base URL without a trailing slash
	BaseURL() string
}

var _ Client = &client{}

// NewClient creates a catalog Client.
//
// Parameters:
//   - options: functional options to configure the client
//
// Returns:
//   - Client: the client
func NewClient(options ...ClientBuilderOption) Client {
	c := &client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  common.Logger("catalog"),
	}
	for _, option := range options {
		option(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c
}

func (c *client) BaseURL() string {
	return c.baseURL
}

func (c *client) AssetURL(resourceID string) string {
	return c.baseURL + "/assets/" + url.PathEscape(resourceID)
}

func (c *client) ListModels(ctx context.Context, opts ListOptions) (*ModelPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(opts.Page, 0)))
	take := opts.Take
	if take <= 0 {
		take = DefaultTake
	}
	q.Set("take", strconv.Itoa(take))
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}

	var page ModelPage
	if err := c.get(ctx, "/models?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *client) GetModel(ctx context.Context, id string) (*Model, error) {
	var m Model
	err := c.get(ctx, "/models/"+url.PathEscape(id), &m)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *client) Filters(ctx context.Context) (*Filters, error) {
	var f Filters
	if err := c.get(ctx, "/models/filters", &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// get issues a GET against the API and decodes the JSON body into out.
func (c *client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("catalog %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return &StatusError{Code: resp.StatusCode, Path: path}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("catalog %s: decode: %w", path, err)
	}
	c.logger.Debug("catalog request", "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))
	return nil
}
