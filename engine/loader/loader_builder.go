package loader

import (
	"log/slog"
	"net/http"
	"time"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithHTTPClient is an option builder that sets the HTTP client used for remote assets.
//
// Parameters:
//   - c: the HTTP client
//
// Returns:
//   - LoaderBuilderOption: a function that applies the client option to a loader
func WithHTTPClient(c *http.Client) LoaderBuilderOption {
	return func(l *loader) {
		if c != nil {
			l.fetcher.client = c
		}
	}
}

// WithTimeout is an option builder that sets the timeout of the default HTTP client.
//
// Parameters:
//   - d: the request timeout
//
// Returns:
//   - LoaderBuilderOption: a function that applies the timeout option to a loader
func WithTimeout(d time.Duration) LoaderBuilderOption {
	return func(l *loader) {
		if d > 0 {
			l.fetcher.client = &http.Client{Timeout: d}
		}
	}
}

// WithUserAgent is an option builder that sets the User-Agent header sent with remote fetches.
//
// Parameters:
//   - ua: the user agent
//
// Returns:
//   - LoaderBuilderOption: a function that applies the user agent option to a loader
func WithUserAgent(ua string) LoaderBuilderOption {
	return func(l *loader) {
		if ua != "" {
			l.fetcher.userAgent = ua
		}
	}
}

// WithMaxBytes is an option builder that caps the size of any fetched payload.
//
// Parameters:
//   - n: the maximum payload size in bytes
//
// Returns:
//   - LoaderBuilderOption: a function that applies the size limit to a loader
func WithMaxBytes(n int64) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.fetcher.maxBytes = n
		}
	}
}

// WithLogger is an option builder that sets the loader's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger.With("component", "loader")
		}
	}
}
