package catalog

import (
	"log/slog"
	"net/http"
	"time"
)

// ClientBuilderOption is a functional option for configuring a Client via NewClient.
type ClientBuilderOption func(*client)

// WithBaseURL is an option builder that sets the API root.
//
// Parameters:
//   - baseURL: the root URL, such as https://api.example.com
//
// Returns:
//   - ClientBuilderOption: a function that applies the base URL option to a client
func WithBaseURL(baseURL string) ClientBuilderOption {
	return func(c *client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient is an option builder that sets the HTTP client.
//
// Parameters:
//   - hc: the HTTP client
//
// Returns:
//   - ClientBuilderOption: a function that applies the HTTP client option to a client
func WithHTTPClient(hc *http.Client) ClientBuilderOption {
	return func(c *client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout is an option builder that sets the timeout of the default HTTP client.
//
// Parameters:
//   - d: the request timeout
//
// Returns:
//   - ClientBuilderOption: a function that applies the timeout option to a client
func WithTimeout(d time.Duration) ClientBuilderOption {
	return func(c *client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithUserAgent is an option builder that sets the User-Agent header.
//
// Parameters:
//   - ua: the user agent
//
// Returns:
//   - ClientBuilderOption: a function that applies the user agent option to a client
func WithUserAgent(ua string) ClientBuilderOption {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithLogger is an option builder that sets the client's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ClientBuilderOption: a function that applies the logger option to a client
func WithLogger(logger *slog.Logger) ClientBuilderOption {
	return func(c *client) {
		if logger != nil {
			c.logger = logger.With("component", "catalog")
		}
	}
}
