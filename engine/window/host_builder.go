package window

import "log/slog"

type hostConfig struct {
	logger               *slog.Logger
	forceFallbackAdapter bool
	vsync                bool
}

// HostBuilderOption is a functional option for configuring NewHost.
type HostBuilderOption func(c *hostConfig)

// WithFallbackAdapter forces the software (fallback) GPU adapter.
//
// Parameters:
//   - force: true to request the fallback adapter
//
// Returns:
//   - HostBuilderOption: option function to apply
func WithFallbackAdapter(force bool) HostBuilderOption {
	return func(c *hostConfig) {
		c.forceFallbackAdapter = force
	}
}

// WithVSync selects FIFO presentation instead of immediate.
//
// Parameters:
//   - enabled: true to wait for vertical sync
//
// Returns:
//   - HostBuilderOption: option function to apply
func WithVSync(enabled bool) HostBuilderOption {
	return func(c *hostConfig) {
		c.vsync = enabled
	}
}

// WithLogger sets the logger used for presentation warnings.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - HostBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) HostBuilderOption {
	return func(c *hostConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}
