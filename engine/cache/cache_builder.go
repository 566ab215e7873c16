package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
)

// CacheBuilderOption is a functional option for configuring a Cache via NewCache.
// Options that touch the filesystem may fail.
type CacheBuilderOption func(*renderCache) error

// WithFS is an option builder that stores entries on the given filesystem.
//
// Parameters:
//   - fsys: a writable hackpadfs filesystem
//
// Returns:
//   - CacheBuilderOption: a function that applies the filesystem option to a cache
func WithFS(fsys hackpadfs.FS) CacheBuilderOption {
	return func(c *renderCache) error {
		c.fs = fsys
		return nil
	}
}

// WithDir is an option builder that stores entries under a directory of the host filesystem.
// The directory is created if missing.
//
// Parameters:
//   - dir: the directory path
//
// Returns:
//   - CacheBuilderOption: a function that applies the directory option to a cache
func WithDir(dir string) CacheBuilderOption {
	return func(c *renderCache) error {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolve cache dir: %w", err)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
		root := osfs.NewFS()
		fsPath, err := root.FromOSPath(abs)
		if err != nil {
			return fmt.Errorf("cache dir %s: %w", abs, err)
		}
		sub, err := root.Sub(fsPath)
		if err != nil {
			return fmt.Errorf("cache dir %s: %w", abs, err)
		}
		c.fs = sub
		return nil
	}
}

// WithMaxAge is an option builder that makes entries older than d read as misses.
//
// Parameters:
//   - d: the maximum entry age, zero keeps entries forever
//
// Returns:
//   - CacheBuilderOption: a function that applies the max age option to a cache
func WithMaxAge(d time.Duration) CacheBuilderOption {
	return func(c *renderCache) error {
		c.maxAge = d
		return nil
	}
}

// WithNow is an option builder that sets the time source used for CreatedAt and expiry.
//
// Parameters:
//   - now: the time source
//
// Returns:
//   - CacheBuilderOption: a function that applies the time source to a cache
func WithNow(now func() time.Time) CacheBuilderOption {
	return func(c *renderCache) error {
		if now != nil {
			c.now = now
		}
		return nil
	}
}

// WithLogger is an option builder that sets the cache's logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - CacheBuilderOption: a function that applies the logger option to a cache
func WithLogger(logger *slog.Logger) CacheBuilderOption {
	return func(c *renderCache) error {
		if logger != nil {
			c.logger = logger.With("component", "cache")
		}
		return nil
	}
}
