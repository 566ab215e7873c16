package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	rootDir   = "renders"
	entryExt  = ".msgpack"
	entryPerm = 0o644
	dirPerm   = 0o755
)

var (
	// ErrMiss is returned by Get when no usable entry exists for a key.
	ErrMiss = errors.New("render cache miss")
	// ErrInvalidKey is returned for keys that are not hex sha256 digests.
	ErrInvalidKey = errors.New("invalid render cache key")
)

// Entry is one cached thumbnail.
type Entry struct {
	Key       string    `msgpack:"key"`
	AssetID   string    `msgpack:"asset_id"`
	DataURL   string    `msgpack:"data_url"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// renderCache is the implementation of the Cache interface.
type renderCache struct {
	mu *sync.Mutex

	fs     hackpadfs.FS
	maxAge time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Cache stores rendered thumbnails keyed by asset id and display metadata.
// Entries are msgpack files under renders/<key[:2]>/<key>.msgpack on a hackpadfs filesystem.
type Cache interface {
	// Get returns the entry for key.
	//
	// Parameters:
	//   - key: a key produced by Key
	//
	// Returns:
	//   - *Entry: the entry
	//   - error: ErrMiss when absent or expired
	Get(key string) (*Entry, error)

	// Put stores an entry, replacing any entry with the same key.
	// A zero CreatedAt is set to the current time.
	//
	// Parameters:
	//   - entry: the entry to store
	//
	// Returns:
	//   - error: error if the key is invalid or the write fails
	Put(entry *Entry) error

	// Delete removes the entry for key. Missing entries are not an error.
	//
	// Parameters:
	//   - key: the key
	//
	// Returns:
	//   - error: error if removal fails
	Delete(key string) error

	// Len counts stored entries, including expired ones not yet replaced.
	//
	// Returns:
	//   - int: the entry count
	//   - error: error if listing fails
	Len() (int, error)
}

var _ Cache = &renderCache{}

// NewCache creates a Cache. Without WithFS or WithDir entries live in memory.
//
// Parameters:
//   - options: functional options to configure the cache
//
// Returns:
//   - Cache: the cache
//   - error: error if the filesystem cannot be prepared
func NewCache(options ...CacheBuilderOption) (Cache, error) {
	c := &renderCache{
		mu:     &sync.Mutex{},
		now:    time.Now,
		logger: common.Logger("cache"),
	}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	if c.fs == nil {
		memFS, err := mem.NewFS()
		if err != nil {
			return nil, fmt.Errorf("create memory fs: %w", err)
		}
		c.fs = memFS
	}
	if err := hackpadfs.MkdirAll(c.fs, rootDir, dirPerm); err != nil {
		return nil, fmt.Errorf("create %s: %w", rootDir, err)
	}
	return c, nil
}

// Key derives the cache key of an asset rendered with the given display metadata.
// It is the hex sha256 of assetID, a zero byte and the JSON encoding of meta.
//
// Parameters:
//   - assetID: the catalog asset id
//   - meta: the display metadata, may be nil
//
// Returns:
//   - string: the key
func Key(assetID string, meta *common.DisplayMeta) string {
	canonical, err := json.Marshal(meta)
	if err != nil {
		canonical = []byte("null")
	}
	h := sha256.New()
	h.Write([]byte(assetID))
	h.Write([]byte{0})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *renderCache) Get(key string) (*Entry, error) {
	p, err := entryPath(key)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := hackpadfs.ReadFile(c.fs, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	var e Entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		c.logger.Warn("dropping corrupt cache entry", "key", key, "error", err)
		_ = hackpadfs.Remove(c.fs, p)
		return nil, ErrMiss
	}
	if c.maxAge > 0 && c.now().Sub(e.CreatedAt) > c.maxAge {
		return nil, ErrMiss
	}
	return &e, nil
}

func (c *renderCache) Put(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: nil entry", ErrInvalidKey)
	}
	p, err := entryPath(entry.Key)
	if err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.now().UTC()
	}
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := hackpadfs.MkdirAll(c.fs, path.Dir(p), dirPerm); err != nil {
		return fmt.Errorf("create %s: %w", path.Dir(p), err)
	}
	if err := hackpadfs.WriteFullFile(c.fs, p, data, entryPerm); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	c.logger.Debug("cache entry stored", "key", entry.Key, "asset_id", entry.AssetID, "bytes", len(data))
	return nil
}

func (c *renderCache) Delete(key string) error {
	p, err := entryPath(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := hackpadfs.Remove(c.fs, p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}

func (c *renderCache) Len() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	shards, err := hackpadfs.ReadDir(c.fs, rootDir)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", rootDir, err)
	}
	n := 0
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		entries, err := hackpadfs.ReadDir(c.fs, path.Join(rootDir, shard.Name()))
		if err != nil {
			return 0, fmt.Errorf("list %s: %w", shard.Name(), err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), entryExt) {
				n++
			}
		}
	}
	return n, nil
}

// entryPath maps a key to its file, rejecting anything that is not a sha256 hex digest.
func entryPath(key string) (string, error) {
	if len(key) != sha256.Size*2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if _, err := hex.DecodeString(key); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return path.Join(rootDir, key[:2], key+entryExt), nil
}
