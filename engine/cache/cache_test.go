package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-showcase/common"
	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDependsOnAssetAndMeta(t *testing.T) {
	base := Key("42", nil)
	assert.Len(t, base, 64)
	assert.Equal(t, base, Key("42", nil))
	assert.NotEqual(t, base, Key("43", nil))

	meta := &common.DisplayMeta{DoubleSided: common.Ptr(false)}
	withMeta := Key("42", meta)
	assert.NotEqual(t, base, withMeta)
	assert.Equal(t, withMeta, Key("42", &common.DisplayMeta{DoubleSided: common.Ptr(false)}))
	assert.NotEqual(t, withMeta, Key("42", &common.DisplayMeta{DoubleSided: common.Ptr(true)}))
}

func TestPutGetRoundTripInMemory(t *testing.T) {
	memFS, err := mem.NewFS()
	require.NoError(t, err)
	c, err := NewCache(WithFS(memFS))
	require.NoError(t, err)

	key := Key("42", nil)
	_, err = c.Get(key)
	require.ErrorIs(t, err, ErrMiss)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, c.Put(&Entry{Key: key, AssetID: "42", DataURL: "data:image/png;base64,AA==", CreatedAt: created}))

	got, err := c.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "42", got.AssetID)
	assert.Equal(t, "data:image/png;base64,AA==", got.DataURL)
	assert.True(t, created.Equal(got.CreatedAt))

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = hackpadfs.Stat(memFS, "renders/"+key[:2]+"/"+key+".msgpack")
	require.NoError(t, err)

	require.NoError(t, c.Delete(key))
	require.NoError(t, c.Delete(key))
	_, err = c.Get(key)
	require.ErrorIs(t, err, ErrMiss)
}

func TestPutSetsCreatedAt(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c, err := NewCache(WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	e := &Entry{Key: Key("a", nil), AssetID: "a"}
	require.NoError(t, c.Put(e))
	assert.True(t, now.Equal(e.CreatedAt))
}

func TestMaxAgeExpiresEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := NewCache(WithMaxAge(time.Hour), WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	key := Key("a", nil)
	require.NoError(t, c.Put(&Entry{Key: key, AssetID: "a"}))
	_, err = c.Get(key)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = c.Get(key)
	require.ErrorIs(t, err, ErrMiss)
}

func TestInvalidKeysRejected(t *testing.T) {
	c, err := NewCache()
	require.NoError(t, err)

	for _, key := range []string{"", "../../etc/passwd", "zz" + Key("a", nil)[2:]} {
		_, err := c.Get(key)
		require.ErrorIs(t, err, ErrInvalidKey)
		require.ErrorIs(t, c.Put(&Entry{Key: key}), ErrInvalidKey)
	}
	require.ErrorIs(t, c.Put(nil), ErrInvalidKey)
}

func TestCorruptEntryIsMiss(t *testing.T) {
	memFS, err := mem.NewFS()
	require.NoError(t, err)
	c, err := NewCache(WithFS(memFS))
	require.NoError(t, err)

	key := Key("a", nil)
	dir := "renders/" + key[:2]
	require.NoError(t, hackpadfs.MkdirAll(memFS, dir, 0o755))
	require.NoError(t, hackpadfs.WriteFullFile(memFS, dir+"/"+key+".msgpack", []byte{0xc1}, 0o644))

	_, err = c.Get(key)
	require.ErrorIs(t, err, ErrMiss)
}

func TestDirectoryBackedCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := NewCache(WithDir(dir))
	require.NoError(t, err)

	key := Key("disk", nil)
	require.NoError(t, c.Put(&Entry{Key: key, AssetID: "disk", DataURL: "data:x"}))

	_, err = os.Stat(filepath.Join(dir, "renders", key[:2], key+".msgpack"))
	require.NoError(t, err)

	reopened, err := NewCache(WithDir(dir))
	require.NoError(t, err)
	got, err := reopened.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "data:x", got.DataURL)
}
