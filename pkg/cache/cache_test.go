package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zephyr-sh/zephyr/pkg/manifest"
	"github.com/zephyr-sh/zephyr/pkg/testutil"
)

func writeManifest(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "module.toml")
	require.NoError(t, os.WriteFile(path, []byte("[module]\nname = \"x\"\nversion = \"1.0\"\n"), 0644))
	return path
}

func TestGetParsesOnMiss(t *testing.T) {
	dir := testutil.TempDir(t, "cache-*")
	path := writeManifest(t, dir)

	c := New(200, "")
	calls := 0
	m, err := c.Get(path, func(p string) (*manifest.Module, error) {
		calls++
		return manifest.Parse(filepath.Dir(p))
	})
	require.NoError(t, err)
	assert.Equal(t, "x", m.Name)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
}

func TestGetHitsCacheWhenMtimeUnchanged(t *testing.T) {
	dir := testutil.TempDir(t, "cache-*")
	path := writeManifest(t, dir)

	c := New(200, "")
	parseFn := func(p string) (*manifest.Module, error) {
		return manifest.Parse(filepath.Dir(p))
	}

	_, err := c.Get(path, parseFn)
	require.NoError(t, err)

	calls := 0
	_, err = c.Get(path, func(p string) (*manifest.Module, error) {
		calls++
		return parseFn(p)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls, "second Get should hit the cache, not reparse")
}

func TestGetReparsesAfterMtimeChange(t *testing.T) {
	dir := testutil.TempDir(t, "cache-*")
	path := writeManifest(t, dir)

	c := New(200, "")
	parseFn := func(p string) (*manifest.Module, error) {
		return manifest.Parse(filepath.Dir(p))
	}
	_, err := c.Get(path, parseFn)
	require.NoError(t, err)

	// Force a distinct mtime.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	calls := 0
	_, err = c.Get(path, func(p string) (*manifest.Module, error) {
		calls++
		return parseFn(p)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "mtime change should force a reparse")
}

func TestGetReturnsClone(t *testing.T) {
	dir := testutil.TempDir(t, "cache-*")
	path := writeManifest(t, dir)

	c := New(200, "")
	parseFn := func(p string) (*manifest.Module, error) {
		return manifest.Parse(filepath.Dir(p))
	}
	m1, err := c.Get(path, parseFn)
	require.NoError(t, err)
	m1.Name = "mutated"

	m2, err := c.Get(path, parseFn)
	require.NoError(t, err)
	assert.Equal(t, "x", m2.Name, "cache must never share owned storage with callers")
}

func TestGetMissingFileErrors(t *testing.T) {
	dir := testutil.TempDir(t, "cache-*")
	c := New(200, "")
	_, err := c.Get(filepath.Join(dir, "nope"), func(p string) (*manifest.Module, error) {
		t.Fatal("parseFn should not be called for a stat failure")
		return nil, nil
	})
	assert.Error(t, err)
}

func TestEvictionBoundsSize(t *testing.T) {
	dir := testutil.TempDir(t, "cache-*")
	c := New(2, "")
	parseFn := func(p string) (*manifest.Module, error) {
		return &manifest.Module{Name: filepath.Base(filepath.Dir(p))}, nil
	}

	for i := 0; i < 5; i++ {
		sub := filepath.Join(dir, string(rune('a'+i)))
		require.NoError(t, os.Mkdir(sub, 0755))
		p := filepath.Join(sub, "module.toml")
		require.NoError(t, os.WriteFile(p, []byte("[module]\nname=\"m\"\nversion=\"1\"\n"), 0644))
		_, err := c.Get(p, parseFn)
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, c.Len(), 2)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := testutil.TempDir(t, "cache-*")
	path := writeManifest(t, dir)
	snapPath := filepath.Join(dir, "snapshot.json")

	c1 := New(200, snapPath)
	_, err := c1.Get(path, func(p string) (*manifest.Module, error) {
		return manifest.Parse(filepath.Dir(p))
	})
	require.NoError(t, err)
	c1.Save()

	c2 := New(200, snapPath)
	c2.Load()
	assert.Equal(t, 1, c2.Len())
}

func TestLoadIgnoresCorruptSnapshot(t *testing.T) {
	dir := testutil.TempDir(t, "cache-*")
	snapPath := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(snapPath, []byte("not json"), 0644))

	c := New(200, snapPath)
	c.Load()
	assert.Equal(t, 0, c.Len())
}

func TestResolutionCache(t *testing.T) {
	c := New(200, "")
	_, ok := c.GetResolution("key1")
	assert.False(t, ok)

	c.PutResolution("key1", []string{"a", "b", "c"})
	order, ok := c.GetResolution("key1")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}
