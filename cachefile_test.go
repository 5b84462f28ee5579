// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package cachefile_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yonetani/go-cachefile"
)

// newTestCache creates a cache over a fresh temporary directory.
func newTestCache(t *testing.T) *cachefile.Cache {
	t.Helper()
	c, err := cachefile.New(t.TempDir())
	require.NoError(t, err)
	return c
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "cache")
	c, err := cachefile.New(dir)
	require.NoError(t, err)
	require.DirExists(t, dir)
	assert.Equal(t, dir, c.Dir())
	assert.Equal(t, cachefile.DefaultPrefix, c.Prefix())
}

func TestNew_CreateFailure(t *testing.T) {
	// A regular file in the way makes directory creation fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := cachefile.New(filepath.Join(blocker, "cache"))
	require.Error(t, err)
}

func TestNewWithConfig_DocumentRootFallback(t *testing.T) {
	root := t.TempDir()
	c, err := cachefile.NewWithConfig(&cachefile.Config{DocumentRoot: root})
	require.NoError(t, err)

	want := filepath.Join(root, "tmp", "api")
	assert.Equal(t, want, c.Dir())
	require.DirExists(t, want)
}

func TestNewWithConfig_Invalid(t *testing.T) {
	_, err := cachefile.NewWithConfig(&cachefile.Config{})
	require.ErrorIs(t, err, cachefile.ErrInvalidConfig)
}

func TestNewWithConfig_PrefixNormalized(t *testing.T) {
	c, err := cachefile.NewWithConfig(&cachefile.Config{
		Dir:    t.TempDir(),
		Prefix: "My Prefix!!",
	})
	require.NoError(t, err)
	assert.Equal(t, "my_prefix", c.Prefix())
}

func TestSetPrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"My Prefix!!", "my_prefix"},
		{"", ""},
		{"API v2 Cache", "api_v2_cache"},
		{"!!!", ""},
		{"  hello  ", "hello"},
		{"already_fine", "already_fine"},
	}
	c := newTestCache(t)
	for _, tc := range tests {
		got := c.SetPrefix(tc.in)
		assert.Equal(t, tc.want, got, "SetPrefix(%q)", tc.in)
		assert.Equal(t, tc.want, c.Prefix())
	}
}

func TestSaveContent_RoundTrip(t *testing.T) {
	c := newTestCache(t)

	_, err := c.SetHash([]string{"a", "b"})
	require.NoError(t, err)

	assert.False(t, c.IsCached())
	_, err = c.Content()
	require.ErrorIs(t, err, cachefile.ErrNotCached)

	require.NoError(t, c.Save("v1"))
	assert.True(t, c.IsCached())

	got, err := c.Content()
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	// Overwrite replaces the content in full, not appended.
	require.NoError(t, c.Save("v2"))
	got, err = c.Content()
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
}

func TestSaveContent_EmptyAndLarge(t *testing.T) {
	c := newTestCache(t)
	_, err := c.SetHash("empty-vs-large")
	require.NoError(t, err)

	require.NoError(t, c.Save(""))
	assert.True(t, c.IsCached())
	got, err := c.Content()
	require.NoError(t, err)
	assert.Empty(t, got)

	large := strings.Repeat("cachefile", 16<<10)
	require.NoError(t, c.Save(large))
	got, err = c.Content()
	require.NoError(t, err)
	assert.Equal(t, large, got)
}

func TestIsCachedData(t *testing.T) {
	c := newTestCache(t)

	key := map[string]int{"a": 1, "b": 2}
	ok, err := c.IsCachedData(key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Save("payload"))

	ok, err = c.IsCachedData(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsCachedData_Unserializable(t *testing.T) {
	c := newTestCache(t)
	h, err := c.SetHash("stable")
	require.NoError(t, err)

	_, err = c.IsCachedData(make(chan int))
	require.Error(t, err)

	// The failed derivation leaves the current identifier unchanged.
	assert.Equal(t, h, c.Hash())
}

func TestHash_UnsetIsEmpty(t *testing.T) {
	c := newTestCache(t)
	assert.Empty(t, c.Hash())
}

func TestFileOps_PanicWithoutHash(t *testing.T) {
	c := newTestCache(t)

	assert.Panics(t, func() { c.IsCached() })
	assert.Panics(t, func() { _, _ = c.Content() })
	assert.Panics(t, func() { _ = c.Save("x") })
	assert.Panics(t, func() { _, _ = c.CheckExpireAge(time.Hour) })
}

// captureLogger collects log lines emitted by the cache.
type captureLogger struct {
	lines []string
}

func (l *captureLogger) CacheFileLog(line string) { l.lines = append(l.lines, line) }

func TestLogger_ReceivesMessages(t *testing.T) {
	log := &captureLogger{}
	c, err := cachefile.NewWithConfig(&cachefile.Config{
		Dir:      t.TempDir(),
		Logger:   log,
		DebugLog: true,
	})
	require.NoError(t, err)

	_, err = c.SetHash("logged")
	require.NoError(t, err)
	require.NoError(t, c.Save("x"))

	expired, err := c.CheckExpireAge(0)
	require.NoError(t, err)
	require.True(t, expired)

	assert.NotEmpty(t, log.lines)
}
