// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package cachefile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/tunabay/go-infounit"
)

// Cache represents one file cache directory. It holds a filename prefix and
// the currently set entry identifier, so the usual call sequence is SetHash
// once followed by any number of IsCached, Content, Save or CheckExpireAge
// calls for that entry.
//
// Cache is not safe for concurrent use. It keeps no file handles or entry
// content in memory; every operation touches the filesystem again.
type Cache struct {
	dir    string
	prefix string
	hash   string

	log      Logger
	debugLog bool

	now func() time.Time
}

// New creates a cache over the given directory with the default configuration.
func New(dir string) (*Cache, error) {
	return NewWithConfig(&Config{Dir: dir})
}

// NewWithConfig creates a cache using the given configuration parameters. The
// cache directory is created if it does not exist, including any missing
// parent directories.
func NewWithConfig(conf *Config) (*Cache, error) {
	if conf.Dir == "" && conf.DocumentRoot == "" {
		return nil, fmt.Errorf("%w: empty Dir and DocumentRoot", ErrInvalidConfig)
	}

	c := &Cache{
		dir:      conf.Dir,
		prefix:   DefaultPrefix,
		log:      conf.Logger,
		debugLog: conf.DebugLog,
		now:      time.Now,
	}
	if c.dir == "" {
		c.dir = filepath.Join(conf.DocumentRoot, "tmp", "api")
	}
	if conf.Prefix != "" {
		c.SetPrefix(conf.Prefix)
	}

	if err := os.MkdirAll(c.dir, dirPerm); err != nil {
		return nil, fmt.Errorf("%s: %w", c.dir, err)
	}
	c.logDebugf("Cache directory: %s", c.dir)

	return c, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string { return c.dir }

// Prefix returns the current normalized filename prefix.
func (c *Cache) Prefix() string { return c.prefix }

// prefixRx matches each maximal run of characters not allowed in a prefix.
var prefixRx = regexp.MustCompile(`[^0-9a-z]+`)

// SetPrefix normalizes text and stores it as the filename prefix for every
// entry this cache manages. Normalization lowercases the text, replaces each
// run of characters outside [0-9a-z] with a single underscore, and trims
// surrounding whitespace and underscores. It returns the normalized prefix,
// which may be empty.
func (c *Cache) SetPrefix(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = prefixRx.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	c.prefix = s

	return s
}

// SetHash derives the entry identifier for v and stores it as the current
// identifier. Equal values always yield the same identifier, including equal
// nested composite values. It returns an error if v cannot be serialized, in
// which case the current identifier is left unchanged.
func (c *Cache) SetHash(v any) (string, error) {
	h, err := hashValue(v)
	if err != nil {
		return "", err
	}
	c.hash = h
	c.logDebugf("SetHash: %s", h)

	return h, nil
}

// Hash returns the currently set identifier, or an empty string if none has
// been set.
func (c *Cache) Hash() string { return c.hash }

// IsCached reports whether the entry file for the current identifier exists.
func (c *Cache) IsCached() bool {
	_, err := os.Stat(c.filePath())
	return err == nil
}

// IsCachedData derives the identifier for v as if by SetHash, then reports
// whether the corresponding entry file exists.
func (c *Cache) IsCachedData(v any) (bool, error) {
	if _, err := c.SetHash(v); err != nil {
		return false, err
	}
	return c.IsCached(), nil
}

// Content returns the full content of the current entry. It returns
// ErrNotCached if the entry file does not exist. A read failure on an
// existing file is reported as an error.
func (c *Cache) Content() (string, error) {
	path := c.filePath()
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", ErrNotCached
	case err != nil:
		return "", fmt.Errorf("%s: %w", path, err)
	}

	return string(b), nil
}

// Save writes content to the current entry file, replacing any previous
// content entirely. It does not create directories; the cache directory is
// the one ensured at construction.
func (c *Cache) Save(content string) error {
	path := c.filePath()
	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	c.logDebugf("%s: Saved. size=%.1S", filepath.Base(path), infounit.ByteCount(len(content)))

	return nil
}

// CheckExpireAge reports whether the current entry is older than maxAge and
// removes it if so. A maxAge of zero means the entry is always considered
// expired. An entry is expired when its modification time plus maxAge is
// strictly before the current time; an entry exactly at the boundary is not
// expired. If the entry file does not exist, it returns false. A removal
// failure is logged but not reported; a stat failure other than not-exist is
// returned as an error.
func (c *Cache) CheckExpireAge(maxAge time.Duration) (bool, error) {
	path := c.filePath()
	finfo, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%s: %w", path, err)
	}

	if maxAge != 0 && !finfo.ModTime().Add(maxAge).Before(c.now()) {
		return false, nil
	}

	if err := os.Remove(path); err != nil {
		c.logPrintf("%s: Failed to remove expired entry: %v", path, err)
	} else {
		c.logPrintf(
			"%s: Removed expired entry. age=%v",
			filepath.Base(path), c.now().Sub(finfo.ModTime()).Round(time.Millisecond),
		)
	}

	return true, nil
}

// filePath returns the full path of the entry file for the current
// identifier. It panics unless a valid identifier has been set; requesting an
// entry path without one is a programming error, not a recoverable condition.
func (c *Cache) filePath() string {
	if !validHash(c.hash) {
		panic(fmt.Sprintf("cachefile: file operation without a valid identifier (hash=%q)", c.hash))
	}
	return filepath.Join(c.dir, c.prefix+"-"+c.hash+cacheExt)
}

// logPrefix returns the prefix string for log messages, according to the
// current configuration.
func (c *Cache) logPrefix() string {
	if !c.debugLog {
		return ""
	}
	if _, file, line, ok := runtime.Caller(2); ok {
		return fmt.Sprintf("%s:%d:", filepath.Base(file), line)
	}
	return "(unknown):"
}

// logPrintf outputs a log message according to the current configuration.
func (c *Cache) logPrintf(format string, v ...any) {
	if c.log == nil {
		return
	}
	s := make([]string, 0, 2)
	if prefix := c.logPrefix(); prefix != "" {
		s = append(s, prefix)
	}
	s = append(s, fmt.Sprintf(format, v...))

	c.log.CacheFileLog(strings.Join(s, " "))
}

// logDebugf outputs a debug log message according to the current configuration.
func (c *Cache) logDebugf(format string, v ...any) {
	if c.log == nil || !c.debugLog {
		return
	}

	s := make([]string, 0, 2)
	if prefix := c.logPrefix(); prefix != "" {
		s = append(s, prefix)
	}
	s = append(s, fmt.Sprintf(format, v...))

	c.log.CacheFileLog(strings.Join(s, " "))
}
