// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package cachefile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/petar/GoLLRB/llrb"
	"github.com/tunabay/go-infounit"
)

// Maintenance operations over the whole cache directory. They never touch the
// currently set identifier and only consider files following this cache's
// <prefix>-<hash>.cache naming; anything else in the directory is skipped.

// entryHash extracts the identifier from an entry file name, reporting
// whether the name belongs to this cache.
func (c *Cache) entryHash(fname string) (string, bool) {
	rest, ok := strings.CutPrefix(fname, c.prefix+"-")
	if !ok {
		return "", false
	}
	h, ok := strings.CutSuffix(rest, cacheExt)
	if !ok || !validHash(h) {
		return "", false
	}

	return h, true
}

// walkEntries calls fn for each entry file in the cache directory. It does
// not descend into subdirectories; entries live directly in the cache dir.
func (c *Cache) walkEntries(fn func(path string, finfo fs.FileInfo)) error {
	walker := func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			c.logPrintf("%s: Skip unreadable file.", path)
			return fs.SkipDir
		case d.IsDir():
			if path == c.dir {
				return nil
			}
			return fs.SkipDir
		}
		fname := d.Name()
		if _, ok := c.entryHash(fname); !ok {
			c.logDebugf("%s: Skip unexpected file in cache dir.", fname)
			return nil
		}
		finfo, err := d.Info()
		if err != nil {
			c.logPrintf("%s: Failed to stat: %v", path, err)
			return nil
		}
		fn(path, finfo)

		return nil
	}
	if err := filepath.WalkDir(c.dir, walker); err != nil {
		return fmt.Errorf("%s: failed to read cache dir: %w", c.dir, err)
	}

	return nil
}

// Sweep removes every entry older than maxAge, under the same rule as
// CheckExpireAge: an entry is expired when its modification time plus maxAge
// is strictly before the current time, and a maxAge of zero expires
// everything. It returns the number of entries removed. Entries that fail to
// be removed are logged and counted as remaining.
func (c *Cache) Sweep(maxAge time.Duration) (int, error) {
	var (
		numRemoved  int
		sizeRemoved infounit.ByteCount
	)
	now := c.now()
	err := c.walkEntries(func(path string, finfo fs.FileInfo) {
		if maxAge != 0 && !finfo.ModTime().Add(maxAge).Before(now) {
			return
		}
		sz := infounit.ByteCount(finfo.Size())
		if err := os.Remove(path); err != nil {
			c.logPrintf("%s: Failed to remove expired entry: %v", path, err)
			return
		}
		c.logDebugf(
			"%s: Removed expired entry. size=%.1S, age=%v",
			finfo.Name(), sz, now.Sub(finfo.ModTime()).Round(time.Millisecond),
		)
		numRemoved++
		sizeRemoved += sz
	})
	if err != nil {
		return numRemoved, err
	}
	if numRemoved != 0 {
		c.logPrintf("Removed %d expired entries. total=%.1S", numRemoved, sizeRemoved)
	}

	return numRemoved, nil
}

// candidate represents an entry file that may be evicted by Prune. Among the
// candidates, those with the oldest lastMod are removed first.
type candidate struct {
	path    string
	lastMod time.Time
	size    infounit.ByteCount
}

// Less compares the lastMod values of the two candidates and reports the
// result.
func (c *candidate) Less(xif llrb.Item) bool {
	x := xif.(*candidate) //nolint:forcetypeassert
	return c.lastMod.Before(x.lastMod)
}

// Prune evicts the oldest entries until the cache holds at most maxFiles
// entries totalling at most maxSize. A zero maxFiles or maxSize means no
// limit on that axis. It returns the number of entries removed.
func (c *Cache) Prune(maxFiles uint64, maxSize infounit.ByteCount) (int, error) {
	tree := llrb.New()
	var (
		numFiles  uint64
		totalSize infounit.ByteCount
	)
	err := c.walkEntries(func(path string, finfo fs.FileInfo) {
		cand := &candidate{
			path:    path,
			lastMod: finfo.ModTime(),
			size:    infounit.ByteCount(finfo.Size()),
		}
		tree.InsertNoReplace(cand)
		numFiles++
		totalSize += cand.size
	})
	if err != nil {
		return 0, err
	}

	overflow := func() bool {
		return (maxFiles != 0 && maxFiles < numFiles) || (maxSize != 0 && maxSize < totalSize)
	}

	var numRemoved int
	iterator := func(iif llrb.Item) bool {
		if !overflow() {
			return false
		}
		cand := iif.(*candidate) //nolint:forcetypeassert
		if err := os.Remove(cand.path); err != nil {
			c.logPrintf("%s: Failed to remove entry: %v", cand.path, err)
			return true
		}
		numFiles--
		totalSize -= cand.size
		numRemoved++
		c.logDebugf("%s: Evicted. size=%.1S", filepath.Base(cand.path), cand.size)

		return true
	}
	tree.AscendGreaterOrEqual(&candidate{}, iterator)

	if numRemoved != 0 {
		c.logPrintf(
			"Evicted %d entries. files=%d, size=%.1S",
			numRemoved, numFiles, totalSize,
		)
	}

	return numRemoved, nil
}

// Stats represents cache directory statistics.
type Stats struct {
	Entries   uint64             // number of entry files currently in the cache.
	TotalSize infounit.ByteCount // total size of entry files currently in the cache.
}

// String returns the string representation of Stats.
func (s Stats) String() string {
	return fmt.Sprintf("entries=%d, size=%.1S", s.Entries, s.TotalSize)
}

// Stats walks the cache directory and returns its current statistics. Nothing
// is kept in memory between calls; each call re-reads the directory.
func (c *Cache) Stats() (*Stats, error) {
	st := &Stats{}
	err := c.walkEntries(func(_ string, finfo fs.FileInfo) {
		st.Entries++
		st.TotalSize += infounit.ByteCount(finfo.Size())
	})
	if err != nil {
		return nil, err
	}

	return st, nil
}
