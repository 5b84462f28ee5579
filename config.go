// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package cachefile

// Config represents the parameters to configure Cache creation.
type Config struct {
	// The path to the directory for cache files. It should be a dedicated
	// directory used exclusively for this cache. The directory will be
	// automatically created if it does not exist, including missing
	// parent directories. If it is empty, the directory is derived from
	// DocumentRoot instead.
	Dir string

	// The base directory used when Dir is empty. Entries then live under
	// <DocumentRoot>/tmp/api. Pass the document root of the surrounding
	// application explicitly; the cache never reads it from the process
	// environment. Leaving both Dir and DocumentRoot empty is an error.
	DocumentRoot string

	// The filename prefix for every entry this cache manages. It is
	// normalized as if by SetPrefix. If it is empty, DefaultPrefix is
	// used.
	Prefix string

	// If not nil, Cache outputs log messages to this Logger object.
	Logger Logger

	// If true, Cache outputs debug log messages. Only effective if
	// Logger is not nil.
	DebugLog bool
}

// DefaultPrefix is the filename prefix used when none is configured.
const DefaultPrefix = "cachefile"

// cacheExt is the fixed extension of every entry file.
const cacheExt = ".cache"

// dirPerm and filePerm are the permission modes for the cache directory and
// the entry files.
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Logger is the interface implemented to receive log messages from a Cache
// instance.
type Logger interface {
	CacheFileLog(string)
}
