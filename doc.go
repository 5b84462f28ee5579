// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

/*
Package cachefile provides a minimal file-backed cache. It derives a stable
hex identifier from arbitrary input data, stores and retrieves opaque string
content in one file per entry, and removes entries by age. It is a local,
single-process, best-effort cache with no locking beyond the filesystem's own.
*/
package cachefile
