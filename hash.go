// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package cachefile

import (
	"crypto/md5" //nolint:gosec // fingerprint only, never a security boundary
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the size, in bytes, of an entry identifier.
const HashSize = md5.Size

// hashValue derives the identifier for v: a canonical serialized form of v is
// digested into HashSize*2 lowercase hex characters. The serialization is
// encoding/json, which produces byte-identical output for equal logical
// values, map keys sorted. The digest is MD5, chosen as a fast deterministic
// fingerprint; identifiers are never persisted across versions, so the exact
// encoding is not a compatibility contract.
func hashValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("value is not hashable: %w", err)
	}
	sum := md5.Sum(b) //nolint:gosec // see above

	return hex.EncodeToString(sum[:]), nil
}

// validHash reports whether s is a well-formed identifier: exactly HashSize*2
// hexadecimal characters. Anything else is treated as unset.
func validHash(s string) bool {
	if len(s) != HashSize*2 {
		return false
	}
	_, err := hex.DecodeString(s)

	return err == nil
}
