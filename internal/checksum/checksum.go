// Package checksum provides content digests for change detection and stable keys.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the first n hex characters of the digest of the joined parts.
func Short(n int, parts ...string) string {
	s := Sum([]byte(strings.Join(parts, "\x00")))
	if n <= 0 || n > len(s) {
		return s
	}
	return s[:n]
}
