// Package sha256 provides the natural-key hashing used for dedup.
package sha256

import (
	gosha "crypto/sha256"
	"encoding/hex"
)

// Sum returns the lowercase hex SHA-256 digest of b.
func Sum(b []byte) string {
	d := gosha.Sum256(b)
	return hex.EncodeToString(d[:])
}

// Key derives a record's natural key from its source URL and extracted
// text. The newline separator keeps (url, text) pairs unambiguous.
func Key(url, text string) string {
	return Sum([]byte(url + "\n" + text))
}
