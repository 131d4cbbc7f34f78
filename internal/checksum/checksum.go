// Package checksum computes content digests for input data and project files.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Manifest digests a set of path -> checksum entries. The result does not
// depend on map order, and changes when any file is added, removed, renamed
// or modified.
func Manifest(entries map[string]string) string {
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	var b strings.Builder
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte(':')
		b.WriteString(entries[p])
		b.WriteByte('\n')
	}
	return Sum([]byte(b.String()))
}
