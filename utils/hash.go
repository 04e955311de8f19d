package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// HashKey builds a stable digest for compound cache keys such as per-page
// query results.
func HashKey(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "_")))
	return hex.EncodeToString(sum[:])
}
