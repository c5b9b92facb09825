package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// OwnerKey returns a path-safe identifier for an owner email. Case and
// surrounding spaces do not change the key.
func OwnerKey(owner string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(owner))))
	return hex.EncodeToString(sum[:16])
}
