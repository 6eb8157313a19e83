// Package cache keeps content digests of installed procedures so unchanged
// sources are not reinstalled.
//
// Usage:
//
//	d := cache.NewDigests()
//	key := cache.ComputeKey([]byte(sql))
//	if !d.Changed(path, key) {
//	    return
//	}
//	d.Set(path, key)
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeKey generates a cache key from content using SHA-256.
func ComputeKey(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:16]) // use first 128 bits
}

// ComputeKeyWithPrefix generates a cache key with a prefix.
func ComputeKeyWithPrefix(prefix string, content []byte) string {
	return fmt.Sprintf("%s:%s", prefix, ComputeKey(content))
}
