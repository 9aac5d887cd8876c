package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey returns a filesystem-safe identifier for a user ID.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// UserNamespace returns the storage namespace holding a user's persisted slots.
func UserNamespace(userID string) string {
	return "user:" + HashUserKey(userID)
}
