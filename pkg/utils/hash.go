package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ChecksumHex returns the hex encoded SHA-256 checksum of the provided data.
func ChecksumHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HMACSHA256Hex signs msg with key and returns the hex encoded MAC.
func HMACSHA256Hex(key, msg []byte) string {
	m := hmac.New(sha256.New, key)
	m.Write(msg)
	return hex.EncodeToString(m.Sum(nil))
}

// EqualHex compares two hex encoded MACs in constant time.
func EqualHex(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
