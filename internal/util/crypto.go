package util

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// Join keys and match id suffixes use the plain alphanumeric alphabet the
// existing records were issued with; keys must survive copy-paste through
// chat and SMS clients unmangled.
const keyChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomKey returns n characters drawn from the alphanumeric charset
// using crypto/rand.
func RandomKey(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(keyChars)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate key: %w", err)
		}
		out[i] = keyChars[idx.Int64()]
	}
	return string(out), nil
}

// ConstantTimeEqual compares two secrets without leaking their length
// difference through timing.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// MaskKey shortens a join key for log output.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "-****"
}
