package internal

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// use Base58 (like Bitcoin) for generated keys: no ambiguous 0/O/I/l
const (
	alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	base     = 58

	// RandomKeyLength gives a 58^6 (~3.8e10) keyspace, large enough that
	// collisions stay negligible at expected link volume.
	RandomKeyLength = 6

	MinKeyLength = 4
	MaxKeyLength = 20
)

var bigBase = big.NewInt(base)

// Requested keys may also use characters outside the generation alphabet.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ValidKey reports whether key is acceptable as a short key: 4-20 characters,
// alphanumeric plus dash.
func ValidKey(key string) bool {
	if len(key) < MinKeyLength || len(key) > MaxKeyLength {
		return false
	}
	return keyPattern.MatchString(key)
}

// RandomKey returns a random key of the given length drawn uniformly from the
// generation alphabet.
func RandomKey(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, bigBase)
		if err != nil {
			return "", fmt.Errorf("reading random source: %w", err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}
