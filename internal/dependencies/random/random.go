package random

import (
	"crypto/rand"
)

// Random generates identifiers; mocked in tests to make ids predictable
type Random interface {
	// String generates a random string of the given length from the given alphabet
	String(length int, alphabet string) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// String draws uniformly from alphabet, rejecting bytes that would bias the result.
// Alphabets longer than 256 characters are truncated.
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 {
		return ""
	}
	n := min(len(alphabet), 256)
	limit := 256 - 256%n

	result := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(result) < length {
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand.Read does not fail on supported platforms
			panic(err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			result = append(result, alphabet[int(b)%n])
			if len(result) == length {
				break
			}
		}
	}
	return string(result)
}
