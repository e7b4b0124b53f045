package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateDigitCode returns a random numeric string of the given length,
// suitable for one-time codes. Leading zeros are allowed so the keyspace is
// the full 10^length. Uniqueness against already-issued codes is the
// caller's concern.
func GenerateDigitCode(length int) (string, error) {
	const digits = "0123456789"

	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		code[i] = digits[n.Int64()]
	}
	return string(code), nil
}
