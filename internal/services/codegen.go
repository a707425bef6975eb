package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// charset defines the character set used for generating short codes.
// 62 characters, so an 8-character code has 62^8 (~2.2e14) possible values.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeGenerator produces a candidate short code of the given length.
// Uniqueness is checked by the store, not by the generator.
type CodeGenerator func(length int) (string, error)

// GenerateShortCode generates a cryptographically secure random short code.
func GenerateShortCode(length int) (string, error) {
	code := make([]byte, length)
	n := big.NewInt(int64(len(charset)))
	for i := range code {
		num, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}
