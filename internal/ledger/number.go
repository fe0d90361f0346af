package ledger

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// accountNumberLength is the number of decimal digits in an account number.
const accountNumberLength = 10

// generateAccountNumber draws a random digit string from crypto/rand.
// Numbers are routing keys visible to other customers, so they must not be
// derivable from creation order. Uniqueness is enforced by the database;
// callers retry on collision.
func generateAccountNumber() (string, error) {
	digits := make([]byte, accountNumberLength)
	for i := range digits {
		// The first digit is drawn from 1-9 so numbers keep a fixed
		// printed width without skewing toward any digit.
		span, base := int64(10), byte('0')
		if i == 0 {
			span, base = 9, '1'
		}
		n, err := rand.Int(rand.Reader, big.NewInt(span))
		if err != nil {
			return "", fmt.Errorf("failed to generate account number: %w", err)
		}
		digits[i] = base + byte(n.Int64())
	}
	return string(digits), nil
}
