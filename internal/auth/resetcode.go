package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// ResetCodeLength is the number of digits in a password reset code.
const ResetCodeLength = 6

// NewResetCode returns a random numeric code and its bcrypt hash.
func NewResetCode(cost int) (code, hash string, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate code: %w", err)
	}
	code = fmt.Sprintf("%0*d", ResetCodeLength, n.Int64())

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash code: %w", err)
	}
	return code, string(hashed), nil
}

// CheckResetCode reports whether code matches hash.
func CheckResetCode(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
