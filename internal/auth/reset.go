package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// ResetCodeTTL is how long a one-time reset code stays valid.
const ResetCodeTTL = 10 * time.Minute

// GenerateResetCode returns a 6-digit numeric code from a CSPRNG.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// PhoneHint returns the last four digits of a phone number for display.
func PhoneHint(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}
