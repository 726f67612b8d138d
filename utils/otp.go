// utils/otp.go
package utils

import (
	"crypto/rand"
	"math/big"
)

// GenerateNumericOTP generates a random numeric OTP of the specified length.
// The code is a short-lived credential, so it is drawn from crypto/rand.
func GenerateNumericOTP(length int) (string, error) {
	const digits = "0123456789"
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		result[i] = digits[num.Int64()]
	}
	return string(result), nil
}
