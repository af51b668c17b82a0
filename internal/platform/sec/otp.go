// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// OTPDigits is the width of every one-time passcode.
const OTPDigits = 6

// GenerateOTP draws a numeric code uniformly from [0, 10^digits) and keeps
// leading zeros, so "004211" is as likely as "914211".
func GenerateOTP(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("sec: unsupported otp width %d", digits)
	}

	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("sec: failed to draw otp: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}

// RandomToken returns n random bytes encoded as unpadded base64url.
// It backs opaque values such as the OAuth state parameter.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
