// Package otpcode produces short numeric verification codes.
package otpcode

import (
	cryptoRand "crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

// Digits is the length of every generated code.
const Digits = 6

const secretBytes = 20

// Generate returns a fresh six digit code. Each call derives the code from a
// new random HOTP secret and counter, so codes are independent of one another.
func Generate() (string, error) {
	raw := make([]byte, secretBytes+8)
	if _, err := cryptoRand.Read(raw); err != nil {
		return "", fmt.Errorf("otpcode: read random: %w", err)
	}

	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:secretBytes])
	counter := binary.BigEndian.Uint64(raw[secretBytes:])

	code, err := hotp.GenerateCodeCustom(secret, counter, hotp.ValidateOpts{
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("otpcode: generate: %w", err)
	}
	return code, nil
}

// Valid reports whether code has the expected shape.
func Valid(code string) bool {
	if len(code) != Digits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
