// Package otp generates and checks the shape of six digit one-time codes.
package otp

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// Code range; every code has exactly six digits.
const (
	MinCode = 100000
	MaxCode = 999999
)

var codeSpan = big.NewInt(MaxCode - MinCode + 1)

// GenerateCode draws a code uniformly from [MinCode, MaxCode] using crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+MinCode, 10), nil
}

// IsWellFormed reports whether code is six ASCII digits within [MinCode, MaxCode].
func IsWellFormed(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return code[0] != '0'
}
