package random

import (
	crand "crypto/rand"
	"math/big"
	mrand "math/rand"
)

const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// String is not suitable for secrets; use StringSecure for those.
func String(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[mrand.Intn(len(charset))]
	}
	return string(b)
}

// StringSecure falls back to String if the system source fails.
func StringSecure(length int) string {
	b := make([]byte, length)
	l := big.NewInt(int64(len(charset)))
	for i := range b {
		num, err := crand.Int(crand.Reader, l)
		if err != nil {
			return String(length)
		}
		b[i] = charset[num.Int64()]
	}
	return string(b)
}
