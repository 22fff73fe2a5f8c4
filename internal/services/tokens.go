package services

import (
	"crypto/rand"
	"math/big"
)

// tokenAlphabet is lowercase base36, matching the ids already shared by
// existing clients.
const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var alphabetLen = big.NewInt(int64(len(tokenAlphabet)))

// RandomToken returns n characters drawn uniformly from tokenAlphabet using
// crypto/rand. Access keys are secrets, so math/rand is not acceptable.
func RandomToken(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		b[i] = tokenAlphabet[idx.Int64()]
	}
	return string(b), nil
}
