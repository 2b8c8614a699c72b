package common

import "crypto/rand"

// GenerateRandByteArray returns n cryptographically random bytes.
// crypto/rand.Read never fails on supported platforms; a failure here means
// the process cannot do anything crypto-related, so we panic.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}
