package utils

import (
	"math/rand"
	"time"
)

const keyCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var keyRand = rand.New(rand.NewSource(time.Now().UnixNano()))

// GenerateRandomString returns an alphanumeric string used to
// disambiguate storage keys. Not cryptographic.
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = keyCharset[keyRand.Intn(len(keyCharset))]
	}
	return string(b)
}
