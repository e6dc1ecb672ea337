package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateRandomKey returns length random bytes, base64 encoded.
func GenerateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	// Note that err == nil only if we read len(b) bytes.
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

// GenerateEncryptionKey returns a value suitable for TOKEN_ENCRYPTION_KEY.
func GenerateEncryptionKey() (string, error) {
	return GenerateRandomKey(EncryptionKeySize)
}
