package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
)

const (
	EncryptionKeySize = 32
	gcmNonceSize      = 12
	gcmTagSize        = 16
)

var (
	ErrInvalidKey = errors.New("encryption key must be 32 bytes (hex or base64)")
	// ErrIntegrity means a stored value could not be authenticated. Callers
	// must treat the value as unusable.
	ErrIntegrity = errors.New("encrypted value failed integrity check")
)

var hexKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// Envelope is the persisted form of an encrypted value.
type Envelope struct {
	IV   string `json:"iv"`
	Tag  string `json:"tag"`
	Data string `json:"data"`
}

// ParseEncryptionKey accepts a 64 character hex string or a base64 string
// that decodes to exactly 32 bytes.
func ParseEncryptionKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, ErrInvalidKey
	}

	var key []byte
	var err error
	if hexKeyPattern.MatchString(raw) {
		key, err = hex.DecodeString(raw)
	} else {
		key, err = base64.StdEncoding.DecodeString(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	if len(key) != EncryptionKeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(key))
	}
	return key, nil
}

type Cipher struct {
	aead        cipher.AEAD
	allowLegacy bool
}

// NewCipher builds an AES-256-GCM cipher. When allowLegacy is set, Decrypt
// returns values that are not envelopes unchanged and logs a warning.
func NewCipher(key []byte, allowLegacy bool) (*Cipher, error) {
	if len(key) != EncryptionKeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &Cipher{aead: aesGCM, allowLegacy: allowLegacy}, nil
}

// Encrypt seals plaintext with a fresh nonce and returns the JSON envelope.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]

	encoded, err := json.Marshal(Envelope{
		IV:   base64.StdEncoding.EncodeToString(nonce),
		Tag:  base64.StdEncoding.EncodeToString(tag),
		Data: base64.StdEncoding.EncodeToString(ciphertext),
	})
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// Decrypt opens an envelope produced by Encrypt.
func (c *Cipher) Decrypt(value string) (string, error) {
	env, ok := parseEnvelope(value)
	if !ok {
		if c.allowLegacy {
			slog.Warn("decrypt: value is not an encrypted envelope, returning it as legacy plaintext")
			return value, nil
		}
		return "", fmt.Errorf("%w: value is not an encrypted envelope", ErrIntegrity)
	}

	nonce, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil || len(nonce) != gcmNonceSize {
		return "", fmt.Errorf("%w: bad nonce", ErrIntegrity)
	}
	tag, err := base64.StdEncoding.DecodeString(env.Tag)
	if err != nil || len(tag) != gcmTagSize {
		return "", fmt.Errorf("%w: bad tag", ErrIntegrity)
	}
	data, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", ErrIntegrity)
	}

	plaintext, err := c.aead.Open(nil, nonce, append(data, tag...), nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plaintext), nil
}

func parseEnvelope(value string) (*Envelope, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil, false
	}

	env := &Envelope{}
	for field, dst := range map[string]*string{"iv": &env.IV, "tag": &env.Tag, "data": &env.Data} {
		s, ok := raw[field].(string)
		if !ok {
			return nil, false
		}
		*dst = s
	}
	return env, true
}
