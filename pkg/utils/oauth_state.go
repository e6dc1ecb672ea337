package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var ErrInvalidState = errors.New("invalid OAuth state")

// OAuthState travels through the provider redirect and identifies the user
// the callback belongs to.
type OAuthState struct {
	UserID string `json:"userId"`
	Nonce  string `json:"nonce"`
}

// EncodeState returns base64url(json) + "." + base64url(HMAC-SHA256).
func EncodeState(secret []byte, state OAuthState) (string, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return "", err
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + signState(secret, encoded), nil
}

func DecodeState(secret []byte, state string) (*OAuthState, error) {
	encoded, signature, found := strings.Cut(state, ".")
	if !found || encoded == "" || signature == "" {
		return nil, ErrInvalidState
	}

	expected := signState(secret, encoded)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrInvalidState
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidState
	}

	var decoded OAuthState
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, ErrInvalidState
	}
	if decoded.UserID == "" || decoded.Nonce == "" {
		return nil, ErrInvalidState
	}

	return &decoded, nil
}

func signState(secret []byte, encoded string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
