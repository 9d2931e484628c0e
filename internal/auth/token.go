// Package auth handles the optional operator token that guards the HTTP API.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	TokenPrefix = "para_tk_"

	// APIKeyHeader is the browser client's header. It is read when no
	// Authorization header is sent.
	APIKeyHeader = "apikey"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// GenerateToken returns a fresh operator token for PARA_API_TOKEN.
func GenerateToken() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return TokenPrefix + hex.EncodeToString(raw), nil
}

// HashToken is what the server keeps in memory instead of the token.
// Surrounding whitespace from env files is ignored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

// Credential extracts the caller's token: a Bearer Authorization header,
// else the apikey header.
func Credential(h http.Header) string {
	if v := h.Get("Authorization"); v != "" {
		scheme, token, ok := strings.Cut(strings.TrimSpace(v), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(h.Get(APIKeyHeader))
}

// Check matches a presented token against the operator hash. With no hash
// configured every token is rejected; callers decide whether auth is on.
func Check(token, operatorHash string) error {
	if token == "" {
		return ErrMissingToken
	}
	if operatorHash == "" {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(operatorHash)) != 1 {
		return ErrInvalidToken
	}
	return nil
}
