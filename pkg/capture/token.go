package capture

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	tokenExpiry     = 10 * time.Minute
	apiKeyMinLength = 32
	apiKeyPrefix    = "cap_"
)

// ValidatedAPIKey is an API key that passed the format check.
type ValidatedAPIKey string

func ValidateAPIKeyFormat(apiKey string) (ValidatedAPIKey, *CaptureError) {
	if len(apiKey) >= apiKeyMinLength && strings.HasPrefix(apiKey, apiKeyPrefix) {
		return ValidatedAPIKey(apiKey), nil
	}
	return "", NewCaptureError("Invalid API key format", ErrCodeNotSupported)
}

// MintWSToken signs a short-lived HS256 token from the API key. The backend
// verifies it against the same key; only a truncated key reference travels in
// the claims.
func MintWSToken(apiKey ValidatedAPIKey, userID string) (*WSToken, *CaptureError) {
	expiresAt := time.Now().Add(tokenExpiry)

	claims := jwt.MapClaims{
		"ref": string(apiKey)[:8] + "...",
		"exp": expiresAt.Unix(),
	}
	if userID != "" {
		claims["userId"] = userID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(apiKey))
	if err != nil {
		return nil, WrapError(err, ErrCodeNotSupported, "Failed to sign websocket token")
	}

	return &WSToken{Token: signed, ExpiresAt: expiresAt.UnixMilli()}, nil
}

func IsTokenExpired(token *WSToken) bool {
	return time.Now().UnixMilli() > token.ExpiresAt
}

// DecodeWSToken verifies and decodes a token. Used by tests and by backends
// embedding this package.
func DecodeWSToken(token string, apiKey string) (map[string]interface{}, *CaptureError) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte(apiKey), nil
	})
	if err != nil {
		return nil, WrapError(err, ErrCodeNotSupported, "Failed to decode websocket token")
	}

	if claims, ok := parsed.Claims.(jwt.MapClaims); ok && parsed.Valid {
		return map[string]interface{}(claims), nil
	}
	return nil, NewCaptureError("Invalid websocket token", ErrCodeNotSupported)
}
