package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Claims is the subset of JWT payload fields assistbridge cares about when
// attaching a caller identity to logs. Decoding is informational only: the
// token has already been authorized upstream, so no signature verification
// happens here.
type Claims struct {
	Subject  string `json:"sub"`
	Issuer   string `json:"iss"`
	Audience string `json:"aud"`
	Scope    string `json:"scp"`
	Expiry   int64  `json:"exp"`
}

// DecodeClaims extracts the payload claims from a compact JWT without
// verifying its signature. Returns an error if the token is not a three-part
// compact JWT or the payload is not valid base64url JSON.
func DecodeClaims(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("not a compact JWT: expected 3 segments, got %d", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode JWT payload: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("parse JWT payload: %w", err)
	}
	return &claims, nil
}

// LooksLikeJWT reports whether token has the shape of a compact JWT.
func LooksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2 && strings.HasPrefix(token, "eyJ")
}
