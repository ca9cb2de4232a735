// internal/app/system/token/token.go

// Package token verifies the signed front-gate session cookie.
//
// The cookie value is a compact three-part token (header.payload.signature,
// each segment URL-safe base64 without padding) signed with HMAC-SHA256.
// Verification is pure computation: no framework types, no network calls,
// no clock other than the one the caller passes in.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// CookieName is the cookie the front gate sets after a federated sign-in.
const CookieName = "tgfg_session"

// Verification failures. Malformed and mismatched tokens are both
// non-fatal to callers, but they are distinct so logs can tell garbage
// from tampering.
var (
	ErrMalformedToken    = errors.New("token: malformed token")
	ErrSignatureMismatch = errors.New("token: signature mismatch")
	ErrExpired           = errors.New("token: expired")
)

// Payload is the decoded claims mapping. It always contains "exp" when
// returned by Decode.
type Payload map[string]any

// Email returns the email claim, or "" if absent or not a string.
func (p Payload) Email() string {
	s, _ := p["email"].(string)
	return s
}

// Exp returns the expiry claim as a Unix timestamp.
func (p Payload) Exp() int64 {
	switch v := p["exp"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

// Decode verifies raw against secret and returns the claims.
//
// Failure modes:
//   - ErrMalformedToken: not three segments, undecodable payload,
//     payload not a JSON object, or missing exp claim
//   - ErrSignatureMismatch: valid structure, wrong signature
//   - ErrExpired: valid signature, now at or past exp
func Decode(raw string, secret []byte, now time.Time) (Payload, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}
	header, payload, sig := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(sign(header, payload, secret)), []byte(sig)) {
		return nil, ErrSignatureMismatch
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return nil, ErrMalformedToken
	}

	var claims Payload
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return nil, ErrMalformedToken
	}
	exp, ok := claims["exp"]
	if !ok || exp == nil {
		return nil, ErrMalformedToken
	}
	if claims.Exp() == 0 {
		return nil, ErrMalformedToken
	}
	if now.Unix() >= claims.Exp() {
		return nil, ErrExpired
	}
	return claims, nil
}

// Encode builds a signed token for the given claims. The front gate is
// the normal producer; this exists for tests and local tooling.
func Encode(claims Payload, secret []byte) (string, error) {
	headerJSON, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	header := base64.RawURLEncoding.EncodeToString(headerJSON)
	payload := base64.RawURLEncoding.EncodeToString(payloadJSON)
	return header + "." + payload + "." + sign(header, payload, secret), nil
}

// sign computes the URL-safe unpadded HMAC-SHA256 signature segment.
func sign(header, payload string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(header + "." + payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
