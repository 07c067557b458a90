package invite

import (
	"crypto/rand"
	"encoding/base64"
	"regexp"
)

// tokenBytes gives 256 bits of entropy, well above the 128-bit floor for an
// unguessable token.
const tokenBytes = 32

// tokenLen is the base64url length of a generated token.
const tokenLen = 43

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)

// generateToken returns a new opaque invite token.
func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// validTokenFormat rejects malformed tokens before any storage lookup, so
// enumeration probes never reach the database.
func validTokenFormat(token string) bool {
	return len(token) == tokenLen && tokenPattern.MatchString(token)
}

// TokenPrefix returns a short prefix used as a rate-limit key, bounding
// repeated probes against the same token family.
func TokenPrefix(token string) string {
	if len(token) < 8 {
		return token
	}
	return token[:8]
}
