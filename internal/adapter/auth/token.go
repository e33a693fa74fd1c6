// Package auth holds the static token check shared by the gRPC and REST edges
package auth

import (
	"crypto/subtle"
	"strings"
)

// BearerToken strips an optional "Bearer " scheme from an authorization value
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// TokenMatches compares a presented token with the configured one in constant time
func TokenMatches(presented, valid string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(valid)) == 1
}
