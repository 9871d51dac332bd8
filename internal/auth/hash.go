package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// PasswordHash derives the login hash the dashboard service expects.
//
// The chain is a compatibility contract with the service and must not be
// reordered: the account identifier is lower-cased and SHA-256 hashed,
// then the raw secret bytes followed by that first digest are hashed
// again, and the second digest is returned base64-encoded (standard
// alphabet, padded). Any deviation produces an authentication failure
// the service reports as a wrong password.
func PasswordHash(user, secret string) string {
	first := sha256.Sum256([]byte(strings.ToLower(user)))

	combined := make([]byte, 0, len(secret)+len(first))
	combined = append(combined, secret...)
	combined = append(combined, first[:]...)
	second := sha256.Sum256(combined)

	return base64.StdEncoding.EncodeToString(second[:])
}
