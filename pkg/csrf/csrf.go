// Package csrf issues and validates HMAC-bound CSRF tokens for the
// credential form served by the OAuth bridge.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const randLength = 64

func formMessage(flowID, randValue string) []byte {
	return fmt.Appendf(nil, "%d!%s!%d!%s", len(flowID), flowID, len(randValue), randValue)
}

// NewToken returns a CSRF token bound to the given flow ID.
func NewToken(flowID string, key []byte) string {
	buf := make([]byte, randLength)
	_, _ = rand.Read(buf)
	randValue := hex.EncodeToString(buf)

	hash := hmac.New(sha256.New, key)
	hash.Write(formMessage(flowID, randValue))
	hmacValue := hash.Sum(nil)

	return hex.EncodeToString(hmacValue) + "." + hex.EncodeToString([]byte(randValue))
}

// Validate reports whether the token was issued for the flow ID with the key.
func Validate(token, flowID string, key []byte) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return false
	}

	receivedHmacValue, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}

	randValue, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}

	hash := hmac.New(sha256.New, key)
	hash.Write(formMessage(flowID, string(randValue)))
	expectedHmacValue := hash.Sum(nil)

	return hmac.Equal(receivedHmacValue, expectedHmacValue)
}
