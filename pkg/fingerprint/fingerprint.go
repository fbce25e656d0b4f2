// Package fingerprint derives a stable client fingerprint from request
// headers. The OAuth bridge binds every flow to the fingerprint captured at
// the first step, so a flow cookie replayed from another client is rejected.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
)

var headerKeys = []string{"user-agent", "accept"}

type ctxKey string

const fingerprintKey ctxKey = "fingerprint"

// FromHTTPRequest hashes the fingerprint headers of the request.
func FromHTTPRequest(r *http.Request) (string, error) {
	if r == nil {
		return "", errors.New("http request is nil")
	}

	h := sha256.New()

	for _, key := range headerKeys {
		h.Write([]byte(r.Header.Get(key)))
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Middleware injects the request's fingerprint into the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp, _ := FromHTTPRequest(r)
		ctxWithFP := context.WithValue(r.Context(), fingerprintKey, fp)
		next.ServeHTTP(w, r.WithContext(ctxWithFP))
	})
}

// FromContext retrieves the fingerprint injected by Middleware.
func FromContext(ctx context.Context) (string, error) {
	fp, ok := ctx.Value(fingerprintKey).(string)
	if !ok {
		return "", errors.New("no fingerprint in ctx")
	}
	return fp, nil
}
