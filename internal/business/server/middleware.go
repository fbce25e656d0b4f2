package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/retrieval-gateway/internal/serviceerr"
)

// errorModel is the JSON error body shared by all endpoints.
type errorModel struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// bearerMiddleware rejects any request whose Authorization header does not
// carry the configured bearer token. Handlers behind it never see an
// unauthenticated request.
func bearerMiddleware(token []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, value, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") ||
			subtle.ConstantTimeCompare([]byte(value), token) != 1 {
			writeError(w, r, serviceerr.ErrUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeError maps the error to the service error model. Errors without a
// service code are reported as unknown so collaborator detail never
// reaches the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var serviceErr *serviceerr.Error
	if !errors.As(err, &serviceErr) {
		slogctx.Error(r.Context(), "Unclassified handler error", "error", err)

		serviceErr = serviceerr.ErrUnknown
	}

	writeJSON(w, serviceErr.HTTPStatus(), errorModel{
		Error:            string(serviceErr.Err),
		ErrorDescription: serviceErr.Description,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
