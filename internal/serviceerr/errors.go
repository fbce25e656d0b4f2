// Package serviceerr defines the error model shared by the HTTP handlers.
// Every error leaving a handler is mapped to a Code and from there to an
// HTTP status, so collaborator failures never leak detail to the caller.
package serviceerr

import "net/http"

// Code is a machine-readable error code, following the RFC6749 naming
// where an OAuth equivalent exists.
type Code string

const (
	// RFC6749 codes used by the OAuth bridge and the authorization endpoint.
	CodeInvalidRequest         Code = "invalid_request"
	CodeUnauthorizedClient     Code = "unauthorized_client"
	CodeAccessDenied           Code = "access_denied"
	CodeServerError            Code = "server_error"
	CodeTemporarilyUnavailable Code = "temporarily_unavailable"

	// Service-specific codes.
	CodeUnknown             Code = "unknown"
	CodeNotFound            Code = "not_found"
	CodeConflict            Code = "conflict"
	CodeFlowState           Code = "invalid_flow_state"
	CodeFlowExpired         Code = "flow_expired"
	CodeFingerprintMismatch Code = "fingerprint_mismatch"
	CodeUpstream            Code = "upstream_error"
	CodeUnauthorized        Code = "unauthorized"
)

// Error is a service error carrying a code and a caller-safe description.
type Error struct {
	Err         Code
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

// HTTPStatus maps the error code to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Err {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnauthorizedClient, CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeAccessDenied, CodeFingerprintMismatch:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeFlowState:
		return http.StatusConflict
	case CodeFlowExpired:
		return http.StatusGone
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeTemporarilyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for the common failure kinds.
var (
	ErrUnknown             = &Error{Err: CodeUnknown, Description: "unknown error"}
	ErrNotFound            = &Error{Err: CodeNotFound, Description: "not found"}
	ErrConflict            = &Error{Err: CodeConflict, Description: "already exists"}
	ErrInvalidRequest      = &Error{Err: CodeInvalidRequest}
	ErrUnauthorized        = &Error{Err: CodeUnauthorized, Description: "invalid or missing token"}
	ErrInvalidClient       = &Error{Err: CodeUnauthorizedClient, Description: "invalid client credentials"}
	ErrFlowState           = &Error{Err: CodeFlowState, Description: "authorization flow step out of order"}
	ErrFlowExpired         = &Error{Err: CodeFlowExpired, Description: "authorization flow expired"}
	ErrFingerprintMismatch = &Error{Err: CodeFingerprintMismatch, Description: "fingerprint mismatch"}
	ErrUpstream            = &Error{Err: CodeUpstream, Description: "upstream provider error"}
)

// InvalidRequest returns a CodeInvalidRequest error with the given description.
func InvalidRequest(description string) *Error {
	return &Error{Err: CodeInvalidRequest, Description: description}
}

// Upstream returns a CodeUpstream error with the given caller-safe description.
func Upstream(description string) *Error {
	return &Error{Err: CodeUpstream, Description: description}
}
