package flow

import "time"

// Phase is the explicit state of an authorization flow. The bridge only
// advances a flow forwards; a step invoked out of order is rejected instead
// of reading fields that were never set. There is no terminal phase:
// completing a flow deletes its record.
type Phase string

const (
	// PhaseInitiated is set after the authorization request parameters were
	// captured at the login page.
	PhaseInitiated Phase = "initiated"
	// PhaseCredentialsSubmitted is set after the credentials were relayed
	// upstream and the callback URL and PKCE verifier were stored.
	PhaseCredentialsSubmitted Phase = "credentials_submitted"
)

// AuthRequest holds the authorization request parameters captured at the
// first step. They are immutable once stored; State in particular must be
// echoed unchanged in the final redirect.
type AuthRequest struct {
	ResponseType string
	ClientID     string
	Scope        string
	State        string
	RedirectURI  string
}

// Flow is one in-progress authorization, keyed by the browser's flow cookie.
type Flow struct {
	ID          string
	Phase       Phase
	Fingerprint string // binds the flow to the client that started it
	CSRFToken   string

	AuthRequest AuthRequest

	// Set when entering PhaseCredentialsSubmitted.
	CallbackURL  string
	PKCEVerifier string

	Expiry time.Time
}

// Expired reports whether the flow has passed its expiry.
func (f Flow) Expired(now time.Time) bool {
	return now.After(f.Expiry)
}
