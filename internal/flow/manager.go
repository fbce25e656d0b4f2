package flow

import (
	"context"
	"errors"
	"net/url"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/retrieval-gateway/internal/pkce"
	"github.com/openkcm/retrieval-gateway/internal/serviceerr"
	"github.com/openkcm/retrieval-gateway/internal/upstream"
	"github.com/openkcm/retrieval-gateway/pkg/csrf"
)

// Upstream is the identity-provider surface the bridge needs.
type Upstream interface {
	Authenticate(ctx context.Context, username, password, state, challenge, method string) (string, error)
	ExchangeCode(ctx context.Context, code, verifier string) (upstream.Tokens, error)
	Subscription(ctx context.Context, memberToken string) (string, error)
}

// ManagerConfig holds the bridge policy: which subscription tier is
// entitled, where to send everyone else, and the code handed back to the
// caller on success.
type ManagerConfig struct {
	PremiumTier  string
	FallbackURL  string
	IssuedCode   string
	FlowDuration time.Duration
	CSRFKey      []byte
}

// CompletionResult is the outcome of the final bridge step.
type CompletionResult struct {
	// Entitled reports whether the member's subscription tier matched.
	Entitled bool
	// RedirectURL is where the browser is sent next: the caller's
	// redirect URI with state and code on success, the fallback
	// URL otherwise.
	RedirectURL string
}

// Manager drives an authorization flow through its phases. Every step
// verifies the client fingerprint and the current phase before touching
// flow state; steps invoked out of order fail with a flow-state error.
type Manager struct {
	repository Repository
	upstream   Upstream
	source     pkce.Source
	cfg        ManagerConfig

	now func() time.Time
}

func NewManager(repository Repository, up Upstream, cfg ManagerConfig) *Manager {
	return &Manager{
		repository: repository,
		upstream:   up,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Initiate starts a new flow for the given authorization request and
// returns it, with a fresh ID and CSRF token for the credential form.
func (m *Manager) Initiate(ctx context.Context, req AuthRequest, fingerprint string) (Flow, error) {
	if req.ResponseType == "" || req.ClientID == "" || req.Scope == "" || req.State == "" || req.RedirectURI == "" {
		return Flow{}, serviceerr.InvalidRequest("missing authorization request parameter")
	}

	flowID := m.source.FlowID()
	f := Flow{
		ID:          flowID,
		Phase:       PhaseInitiated,
		Fingerprint: fingerprint,
		CSRFToken:   csrf.NewToken(flowID, m.cfg.CSRFKey),
		AuthRequest: req,
		Expiry:      m.now().Add(m.cfg.FlowDuration),
	}

	if err := m.repository.Store(ctx, f); err != nil {
		return Flow{}, err
	}

	slogctx.Debug(ctx, "Initiated authorization flow", "flowID", flowID)

	return f, nil
}

// SubmitCredentials relays the end-user credentials upstream together with
// a fresh PKCE challenge, and records the provider's callback URL. The
// flow must be in PhaseInitiated.
func (m *Manager) SubmitCredentials(ctx context.Context, flowID, fingerprint, csrfToken, username, password string) (Flow, error) {
	f, err := m.load(ctx, flowID, fingerprint, PhaseInitiated)
	if err != nil {
		return Flow{}, err
	}

	if !csrf.Validate(csrfToken, flowID, m.cfg.CSRFKey) {
		return Flow{}, serviceerr.InvalidRequest("invalid form token")
	}

	p := m.source.PKCE()

	callbackURL, err := m.upstream.Authenticate(ctx, username, password, f.AuthRequest.State, p.Challenge, p.Method)
	if err != nil {
		if errors.Is(err, upstream.ErrRejected) {
			slogctx.Warn(ctx, "Credential relay rejected", "flowID", flowID, "error", err)

			return Flow{}, serviceerr.ErrInvalidClient
		}

		slogctx.Error(ctx, "Credential relay failed", "flowID", flowID, "error", err)

		return Flow{}, serviceerr.ErrUpstream
	}

	f.Phase = PhaseCredentialsSubmitted
	f.CallbackURL = callbackURL
	f.PKCEVerifier = p.Verifier

	if err := m.repository.Store(ctx, f); err != nil {
		return Flow{}, err
	}

	return f, nil
}

// CallbackURL returns the provider callback URL recorded for the flow.
// The flow must be in PhaseCredentialsSubmitted.
func (m *Manager) CallbackURL(ctx context.Context, flowID, fingerprint string) (string, error) {
	f, err := m.load(ctx, flowID, fingerprint, PhaseCredentialsSubmitted)
	if err != nil {
		return "", err
	}

	return f.CallbackURL, nil
}

// Complete exchanges the provider's authorization code for the member
// tokens, checks the subscription tier and returns where to send the
// browser. The flow must be in PhaseCredentialsSubmitted; on success the
// flow record is removed, so the member token never outlives the exchange.
func (m *Manager) Complete(ctx context.Context, flowID, fingerprint, code string) (CompletionResult, error) {
	f, err := m.load(ctx, flowID, fingerprint, PhaseCredentialsSubmitted)
	if err != nil {
		return CompletionResult{}, err
	}

	tokens, err := m.upstream.ExchangeCode(ctx, code, f.PKCEVerifier)
	if err != nil {
		slogctx.Error(ctx, "Code exchange failed", "flowID", flowID, "error", err)

		return CompletionResult{}, serviceerr.ErrUpstream
	}

	tier, err := m.upstream.Subscription(ctx, tokens.AccessToken)
	if err != nil {
		slogctx.Error(ctx, "Subscription lookup failed", "flowID", flowID, "error", err)

		return CompletionResult{}, serviceerr.ErrUpstream
	}

	if err := m.repository.Delete(ctx, flowID); err != nil {
		return CompletionResult{}, err
	}

	if tier != m.cfg.PremiumTier {
		slogctx.Info(ctx, "Member not entitled", "flowID", flowID, "tier", tier)

		return CompletionResult{Entitled: false, RedirectURL: m.cfg.FallbackURL}, nil
	}

	redirectURL, err := callerRedirect(f.AuthRequest, m.cfg.IssuedCode)
	if err != nil {
		return CompletionResult{}, serviceerr.InvalidRequest("invalid redirect URI")
	}

	return CompletionResult{Entitled: true, RedirectURL: redirectURL}, nil
}

// load fetches the flow and verifies expiry, client binding and phase.
// Expired flows are removed on sight.
func (m *Manager) load(ctx context.Context, flowID, fingerprint string, want Phase) (Flow, error) {
	f, err := m.repository.Load(ctx, flowID)
	if err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return Flow{}, serviceerr.ErrFlowExpired
		}

		return Flow{}, err
	}

	if f.Expired(m.now()) {
		_ = m.repository.Delete(ctx, flowID)

		return Flow{}, serviceerr.ErrFlowExpired
	}

	if f.Fingerprint != fingerprint {
		return Flow{}, serviceerr.ErrFingerprintMismatch
	}

	if f.Phase != want {
		return Flow{}, serviceerr.ErrFlowState
	}

	return f, nil
}

// callerRedirect appends state and code to the caller's redirect URI,
// echoing the state exactly as it was received.
func callerRedirect(req AuthRequest, issuedCode string) (string, error) {
	u, err := url.Parse(req.RedirectURI)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("state", req.State)
	q.Set("code", issuedCode)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
