package server

import (
	"crypto/subtle"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	slogctx "github.com/veqryn/slog-context"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/openkcm/retrieval-gateway/internal/config"
	"github.com/openkcm/retrieval-gateway/internal/flow"
	"github.com/openkcm/retrieval-gateway/internal/serviceerr"
	"github.com/openkcm/retrieval-gateway/pkg/fingerprint"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// AuthorizationSecrets holds the static values checked by the authorization
// endpoint, plus the bearer token it hands out. All three inputs must match
// at once; there is no partial success.
type AuthorizationSecrets struct {
	ClientID     []byte
	ClientSecret []byte
	IssuedCode   []byte
	BearerToken  []byte
}

// oauthServer implements the authorization bridge endpoints.
type oauthServer struct {
	manager     *flow.Manager
	flowCookie  config.CookieTemplate
	premiumTier string
	secrets     AuthorizationSecrets
}

func newOAuthServer(manager *flow.Manager, flowCookie config.CookieTemplate, premiumTier string, secrets AuthorizationSecrets) *oauthServer {
	return &oauthServer{
		manager:     manager,
		flowCookie:  flowCookie,
		premiumTier: premiumTier,
		secrets:     secrets,
	}
}

// LoginGet captures the authorization request parameters, starts a flow and
// renders the credential form.
func (s *oauthServer) LoginGet(w http.ResponseWriter, r *http.Request) {
	currentFingerprint, err := fingerprint.FromContext(r.Context())
	if err != nil {
		slogctx.Error(r.Context(), "Failed to extract fingerprint", "error", err)
		writeError(w, r, serviceerr.ErrUnknown)

		return
	}

	q := r.URL.Query()
	req := flow.AuthRequest{
		ResponseType: q.Get("response_type"),
		ClientID:     q.Get("client_id"),
		Scope:        q.Get("scope"),
		State:        q.Get("state"),
		RedirectURI:  q.Get("redirect_uri"),
	}

	f, err := s.manager.Initiate(r.Context(), req, currentFingerprint)
	if err != nil {
		writeError(w, r, err)

		return
	}

	http.SetCookie(w, s.flowCookie.ToCookie(f.ID))

	s.renderPage(w, r, "login.html", map[string]string{"CSRFToken": f.CSRFToken})
}

// LoginPost relays the submitted credentials upstream and redirects the
// browser to the callback step.
func (s *oauthServer) LoginPost(w http.ResponseWriter, r *http.Request) {
	flowID, currentFingerprint, err := s.flowContext(r)
	if err != nil {
		writeError(w, r, err)

		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, r, serviceerr.InvalidRequest("malformed form body"))

		return
	}

	_, err = s.manager.SubmitCredentials(r.Context(), flowID, currentFingerprint,
		r.PostForm.Get("csrf_token"), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		writeError(w, r, err)

		return
	}

	http.Redirect(w, r, "../callback/", http.StatusSeeOther)
}

// CallbackGet renders the page that sends the browser to the provider's
// callback URL recorded at the credential step.
func (s *oauthServer) CallbackGet(w http.ResponseWriter, r *http.Request) {
	flowID, currentFingerprint, err := s.flowContext(r)
	if err != nil {
		writeError(w, r, err)

		return
	}

	callbackURL, err := s.manager.CallbackURL(r.Context(), flowID, currentFingerprint)
	if err != nil {
		writeError(w, r, err)

		return
	}

	s.renderPage(w, r, "callback.html", map[string]string{"CallbackURL": callbackURL})
}

type exchangeRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type exchangeResponse struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// CallbackPost exchanges the provider's code, checks the subscription tier
// and tells the browser where to go next.
func (s *oauthServer) CallbackPost(w http.ResponseWriter, r *http.Request) {
	flowID, currentFingerprint, err := s.flowContext(r)
	if err != nil {
		writeError(w, r, err)

		return
	}

	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, serviceerr.InvalidRequest("malformed request body"))

		return
	}

	result, err := s.manager.Complete(r.Context(), flowID, currentFingerprint, req.Code)
	if err != nil {
		writeError(w, r, err)

		return
	}

	resp := exchangeResponse{URL: result.RedirectURL}
	if result.Entitled {
		resp.Message = fmt.Sprintf("You are an active %s member.", s.premiumTier)
	} else {
		resp.Message = fmt.Sprintf("An active %s subscription is required.", s.premiumTier)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Authorization exchanges the relayed code plus client credentials for the
// bearer token. All three values must match the configured ones; any
// mismatch is a 401.
func (s *oauthServer) Authorization(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, serviceerr.InvalidRequest("malformed form body"))

		return
	}

	clientIDMatch := subtle.ConstantTimeCompare([]byte(r.PostForm.Get("client_id")), s.secrets.ClientID)
	clientSecretMatch := subtle.ConstantTimeCompare([]byte(r.PostForm.Get("client_secret")), s.secrets.ClientSecret)
	codeMatch := subtle.ConstantTimeCompare([]byte(r.PostForm.Get("code")), s.secrets.IssuedCode)

	if clientIDMatch&clientSecretMatch&codeMatch != 1 {
		writeError(w, r, serviceerr.ErrUnauthorized)

		return
	}

	writeJSON(w, http.StatusOK, &oidc.AccessTokenResponse{
		AccessToken: string(s.secrets.BearerToken),
		TokenType:   "bearer",
	})
}

// flowContext reads the flow cookie and the client fingerprint. A request
// without a flow cookie has no flow to act on.
func (s *oauthServer) flowContext(r *http.Request) (string, string, error) {
	currentFingerprint, err := fingerprint.FromContext(r.Context())
	if err != nil {
		slogctx.Error(r.Context(), "Failed to extract fingerprint", "error", err)

		return "", "", serviceerr.ErrUnknown
	}

	cookie, err := r.Cookie(s.flowCookie.Name)
	if err != nil {
		return "", "", serviceerr.ErrFlowState
	}

	return cookie.Value, currentFingerprint, nil
}

func (s *oauthServer) renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		slogctx.Error(r.Context(), "Failed to render page", "template", name, "error", err)
	}
}
