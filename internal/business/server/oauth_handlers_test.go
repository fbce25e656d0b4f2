package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	datastoremock "github.com/openkcm/retrieval-gateway/internal/datastore/mock"
	"github.com/openkcm/retrieval-gateway/internal/upstream"
)

// stubUpstream stands in for the identity provider in handler tests.
type stubUpstream struct {
	authErr     error
	exchangeErr error
	subErr      error

	tier string
}

func (s *stubUpstream) Authenticate(context.Context, string, string, string, string, string) (string, error) {
	if s.authErr != nil {
		return "", s.authErr
	}

	return "https://provider.example/cb?sid=1", nil
}

func (s *stubUpstream) ExchangeCode(context.Context, string, string) (upstream.Tokens, error) {
	if s.exchangeErr != nil {
		return upstream.Tokens{}, s.exchangeErr
	}

	return upstream.Tokens{AccessToken: "member-at"}, nil
}

func (s *stubUpstream) Subscription(context.Context, string) (string, error) {
	if s.subErr != nil {
		return "", s.subErr
	}

	return s.tier, nil
}

var csrfTokenPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// noRedirectClient returns the response of the redirect itself.
var noRedirectClient = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

const loginQuery = "response_type=code&client_id=client-1&scope=documents&state=state-1&redirect_uri=" +
	"https%3A%2F%2Fcaller.example%2Fcb"

// startLogin performs the login GET and returns the flow cookie and the
// CSRF token embedded in the form.
func startLogin(t *testing.T, baseURL string) (*http.Cookie, string) {
	t.Helper()

	resp, err := noRedirectClient.Get(baseURL + "/oauth/login/?" + loginQuery)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	match := csrfTokenPattern.FindStringSubmatch(string(raw))
	require.Len(t, match, 2)

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "flow_id", cookies[0].Name)

	return cookies[0], match[1]
}

func postLogin(t *testing.T, baseURL string, cookie *http.Cookie, csrfToken string) *http.Response {
	t.Helper()

	form := url.Values{}
	form.Set("csrf_token", csrfToken)
	form.Set("username", "alice")
	form.Set("password", "s3cret")

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, baseURL+"/oauth/login/",
		strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)

	resp, err := noRedirectClient.Do(req)
	require.NoError(t, err)

	return resp
}

func postExchange(t *testing.T, baseURL string, cookie *http.Cookie, code, state string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, baseURL+"/oauth/callback/",
		strings.NewReader(`{"code":"`+code+`","state":"`+state+`"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)

	resp, err := noRedirectClient.Do(req)
	require.NoError(t, err)

	return resp
}

func TestLoginMissingParams(t *testing.T) {
	ts := newTestServer(t, datastoremock.NewInMemDatastore(nil, nil, nil), &stubUpstream{})

	resp, err := noRedirectClient.Get(ts.URL + "/oauth/login/?response_type=code&client_id=client-1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginPostWithoutFlowCookie(t *testing.T) {
	ts := newTestServer(t, datastoremock.NewInMemDatastore(nil, nil, nil), &stubUpstream{})

	form := url.Values{}
	form.Set("username", "alice")
	form.Set("password", "s3cret")

	resp, err := noRedirectClient.Post(ts.URL+"/oauth/login/",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLoginPostRejectedCredentials(t *testing.T) {
	tests := []struct {
		name       string
		authErr    error
		wantStatus int
	}{
		{
			name:       "provider rejects the credentials",
			authErr:    fmt.Errorf("%w: status 401", upstream.ErrRejected),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "provider unreachable",
			authErr:    errors.New("dial tcp: connection refused"),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "provider internal error",
			authErr:    errors.New("provider returned status: 503"),
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, datastoremock.NewInMemDatastore(nil, nil, nil), &stubUpstream{authErr: tc.authErr})

			cookie, csrfToken := startLogin(t, ts.URL)

			resp := postLogin(t, ts.URL, cookie, csrfToken)
			defer resp.Body.Close()

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestExchangeBeforeLogin(t *testing.T) {
	ts := newTestServer(t, datastoremock.NewInMemDatastore(nil, nil, nil), &stubUpstream{tier: "Elite"})

	cookie, _ := startLogin(t, ts.URL)

	// The callback exchange is invoked without the credential step.
	resp := postExchange(t, ts.URL, cookie, "provider-code", "state-1")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBridgeEndToEnd(t *testing.T) {
	tests := []struct {
		name        string
		tier        string
		wantURL     string
		wantMessage string
	}{
		{
			name:        "elite member",
			tier:        "Elite",
			wantURL:     "https://caller.example/cb?code=issued-code-1&state=state-1",
			wantMessage: "You are an active Elite member.",
		},
		{
			name:        "basic member",
			tier:        "Basic",
			wantURL:     "https://store.example/upgrade",
			wantMessage: "An active Elite subscription is required.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, datastoremock.NewInMemDatastore(nil, nil, nil), &stubUpstream{tier: tc.tier})

			cookie, csrfToken := startLogin(t, ts.URL)

			loginResp := postLogin(t, ts.URL, cookie, csrfToken)
			loginResp.Body.Close()
			require.Equal(t, http.StatusSeeOther, loginResp.StatusCode)
			assert.Equal(t, "../callback/", loginResp.Header.Get("Location"))

			pageReq, err := http.NewRequestWithContext(t.Context(), http.MethodGet, ts.URL+"/oauth/callback/", nil)
			require.NoError(t, err)
			pageReq.AddCookie(cookie)

			pageResp, err := noRedirectClient.Do(pageReq)
			require.NoError(t, err)
			page, err := io.ReadAll(pageResp.Body)
			pageResp.Body.Close()
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, pageResp.StatusCode)
			assert.Contains(t, string(page), "https://provider.example/cb?sid=1")

			exchangeResp := postExchange(t, ts.URL, cookie, "provider-code", "state-1")
			require.Equal(t, http.StatusOK, exchangeResp.StatusCode)

			body := decodeBody[exchangeResponse](t, exchangeResp)
			assert.Equal(t, tc.wantMessage, body.Message)
			assert.Equal(t, tc.wantURL, body.URL)
		})
	}
}

func TestAuthorization(t *testing.T) {
	tests := []struct {
		name         string
		clientID     string
		clientSecret string
		code         string
		wantStatus   int
	}{
		{
			name:         "all match",
			clientID:     "client-1",
			clientSecret: "secret-1",
			code:         "issued-code-1",
			wantStatus:   http.StatusOK,
		},
		{
			name:         "wrong client id",
			clientID:     "client-2",
			clientSecret: "secret-1",
			code:         "issued-code-1",
			wantStatus:   http.StatusUnauthorized,
		},
		{
			name:         "wrong client secret",
			clientID:     "client-1",
			clientSecret: "secret-2",
			code:         "issued-code-1",
			wantStatus:   http.StatusUnauthorized,
		},
		{
			name:         "wrong code",
			clientID:     "client-1",
			clientSecret: "secret-1",
			code:         "other-code",
			wantStatus:   http.StatusUnauthorized,
		},
		{
			name:       "all empty",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, datastoremock.NewInMemDatastore(nil, nil, nil), &stubUpstream{})

			form := url.Values{}
			form.Set("client_id", tc.clientID)
			form.Set("client_secret", tc.clientSecret)
			form.Set("code", tc.code)

			resp, err := http.Post(ts.URL+"/oauth/authorization/",
				"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
			require.NoError(t, err)

			assert.Equal(t, tc.wantStatus, resp.StatusCode)

			if tc.wantStatus != http.StatusOK {
				resp.Body.Close()
				return
			}

			body := decodeBody[map[string]any](t, resp)
			assert.Equal(t, testBearerToken, body["access_token"])
			assert.Equal(t, "bearer", body["token_type"])
		})
	}
}
