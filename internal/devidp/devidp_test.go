package devidp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/maxplatform/signin-front/internal/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const callbackURI = "https://signin.example.com/oauth/callback"

func newDevServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := New(Config{
		ClientID:     "maxplatform",
		RedirectURIs: []string{callbackURI},
		Scopes:       []string{"openid", "profile"},
		Subject:      "tester",
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// noRedirectClient returns redirects to the caller instead of following them
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestFullAuthorizationCodeFlow(t *testing.T) {
	ts := newDevServer(t)

	builder := oauth.NewRequestBuilder(
		"maxplatform",
		ts.URL+"/oauth2/auth",
		ts.URL+"/oauth2/token",
		callbackURI,
		[]string{"openid", "profile"},
	)
	req, err := builder.Build("")
	require.NoError(t, err)

	// Authorization: the dev server auto-approves and redirects back
	resp, err := noRedirectClient().Get(req.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "signin.example.com", loc.Host)

	outcome, err := oauth.ParseCallback(loc.Query())
	require.NoError(t, err)
	assert.Equal(t, req.State, outcome.State)
	require.NotEmpty(t, outcome.Code)

	// Token exchange with the retained verifier
	exchanger := oauth.NewExchangeClient("maxplatform", ts.URL+"/oauth2/token", callbackURI)
	sess, err := exchanger.Exchange(context.Background(), outcome.Code, req.CodeVerifier)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.AccessToken)
	assert.Equal(t, "bearer", sess.TokenType)
}

func TestExchangeRejectsWrongVerifier(t *testing.T) {
	ts := newDevServer(t)

	builder := oauth.NewRequestBuilder(
		"maxplatform",
		ts.URL+"/oauth2/auth",
		ts.URL+"/oauth2/token",
		callbackURI,
		[]string{"openid"},
	)
	req, err := builder.Build("")
	require.NoError(t, err)

	resp, err := noRedirectClient().Get(req.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	outcome, err := oauth.ParseCallback(loc.Query())
	require.NoError(t, err)

	exchanger := oauth.NewExchangeClient("maxplatform", ts.URL+"/oauth2/token", callbackURI)
	_, err = exchanger.Exchange(context.Background(), outcome.Code, "wrong-verifier-wrong-verifier-wrong-verif")
	fe, ok := oauth.AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, oauth.KindExchangeFailed, fe.Kind)
}

func TestExchangeRejectsConsumedCode(t *testing.T) {
	ts := newDevServer(t)

	builder := oauth.NewRequestBuilder(
		"maxplatform",
		ts.URL+"/oauth2/auth",
		ts.URL+"/oauth2/token",
		callbackURI,
		[]string{"openid"},
	)
	req, err := builder.Build("")
	require.NoError(t, err)

	resp, err := noRedirectClient().Get(req.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	outcome, err := oauth.ParseCallback(loc.Query())
	require.NoError(t, err)

	exchanger := oauth.NewExchangeClient("maxplatform", ts.URL+"/oauth2/token", callbackURI)
	sess, err := exchanger.Exchange(context.Background(), outcome.Code, req.CodeVerifier)
	require.NoError(t, err)
	require.NotEmpty(t, sess.AccessToken)

	// A code is single-use; redeeming it again never yields a second session
	_, err = exchanger.Exchange(context.Background(), outcome.Code, req.CodeVerifier)
	fe, ok := oauth.AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, oauth.KindExchangeFailed, fe.Kind)
}

func TestAuthorizeRejectsUnknownClient(t *testing.T) {
	ts := newDevServer(t)

	builder := oauth.NewRequestBuilder(
		"not-registered",
		ts.URL+"/oauth2/auth",
		ts.URL+"/oauth2/token",
		callbackURI,
		[]string{"openid"},
	)
	req, err := builder.Build("")
	require.NoError(t, err)

	resp, err := noRedirectClient().Get(req.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.NotEqual(t, http.StatusSeeOther, resp.StatusCode)
}

func TestAuthorizeRejectsMissingPKCE(t *testing.T) {
	ts := newDevServer(t)

	// A code request without a code challenge must be refused outright
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {"maxplatform"},
		"redirect_uri":  {callbackURI},
		"state":         {"state-with-plenty-of-entropy"},
		"scope":         {"openid"},
	}
	resp, err := noRedirectClient().Get(ts.URL + "/oauth2/auth?" + q.Encode())
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusSeeOther {
		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		_, cbErr := oauth.ParseCallback(loc.Query())
		assert.Error(t, cbErr)
	}
}
