// Package devidp embeds a development authorization server so the whole
// sign-in flow can run locally and in tests without a real provider. It is
// not for production use: every authorization request is auto-approved for a
// fixed development user.
package devidp

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"time"

	"github.com/maxplatform/signin-front/internal/log"
	"github.com/ory/fosite"
	"github.com/ory/fosite/compose"
	"github.com/ory/fosite/handler/openid"
	"github.com/ory/fosite/storage"
	"github.com/ory/fosite/token/jwt"
)

// Config describes the single public client the dev server accepts
type Config struct {
	ClientID     string
	RedirectURIs []string
	Scopes       []string
	Subject      string
}

// Server is a minimal OAuth 2.1 authorization server: authorization code
// grant with PKCE enforced, nothing else.
type Server struct {
	provider fosite.OAuth2Provider
	subject  string
}

// New builds the dev authorization server with an in-memory store and a
// freshly generated signing key.
func New(cfg Config) (*Server, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate global secret: %w", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}

	fositeConfig := &fosite.Config{
		GlobalSecret:                secret,
		AuthorizeCodeLifespan:       10 * time.Minute,
		AccessTokenLifespan:         time.Hour,
		EnforcePKCE:                 true,
		EnforcePKCEForPublicClients: true,
		SendDebugMessagesToClients:  true,
	}

	store := storage.NewMemoryStore()
	store.Clients[cfg.ClientID] = &fosite.DefaultClient{
		ID:            cfg.ClientID,
		RedirectURIs:  cfg.RedirectURIs,
		ResponseTypes: []string{"code"},
		GrantTypes:    []string{"authorization_code"},
		Scopes:        cfg.Scopes,
		Public:        true,
	}

	subject := cfg.Subject
	if subject == "" {
		subject = "dev-user"
	}

	return &Server{
		provider: compose.ComposeAllEnabled(fositeConfig, store, key),
		subject:  subject,
	}, nil
}

// Handler returns the HTTP surface: /oauth2/auth and /oauth2/token
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/auth", s.authorize)
	mux.HandleFunc("/oauth2/token", s.token)
	return mux
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ar, err := s.provider.NewAuthorizeRequest(ctx, r)
	if err != nil {
		log.LogDebugWithFields("devidp", "Rejected authorize request", map[string]any{
			"error": err.Error(),
		})
		s.provider.WriteAuthorizeError(ctx, w, ar, err)
		return
	}

	// Dev server: consent is implicit, every requested scope is granted
	for _, scope := range ar.GetRequestedScopes() {
		ar.GrantScope(scope)
	}

	resp, err := s.provider.NewAuthorizeResponse(ctx, ar, s.newSession())
	if err != nil {
		s.provider.WriteAuthorizeError(ctx, w, ar, err)
		return
	}
	s.provider.WriteAuthorizeResponse(ctx, w, ar, resp)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accessReq, err := s.provider.NewAccessRequest(ctx, r, s.newSession())
	if err != nil {
		log.LogDebugWithFields("devidp", "Rejected access request", map[string]any{
			"error": err.Error(),
		})
		s.provider.WriteAccessError(ctx, w, accessReq, err)
		return
	}

	resp, err := s.provider.NewAccessResponse(ctx, accessReq)
	if err != nil {
		s.provider.WriteAccessError(ctx, w, accessReq, err)
		return
	}
	s.provider.WriteAccessResponse(ctx, w, accessReq, resp)
}

func (s *Server) newSession() *openid.DefaultSession {
	return &openid.DefaultSession{
		Claims: &jwt.IDTokenClaims{
			Subject:  s.subject,
			IssuedAt: time.Now(),
		},
		Headers: &jwt.Headers{},
		Subject: s.subject,
	}
}
