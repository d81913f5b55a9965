package oauth

import (
	"fmt"
	"time"

	"github.com/maxplatform/signin-front/internal/crypto"
	"golang.org/x/oauth2"
)

// ChallengeMethodS256 is the only supported code_challenge_method
const ChallengeMethodS256 = "S256"

// AuthorizationRequest is the locally retained record of one sign-in attempt.
// The code verifier never leaves the initiating side until token exchange.
type AuthorizationRequest struct {
	AttemptID       string
	State           string
	CodeVerifier    string
	CodeChallenge   string
	ChallengeMethod string
	ClientID        string
	RedirectURI     string
	Scopes          []string
	ReturnTarget    string
	URL             string // fully formed authorization URL
	CreatedAt       time.Time
}

// RequestBuilder assembles provider authorization URLs. Every Build mints a
// fresh state and PKCE pair; values are never reused across attempts, retries
// included.
type RequestBuilder struct {
	clientID         string
	authorizationURL string
	tokenURL         string
	redirectURI      string
	scopes           []string
}

// NewRequestBuilder creates a builder from client configuration
func NewRequestBuilder(clientID, authorizationURL, tokenURL, redirectURI string, scopes []string) *RequestBuilder {
	return &RequestBuilder{
		clientID:         clientID,
		authorizationURL: authorizationURL,
		tokenURL:         tokenURL,
		redirectURI:      redirectURI,
		scopes:           scopes,
	}
}

// Build generates a new AuthorizationRequest with fresh state, verifier, and
// challenge. returnTarget is an optional platform URL to resume after success;
// it is retained locally, never sent to the provider.
func (b *RequestBuilder) Build(returnTarget string) (*AuthorizationRequest, error) {
	attemptID, err := crypto.GenerateSecureToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attempt ID: %w", err)
	}

	state, err := crypto.GenerateSecureToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	verifier, err := crypto.GenerateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	cfg := b.oauth2Config()
	authURL := cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	return &AuthorizationRequest{
		AttemptID:       attemptID,
		State:           state,
		CodeVerifier:    verifier,
		CodeChallenge:   crypto.ChallengeS256(verifier),
		ChallengeMethod: ChallengeMethodS256,
		ClientID:        b.clientID,
		RedirectURI:     b.redirectURI,
		Scopes:          b.scopes,
		ReturnTarget:    returnTarget,
		URL:             authURL,
		CreatedAt:       time.Now(),
	}, nil
}

func (b *RequestBuilder) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    b.clientID,
		RedirectURL: b.redirectURI,
		Scopes:      b.scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  b.authorizationURL,
			TokenURL: b.tokenURL,
		},
	}
}
