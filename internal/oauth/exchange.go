package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/maxplatform/signin-front/internal/log"
	"github.com/maxplatform/signin-front/internal/session"
	"golang.org/x/oauth2"
)

// ExchangeClient redeems authorization codes at the provider token endpoint.
//
// Exactly one exchange is attempted per code. Provider codes are single-use,
// so a failed exchange is terminal for the attempt: retrying means minting a
// brand-new attempt, never re-sending the consumed code.
type ExchangeClient struct {
	clientID    string
	tokenURL    string
	redirectURI string
	httpClient  *http.Client
}

// NewExchangeClient creates a token exchange client
func NewExchangeClient(clientID, tokenURL, redirectURI string) *ExchangeClient {
	return &ExchangeClient{
		clientID:    clientID,
		tokenURL:    tokenURL,
		redirectURI: redirectURI,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Exchange posts grant_type=authorization_code with the PKCE verifier and
// returns a fully populated Session. Failure never yields a partial Session.
func (c *ExchangeClient) Exchange(ctx context.Context, code, codeVerifier string) (session.Session, error) {
	cfg := &oauth2.Config{
		ClientID:    c.clientID,
		RedirectURL: c.redirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		log.LogErrorWithFields("exchange", "Token exchange failed", map[string]any{
			"error": err.Error(),
		})
		return session.Session{}, &FlowError{
			Kind:        KindExchangeFailed,
			Description: exchangeDetail(err),
		}
	}

	return session.Session{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.Expiry,
		ObtainedAt:  time.Now(),
	}, nil
}

// exchangeDetail extracts the provider's structured error body when present,
// falling back to a transport-level description.
func exchangeDetail(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode != "" {
			if re.ErrorDescription != "" {
				return fmt.Sprintf("%s: %s", re.ErrorCode, re.ErrorDescription)
			}
			return re.ErrorCode
		}
		return fmt.Sprintf("token endpoint returned status %d", re.Response.StatusCode)
	}
	return "token endpoint unreachable: " + err.Error()
}
