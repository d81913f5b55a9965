package internal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maxplatform/signin-front/internal/config"
	"github.com/maxplatform/signin-front/internal/crypto"
	"github.com/maxplatform/signin-front/internal/flow"
	"github.com/maxplatform/signin-front/internal/log"
	"github.com/maxplatform/signin-front/internal/oauth"
	"github.com/maxplatform/signin-front/internal/origin"
	"github.com/maxplatform/signin-front/internal/server"
	"github.com/maxplatform/signin-front/internal/session"
	"github.com/maxplatform/signin-front/internal/storage"
	"github.com/maxplatform/signin-front/internal/transport"
)

// SigninFront is the complete sign-in frontend application
type SigninFront struct {
	config     config.Config
	httpServer *server.HTTPServer
	cleanup    *storage.CleanupManager
	pending    storage.PendingStore
}

// NewSigninFront builds the application with all dependencies wired
func NewSigninFront(ctx context.Context, cfg config.Config) (*SigninFront, error) {
	log.LogInfoWithFields("signinfront", "Building sign-in frontend", map[string]any{
		"baseURL": cfg.Frontend.BaseURL,
		"storage": string(cfg.Storage.Kind),
	})

	baseURL, err := url.Parse(cfg.Frontend.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	ownOrigin := baseURL.Scheme + "://" + baseURL.Host
	callbackURL := cfg.Frontend.BaseURL + "/oauth/callback"

	origins, err := origin.NewValidator(cfg.Frontend.TrustedOrigins)
	if err != nil {
		return nil, fmt.Errorf("invalid trusted origins: %w", err)
	}

	sealer, err := crypto.NewSealer([]byte(cfg.Storage.EncryptionKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create sealer: %w", err)
	}

	pending, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	builder := oauth.NewRequestBuilder(
		cfg.Provider.ClientID,
		cfg.Provider.AuthorizationURL,
		cfg.Provider.TokenURL,
		callbackURL,
		cfg.Provider.Scopes,
	)
	exchanger := oauth.NewExchangeClient(cfg.Provider.ClientID, cfg.Provider.TokenURL, callbackURL)

	bus := transport.NewBus()
	launcher := transport.BrowserLauncher{}

	auxiliary := transport.NewAuxiliaryTransport(launcher, bus, origins, ownOrigin)
	if d := time.Duration(cfg.Flow.AttemptTimeout); d > 0 {
		auxiliary = auxiliary.WithTimeout(d)
	}
	if d := time.Duration(cfg.Flow.PollInterval); d > 0 {
		auxiliary = auxiliary.WithPollInterval(d)
	}

	pendingTTL := time.Duration(cfg.Flow.PendingTTL)
	if pendingTTL <= 0 {
		pendingTTL = transport.DefaultAttemptTimeout
	}
	redirect := transport.NewRedirectTransport(pending, sealer, pendingTTL)

	auth := flow.New(
		builder,
		transport.NewSelector(launcher),
		auxiliary,
		redirect,
		exchanger,
		session.NewStore(),
		bus,
		ownOrigin,
	)

	mux := http.NewServeMux()
	server.NewHandlers(auth, cfg.Frontend.BaseURL).Register(mux)
	handler := server.ChainMiddleware(mux,
		server.NewLoggerMiddleware("http"),
		server.NewRecoverMiddleware("http"),
	)

	cleanupInterval := time.Duration(cfg.Flow.CleanupInterval)
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}

	return &SigninFront{
		config:     cfg,
		httpServer: server.NewHTTPServer(handler, cfg.Frontend.Addr),
		cleanup:    storage.NewCleanupManager(pending, cleanupInterval),
		pending:    pending,
	}, nil
}

// Run starts the application and blocks until shutdown completes
func (s *SigninFront) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.cleanup.Start(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.httpServer.ListenAndServe()
	})
	g.Go(func() error {
		<-ctx.Done()
		log.LogInfoWithFields("signinfront", "Shutting down", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	s.cleanup.Stop()
	if closer, ok := s.pending.(interface{ Close() error }); ok {
		if closeErr := closer.Close(); closeErr != nil {
			log.LogWarnWithFields("signinfront", "Failed to close pending store", map[string]any{
				"error": closeErr.Error(),
			})
		}
	}

	log.LogInfoWithFields("signinfront", "Shutdown complete", nil)
	return err
}

// setupStorage creates the pending-authorization backend from configuration
func setupStorage(ctx context.Context, cfg config.Config) (storage.PendingStore, error) {
	switch cfg.Storage.Kind {
	case config.StorageKindFirestore:
		log.LogInfoWithFields("storage", "Using Firestore pending store", map[string]any{
			"project":    cfg.Storage.GCPProject,
			"collection": cfg.Storage.Collection,
		})
		return storage.NewFirestorePendingStore(ctx, cfg.Storage.GCPProject, cfg.Storage.Collection)
	default:
		log.LogInfoWithFields("storage", "Using in-memory pending store", nil)
		return storage.NewMemoryPendingStore(), nil
	}
}
