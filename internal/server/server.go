package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/maxplatform/signin-front/internal/log"
)

// HTTPServer wraps the standard server with sane timeouts and graceful
// shutdown.
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer creates the server for the given handler and address
func NewHTTPServer(handler http.Handler, addr string) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// No blanket write timeout: /login in auxiliary mode holds the
			// connection open until the attempt resolves.
		},
	}
}

// ListenAndServe blocks until the server stops
func (s *HTTPServer) ListenAndServe() error {
	log.LogInfoWithFields("server", "Listening", map[string]any{
		"addr": s.server.Addr,
	})
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains connections and stops the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
