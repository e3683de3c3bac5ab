package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

// HTTP server timeouts. WriteTimeout stays zero so MCP streams are not cut.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
)

// HTTPServer serves the pillminder router.
type HTTPServer struct {
	handler    http.Handler
	httpServer *http.Server
	addr       string
	listenAddr string
	logger     *slog.Logger
}

// NewHTTPServer creates a server for handler on addr. A non-empty baseURL
// must be HTTPS unless it points at a loopback host.
func NewHTTPServer(handler http.Handler, addr, baseURL string, logger *slog.Logger) (*HTTPServer, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if baseURL != "" {
		if err := validateHTTPSRequirement(baseURL); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{handler: handler, addr: addr, logger: logger}, nil
}

// Start serves until Shutdown. ready, when non-nil, is closed once the
// listener is bound.
func (s *HTTPServer) Start(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listenAddr = ln.Addr().String()

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.logger.Info("starting HTTP server", "addr", s.listenAddr)
	if ready != nil {
		close(ready)
	}

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.logger.Info("shutting down HTTP server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// ListenAddr returns the bound address once Start has signalled ready.
func (s *HTTPServer) ListenAddr() string {
	return s.listenAddr
}

// DefaultBaseURL derives a loopback base URL from a listen address.
func DefaultBaseURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// validateHTTPSRequirement ensures feed links are served over HTTPS.
// Allows HTTP only for loopback addresses (localhost, 127.0.0.1, ::1)
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	// Allow HTTP only for loopback addresses
	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("HTTPS is required for a public base URL (got: %s). Use HTTPS or localhost for development", baseURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
