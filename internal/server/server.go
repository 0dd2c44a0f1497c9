package server

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/logging"
)

// Server represents an HTTP server
type Server struct {
	srv     *http.Server
	tlsCert string
	tlsKey  string
	logger  logging.Logger

	// Addr is the bound address once Start returns
	Addr string
}

// New creates a new server instance. Port "0" picks a free port.
func New(handler http.Handler, port, tlsCert, tlsKey string) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		tlsCert: tlsCert,
		tlsKey:  tlsKey,
		logger:  logging.GetGlobalLogger().WithFields(logging.String("component", "server")),
	}
}

// Start binds the port and serves in the background. Bind failures are
// returned; later serve failures are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errors.ConnectionError("failed to listen on "+s.srv.Addr, err)
	}
	s.Addr = ln.Addr().String()

	if s.tlsCert != "" && s.tlsKey != "" {
		s.srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}

		go func() {
			if err := s.srv.ServeTLS(ln, s.tlsCert, s.tlsKey); err != nil && err != http.ErrServerClosed {
				s.logger.Error("HTTPS server stopped", err)
			}
		}()
		return nil
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server stopped", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
