package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// Server represents the gateway's HTTP listener
type Server struct {
	srv *http.Server
}

// New creates a new server instance. WriteTimeout is left unset because
// proxied downloads stream for as long as the client keeps reading.
func New(handler http.Handler, addr string) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.srv.Addr
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	return ignoreClosed(s.srv.ListenAndServe())
}

// Serve accepts connections on l until Shutdown
func (s *Server) Serve(l net.Listener) error {
	return ignoreClosed(s.srv.Serve(l))
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
