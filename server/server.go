// Package server owns a listening socket and the HTTP server running on it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

const readHeaderTimeout = 10 * time.Second

var (
	// ErrAlreadyListening is returned when Listen is called twice.
	ErrAlreadyListening = errors.New("server is already listening")
	// ErrNotListening is returned when Serve is called before Listen.
	ErrNotListening = errors.New("server is not listening")
)

// Server serves one handler on one address. The socket is acquired by
// Listen and released when Serve returns.
type Server struct {
	name     string
	addr     string
	http     *http.Server
	listener net.Listener
	wrap     func(net.Listener) net.Listener
	logger   *log.Logger
}

// New creates a server for handler on addr. name is only used in logs.
func New(name, addr string, handler http.Handler, logger *log.Logger) *Server {
	return &Server{
		name: name,
		addr: addr,
		http: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			ErrorLog:          logger.StandardLog(log.StandardLogOptions{ForceLevel: log.WarnLevel}),
		},
		logger: logger,
	}
}

// WithListener makes Listen hand the bound socket to wrap before serving.
func (s *Server) WithListener(wrap func(net.Listener) net.Listener) *Server {
	s.wrap = wrap
	return s
}

// Listen binds the socket. Failing here means nothing was served.
func (s *Server) Listen() error {
	if s.listener != nil {
		return ErrAlreadyListening
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	if s.wrap != nil {
		ln = s.wrap(ln)
	}
	s.listener = ln
	s.logger.Debug("Listening", "server", s.name, "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close releases the socket of a server that was never served.
func (s *Server) Close() error {
	if s.listener == nil {
		return ErrNotListening
	}
	return s.listener.Close()
}

// Serve accepts connections until ctx is done, then closes the listener and
// every open connection without waiting for in-flight responses.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return ErrNotListening
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if err := s.http.Close(); err != nil {
			s.logger.Warn("Failed to close", "server", s.name, "err", err)
		}
		<-errCh
		s.logger.Debug("Stopped", "server", s.name)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s: %w", s.name, err)
	}
}
