package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const MetricsPath = "/metrics"

// Server serves a sink's registry over HTTP until it is closed.
type Server struct {
	listener  net.Listener
	server    *http.Server
	closeOnce sync.Once
}

func StartServer(listenAddr string, sink *Sink, logger zerolog.Logger) (*Server, error) {
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics server: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, sink.Handler())

	s := &Server{
		listener: listener,
		server:   &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
	}

	go func() {
		if serveErr := s.server.Serve(s.listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error().Err(serveErr).Str("addr", listener.Addr().String()).Msg("metrics server stopped")
		}
	}()

	return s, nil
}

func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String() + MetricsPath
}

// Shutdown drains in-flight scrapes, then closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.closeOnce.Do(func() {
		shutdownErr = s.server.Shutdown(ctx)
	})
	return shutdownErr
}
