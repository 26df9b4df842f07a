package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/devlearning/devauth/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Server runs the REST API until its context is cancelled.
type Server struct {
	address string
	handler http.Handler
	log     logging.Logger
}

func NewServer(address string, handler http.Handler, l logging.Logger) *Server {
	return &Server{address: address, handler: handler, log: l.With("module", "http_server")}
}

// Run listens on the configured address and blocks until ctx is done or the
// server fails. A cancelled context shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info(context.Background(), "Shutting down HTTP server")
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			s.log.Error(context.Background(), "HTTP shutdown failed", "error", err)
		}
	}()

	s.log.Info(ctx, "HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
