package http

import (
	"context"
	"net/http"
	"time"

	"chillcoin/internal/service"
)

type Server struct {
	srv *http.Server
}

func NewServer(addr string, ledger service.Ledger, defaultTopSize int) *Server {
	mux := http.NewServeMux()
	h := NewHandler(ledger, defaultTopSize)
	h.Register(mux)

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
