// README: API gateway; owns the HTTP listener and delegates to module services.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"autometer/internal/http/handlers"
	"autometer/internal/modules/meter"
	"autometer/internal/modules/tariff"
	"autometer/internal/service"
)

const shutdownTimeout = 10 * time.Second

type ServerDeps struct {
	Meters       *meter.Service
	Tariffs      *tariff.Service
	Trips        *service.TripPlanner
	Autocomplete *service.Autocompleter
	Geocoder     handlers.Geocoder
	Log          *zap.Logger
}

type Server struct {
	srv *http.Server
	log *zap.Logger
}

func NewServer(addr string, deps ServerDeps) *Server {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: deps.Log,
	}
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("http server shutting down")
	return s.srv.Shutdown(shutdownCtx)
}
