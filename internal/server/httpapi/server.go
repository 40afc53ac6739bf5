// Package httpapi exposes the server's JSON API: account registration and
// login, the sync endpoints the client pushes to and pulls from, settings,
// data deletion, and backup presigning.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/farmledger/internal/logging"
	"github.com/dmitrijs2005/farmledger/internal/server/config"
	"github.com/dmitrijs2005/farmledger/internal/server/services"
)

type Server struct {
	httpServer *http.Server
	log        logging.Logger
}

func NewServer(cfg *config.Config, users *services.UserService, docs *services.DocumentService, backups *services.BackupService, log logging.Logger) *Server {
	h := &handler{
		users:     users,
		documents: docs,
		backups:   backups,
		secretKey: []byte(cfg.SecretKey),
		log:       log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", h.ping)
	r.Post("/api/user/register", h.register)
	r.Get("/api/user/salt", h.getSalt)
	r.Post("/api/user/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Post("/api/sync/batch", h.batchWrite)
		r.Get("/api/sync/{collection}", h.queryRecent)
		r.Delete("/api/data/{collection}", h.deleteCollection)
		r.Delete("/api/data", h.deleteUserData)
		r.Put("/api/settings", h.putSettings)
		r.Get("/api/settings", h.getSettings)
		r.Post("/api/backup/presign", h.presignBackup)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.EndpointAddr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
