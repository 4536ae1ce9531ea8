// Package server assembles the web shell: the preview store, the analysis
// strategy, one workflow controller per visitor and the HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kdimtricp/deepguard/internal/analysis"
	"github.com/kdimtricp/deepguard/internal/api"
	"github.com/kdimtricp/deepguard/internal/config"
	"github.com/kdimtricp/deepguard/internal/logger"
	"github.com/kdimtricp/deepguard/internal/session"
	"github.com/kdimtricp/deepguard/internal/storage"
	"github.com/kdimtricp/deepguard/internal/workflow"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

type Server struct {
	cfg      config.Config
	store    *storage.MemoryStore
	sessions *session.Manager
	http     *http.Server
}

// New wires the web shell from cfg. The analysis strategy is shared by all
// sessions; each session gets its own controller.
func New(cfg config.Config) (*Server, error) {
	client, err := analysis.New(cfg.WebAnalysis())
	if err != nil {
		return nil, fmt.Errorf("analysis client: %w", err)
	}

	store := storage.NewMemoryStore()
	policy := cfg.WebPolicy()
	sessions := session.NewManager(func() (*workflow.Controller, error) {
		return workflow.New(workflow.Options{
			Policy:  policy,
			Store:   store,
			Client:  client,
			Timeout: cfg.Analysis.Timeout,
		})
	})

	app, err := api.NewApp(sessions, store, policy)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		http: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.NewRouter(app),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Run serves until ctx is done, then drains connections and closes every
// session so no preview outlives the process.
func (s *Server) Run(ctx context.Context) error {
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	s.sessions.StartJanitor(janitorCtx, sweepInterval, s.cfg.Server.SessionIdle)

	logger.Info("server starting",
		"addr", s.cfg.Server.Addr,
		"mode", s.cfg.Analysis.Mode,
		"max_upload", s.cfg.Web.MaxSize,
		"formats", s.cfg.WebPolicy().Describe(),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err = s.http.Shutdown(shutdownCtx)
		cancel()
	}

	s.sessions.Close()
	logger.Info("server stopped", "live_previews", s.store.Live())

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
