// File: internal/api/server.go
// Project: Gargamel League Matchmaker
// Description: HTTP control surface: queue and match operations over JSON
// Version: 1.0.0

// Package api exposes the matchmaker's upstream operations (enqueue,
// dequeue, form_game_now, swap, replace, rebalance, cancel, change_mode,
// get_password) plus read-only queue and match introspection as a
// chi-routed JSON service. It is the operator and bot-integration surface
// in front of internal/controller and internal/matchmaker.
package api

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gargamel-league/matchmaker/internal/controller"
	"github.com/gargamel-league/matchmaker/internal/logger"
	"github.com/gargamel-league/matchmaker/internal/matchmaker"
	"github.com/gargamel-league/matchmaker/internal/metrics"
	"github.com/gargamel-league/matchmaker/internal/store"
)

var log = logger.WithComponent("API")

// Config tunes the HTTP server itself, plus the team size and unfairness
// exponent its form_game_now handler passes to the matchmaker.
type Config struct {
	Addr               string
	TeamSize           int
	UnfairnessExponent int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.TeamSize <= 0 {
		c.TeamSize = 5
	}
	if c.UnfairnessExponent <= 0 {
		c.UnfairnessExponent = 2
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	return c
}

// Server is the matchmaker's HTTP control surface.
type Server struct {
	cfg     Config
	queue   *matchmaker.Queue
	ctrl    *controller.Controller
	matches *store.MatchRepository
	ratings *store.RatingRepository

	rngMu sync.Mutex
	rng   *rand.Rand

	http *http.Server
}

// New builds a Server. rng drives FormGameQ's weighted sampling and should
// be time-seeded in production, fixed in tests.
func New(cfg Config, queue *matchmaker.Queue, ctrl *controller.Controller, matches *store.MatchRepository, ratings *store.RatingRepository, rng *rand.Rand) *Server {
	s := &Server{
		cfg:     cfg.withDefaults(),
		queue:   queue,
		ctrl:    ctrl,
		matches: matches,
		ratings: ratings,
		rng:     rng,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/queue", func(r chi.Router) {
		r.Get("/", s.handleQueueSnapshot)
		r.Post("/{discordID}", s.handleEnqueue)
		r.Delete("/{discordID}", s.handleDequeue)
	})

	r.Route("/games", func(r chi.Router) {
		r.Post("/", s.handleFormGameNow)
		r.Get("/{gameID}", s.handleGetGame)
		r.Get("/{gameID}/password", s.handleGetPassword)
		r.Post("/{gameID}/cancel", s.handleCancelGame)
		r.Post("/{gameID}/swap", s.handleSwap)
		r.Post("/{gameID}/replace", s.handleReplace)
		r.Post("/{gameID}/rebalance", s.handleRebalance)
		r.Post("/{gameID}/mode", s.handleChangeMode)
	})

	r.Get("/metrics", s.handleMetrics)
	r.Get("/healthz", s.handleHealthz)

	s.http = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      r,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("api server listening on %s", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown failed: %v", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug("%s %s -> %d (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write([]byte(metrics.Global().PrometheusFormat()))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
