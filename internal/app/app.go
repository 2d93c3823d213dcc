package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parlaywatch/parlaywatch/internal/auth"
	"github.com/parlaywatch/parlaywatch/internal/cache"
	"github.com/parlaywatch/parlaywatch/internal/config"
	"github.com/parlaywatch/parlaywatch/internal/handlers"
	"github.com/parlaywatch/parlaywatch/internal/logger"
	"github.com/parlaywatch/parlaywatch/internal/metrics"
	"github.com/parlaywatch/parlaywatch/internal/repository"
	"github.com/parlaywatch/parlaywatch/internal/scheduler"
	"github.com/parlaywatch/parlaywatch/internal/services"
	"github.com/parlaywatch/parlaywatch/internal/websocket"
)

const (
	// expirySweep is how often open verifications are checked for expiry
	expirySweep = time.Second
	// shutdownTimeout bounds how long Run waits for in-flight requests
	shutdownTimeout = 10 * time.Second
)

// App holds all application dependencies
type App struct {
	log      logger.Logger
	cfg      config.Config
	baseURL  string
	handlers *handlers.Handlers
	repo     *repository.Repository
	hub      *websocket.Hub
	sched    *scheduler.Scheduler
	cancel   context.CancelFunc
	once     sync.Once
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg config.Config) (*App, error) {
	defaults, err := cfg.RoomSettings()
	if err != nil {
		return nil, err
	}

	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Initialize services
	sched := scheduler.New()
	consensus := services.NewConsensusService(log, repo, cache.NewTallies(), sched, m)
	rounds := services.NewRoundService(log, repo, consensus, cache.NewEventStats(), sched, m)
	rooms := services.NewRoomService(log, repo, defaults)
	playerAuth := auth.New()

	// Initialize WebSocket hub with DI
	hub := websocket.New(log, playerAuth, rounds, consensus)
	hub.Start()
	consensus.SetBroadcaster(hub)
	rounds.SetBroadcaster(hub)

	// Sweep expired verifications until Close
	ctx, cancel := context.WithCancel(context.Background())
	go consensus.RunExpiry(ctx, expirySweep)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", getPreferredIP(realNetworkProvider{}), cfg.Port)
	}

	h := handlers.New(
		rooms,
		rounds,
		consensus,
		playerAuth,
		hub,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		repo,
		baseURL,
		log,
	)

	return &App{
		log:      log,
		cfg:      cfg,
		baseURL:  baseURL,
		handlers: h,
		repo:     repo,
		hub:      hub,
		sched:    sched,
		cancel:   cancel,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// BaseURL is the address players use to reach the server
func (a *App) BaseURL() string {
	return a.baseURL
}

// Close stops background work and releases the database. It is safe to call
// more than once.
func (a *App) Close() {
	a.once.Do(func() {
		a.cancel()
		a.hub.Stop()
		a.sched.Stop()
		if err := a.repo.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	})
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Server starting", "addr", addr, "url", a.baseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
