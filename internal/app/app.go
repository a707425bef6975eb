// Package app wires the components together and drives their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/axellelanca/shortener/internal/api"
	"github.com/axellelanca/shortener/internal/auth"
	"github.com/axellelanca/shortener/internal/cache"
	"github.com/axellelanca/shortener/internal/config"
	"github.com/axellelanca/shortener/internal/monitor"
	"github.com/axellelanca/shortener/internal/repository"
	"github.com/axellelanca/shortener/internal/services"
	"github.com/axellelanca/shortener/internal/workers"
)

// App holds every component of the running service.
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *gorm.DB
	Cache       cache.Cache
	LinkService *services.LinkService
	AuthService *services.AuthService
	Clicks      *workers.ClickWorkers
	Reclaimer   *monitor.ExpiryReclaimer
	HTTPServer  *http.Server

	listener      net.Listener
	stopReclaimer context.CancelFunc
	reclaimerDone chan struct{}
}

// New opens the store and the cache and builds the services. Nothing runs
// until Start; the CLI uses the services directly and calls Close.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	log.Info("Initializing infrastructure...")
	db, err := repository.Open(repository.Options{
		Driver: cfg.Database.Driver,
		Name:   cfg.Database.Name,
		DSN:    cfg.Database.DSN,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	log.WithField("driver", cfg.Database.Driver).Info("Database initialized")

	c, err := cache.New(ctx, cache.Options{
		Driver:        cfg.Cache.Driver,
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
		KeyPrefix:     cfg.Cache.KeyPrefix,
	})
	if err != nil {
		_ = repository.Close(db)
		return nil, fmt.Errorf("failed to init cache: %w", err)
	}
	log.WithField("driver", cfg.Cache.Driver).Info("Cache initialized")

	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)
	userRepo := repository.NewUserRepository(db)

	linkService := services.NewLinkService(linkRepo, clickRepo, c, services.LinkServiceOptions{
		CodeLength:  cfg.Links.CodeLength,
		MaxAttempts: cfg.Links.MaxGenerateAttempts,
		DefaultTTL:  cfg.DefaultLinkTTL(),
		CacheTTL:    cfg.CacheTTL(),

		InvalidationHold: cfg.InvalidationHold(),
	}, log)

	signer := auth.NewSigner(cfg.Auth.JWTSecret)
	sessions := auth.NewSessionRegistry(10 * time.Minute)
	authService := services.NewAuthService(userRepo, linkRepo, signer, sessions, cfg.TokenTTL(), cfg.Auth.BcryptCost, log)
	log.Info("Services initialized")

	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterDeps{
		LinkService: linkService,
		AuthService: authService,
		Signer:      signer,
		BaseURL:     cfg.Server.BaseURL,
		Logger:      log,
	})

	return &App{
		Config:      cfg,
		Log:         log,
		DB:          db,
		Cache:       c,
		LinkService: linkService,
		AuthService: authService,
		Clicks:      workers.NewClickWorkers(cfg.Analytics.WorkerCount, cfg.Analytics.BufferSize, linkService.RecordClick, log),
		Reclaimer:   monitor.NewExpiryReclaimer(linkService, cfg.MonitorInterval(), log),
		HTTPServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Start launches the click workers, the expiry reclaimer and the HTTP server.
// It returns once the server listens.
func (a *App) Start() error {
	ln, err := net.Listen("tcp", a.HTTPServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.HTTPServer.Addr, err)
	}
	a.listener = ln

	a.Clicks.Start()
	a.LinkService.UseClickQueue(a.Clicks)
	a.Log.Infof("Click event buffer of %d, %d click worker(s) started.",
		a.Config.Analytics.BufferSize, a.Config.Analytics.WorkerCount)

	ctx, cancel := context.WithCancel(context.Background())
	a.stopReclaimer = cancel
	a.reclaimerDone = make(chan struct{})
	go func() {
		defer close(a.reclaimerDone)
		a.Reclaimer.Run(ctx)
	}()

	go func() {
		a.Log.Infof("Server listening on %s", ln.Addr())
		if err := a.HTTPServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()
	return nil
}

// Addr returns the address the server listens on, once started.
func (a *App) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Shutdown stops the HTTP server, then the reclaimer, then drains the click
// workers, and finally releases the cache and the database.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	a.Log.Info("Shutting down HTTP server...")
	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}

	if a.stopReclaimer != nil {
		a.stopReclaimer()
		select {
		case <-a.reclaimerDone:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("expiry reclaimer: %w", ctx.Err()))
		}
	}

	if err := a.Clicks.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("click workers: %w", err))
	}

	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	a.Log.Info("Server stopped cleanly.")
	return nil
}

// Close releases the cache and the database.
func (a *App) Close() error {
	var errs []error
	if err := a.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if err := repository.Close(a.DB); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}
