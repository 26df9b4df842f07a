// Package server wires the auth server together: database and migrations,
// token codec, session services, the expiry sweeper and the HTTP and gRPC
// listeners, and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/devlearning/devauth/internal/logging"
	"github.com/devlearning/devauth/internal/server/auth"
	"github.com/devlearning/devauth/internal/server/config"
	"github.com/devlearning/devauth/internal/server/repositories/repomanager"
	"github.com/devlearning/devauth/internal/server/rest"
	"github.com/devlearning/devauth/internal/server/services"
	"github.com/devlearning/devauth/internal/server/sweeper"
	"github.com/devlearning/devauth/internal/timex"

	gs "github.com/devlearning/devauth/internal/server/grpc"
)

const startupTimeout = 30 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	sessions   *services.SessionService
	principals *services.PrincipalService
	sweeper    *sweeper.Sweeper
	clock      timex.Clock
}

// NewApp connects to Postgres, applies migrations and builds every service.
func NewApp(c *config.Config) (*App, error) {
	level, ok := logging.ParseLevel(c.LogLevel)
	logger := logging.NewJSONLogger(os.Stdout, level)
	if !ok {
		logger.Warn(context.Background(), "unknown log level, using info", "level", c.LogLevel)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(c, db, repomanager.NewPostgresRepositoryManager(), logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(c *config.Config, db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	clock := timex.Clock(timex.SystemClock)

	codec, err := auth.NewCodec([]byte(c.SecretKey), c.AccessTokenValidityDuration, auth.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	hasher := auth.NewBcryptHasher(c.BcryptCost)

	verifier, err := services.NewCredentialVerifier(db, rm, hasher)
	if err != nil {
		return nil, fmt.Errorf("credential verifier: %w", err)
	}
	store := services.NewTokenStore(db, rm, c.RefreshTokenValidityDuration, clock)
	capacity := services.NewCapacityManager(db, rm, c.MaxRefreshTokensPerPrincipal, clock)

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		sessions:   services.NewSessionService(db, rm, codec, verifier, store, capacity, clock, logger),
		principals: services.NewPrincipalService(db, rm, hasher, logger),
		sweeper:    sweeper.New(store, c.SweepInterval, clock, logger),
		clock:      clock,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	h := rest.NewHandler(app.sessions, app.principals, app.db.PingContext, app.clock, app.logger)
	s := rest.NewServer(app.config.EndpointAddrHTTP, rest.NewRouter(h, app.config.CORSAllowedOrigins), app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
		return err
	}
	return nil
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
		return err
	}
	return nil
}

// Run blocks until ctx is cancelled, a shutdown signal arrives or a listener
// fails. It returns the first listener error, if any.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	if err := app.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	record := func(err error) {
		if err != nil {
			errOnce.Do(func() { firstErr = err })
		}
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		record(app.startHTTPServer(ctx, cancelFunc))
	}()
	go func() {
		defer wg.Done()
		record(app.startGRPCServer(ctx, cancelFunc))
	}()

	wg.Wait()

	app.sweeper.Stop()
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close failed", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
	return firstErr
}
