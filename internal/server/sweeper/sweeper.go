// Package sweeper periodically deletes expired refresh tokens. It is the only
// part of the server that runs outside a request.
package sweeper

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/devlearning/devauth/internal/logging"
	"github.com/devlearning/devauth/internal/timex"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/robfig/cron/v3"
)

// DefaultRetryDelay is the pause before retrying a sweep that hit a
// transient database error.
const DefaultRetryDelay = 3 * time.Second

// Purger deletes refresh tokens that expired before now.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper runs Purger on a fixed interval.
type Sweeper struct {
	purger     Purger
	interval   time.Duration
	clock      timex.Clock
	log        logging.Logger
	retryDelay time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

func New(purger Purger, interval time.Duration, clock timex.Clock, log logging.Logger) *Sweeper {
	return &Sweeper{
		purger:     purger,
		interval:   interval,
		clock:      clock,
		log:        log.With("module", "sweeper"),
		retryDelay: DefaultRetryDelay,
	}
}

// Start runs one sweep immediately and then schedules one every interval.
// Jobs use ctx; cancel it or call Stop to end the schedule. Failures and
// panics inside a sweep are logged and never stop the schedule.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", s.interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("sweeper already started")
	}

	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() { s.sweep(ctx) })
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	// Same wrapped job as the schedule, so the first run is also recovered.
	c.Entry(id).WrappedJob.Run()

	c.Start()
	s.cron = c
	s.log.Info(ctx, "sweeper started", "interval", s.interval.String())
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// RunOnce purges expired tokens as of now, retrying once on a transient
// database error.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	now := s.clock()
	var purged int64
	err := s.runWithRetry(ctx, func(ctx context.Context) error {
		n, err := s.purger.PurgeExpired(ctx, now)
		purged = n
		return err
	})
	return purged, err
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.RunOnce(ctx)
	if err != nil {
		s.log.Error(ctx, "expired refresh token sweep failed", "error", err)
		return
	}
	s.log.Info(ctx, "expired refresh tokens purged", "count", n)
}

func (s *Sweeper) runWithRetry(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	if err == nil || !isTransient(err) {
		return err
	}

	s.log.Warn(ctx, "sweep hit transient db error; retrying once", "error", err)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.retryDelay):
	}
	return op(ctx)
}

func isTransient(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, driver.ErrBadConn) ||
		pgconn.SafeToRetry(err)
}

// cronLogger routes cron's own messages (skips, recovered panics) into the
// service logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(context.Background(), msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(context.Background(), msg, append(keysAndValues, "error", err)...)
}
