package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	nggin "github.com/fwojciec/newsgrab/gin"
	"github.com/fwojciec/newsgrab/ingest"
	"github.com/fwojciec/newsgrab/schedule"
)

// scrapeJobID names the job that runs every enabled source.
const scrapeJobID = "scrape_all"

// shutdownTimeout bounds how long serve waits for runs in flight.
const shutdownTimeout = 30 * time.Second

// batchScheduler schedules full batches on a fixed interval. It is the
// scheduler the trigger API starts and stops.
type batchScheduler struct {
	*schedule.Scheduler

	Interval time.Duration
	Ingester *ingest.Ingester
	Logger   *slog.Logger
}

var _ nggin.Scheduler = (*batchScheduler)(nil)

// Schedule adds the batch job with an immediate first run and starts the
// timer loop if it is not running.
func (s *batchScheduler) Schedule(ctx context.Context) error {
	if err := s.Add(scrapeJobID, s.Interval, true, s.runBatch); err != nil {
		return err
	}
	if s.Started() {
		return nil
	}
	return s.Start(ctx)
}

func (s *batchScheduler) runBatch(ctx context.Context) {
	res := s.Ingester.RunAll(ctx)
	s.Logger.Info("scheduled batch finished", "articles", res.Total(), "sources", len(res.Results))
}

// Run executes the serve command.
func (c *ServeCmd) Run(deps *Dependencies) error {
	ctx, stop := signal.NotifyContext(deps.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := &batchScheduler{
		Scheduler: schedule.New(schedule.WithLogger(deps.Logger)),
		Interval:  c.Interval,
		Ingester:  deps.Ingester,
		Logger:    deps.Logger,
	}
	if !c.NoStart {
		if err := sched.Schedule(ctx); err != nil {
			return err
		}
	}

	srv := nggin.NewServer()
	srv.Addr = c.Addr
	srv.APIKey = c.APIKey
	srv.Ingester = deps.Ingester
	srv.Monitor = deps.Tracker
	srv.Scheduler = sched
	srv.Runs = deps.Runs
	srv.Logger = deps.Logger
	if err := srv.Open(); err != nil {
		_ = sched.Shutdown(context.Background())
		return fmt.Errorf("failed to listen on %s: %w", c.Addr, err)
	}
	fmt.Fprintf(deps.Stdout, "Listening on %s\n", srv.URL())

	<-ctx.Done()
	deps.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Close(); err != nil {
		deps.Logger.Warn("api shutdown", "err", err)
	}
	return sched.Shutdown(shutdownCtx)
}
