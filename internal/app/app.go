// Package app provides the top-level application lifecycle for the NFT
// bidding bot. It wires together all dependencies (wallet, marketplace
// clients, catalog, managers) and drives them from the cron scheduler.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/nftbidbot/internal/catalog"
	"github.com/alanyoungcy/nftbidbot/internal/config"
	"github.com/alanyoungcy/nftbidbot/internal/domain"
	"github.com/alanyoungcy/nftbidbot/internal/scheduler"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, seeds the catalog,
// registers the scheduled jobs, and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("wallet", a.cfg.Wallet.Address),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Seed the catalog once so the first bidding and listing ticks have
	// data to work with.
	if err := a.aggregateCatalog(ctx, deps); err != nil {
		a.logger.WarnContext(ctx, "initial catalog aggregation failed, starting with an empty catalog",
			slog.String("error", err.Error()),
		)
	}

	sched := scheduler.New(a.logger)
	if err := a.registerJobs(sched, deps); err != nil {
		return fmt.Errorf("app: register jobs: %w", err)
	}

	return sched.Start(ctx)
}

// registerJobs binds the four job groups to their cron schedules. Jobs within
// a group share a single-slot guard so they never run concurrently with each
// other.
func (a *App) registerJobs(sched *scheduler.Scheduler, deps *Dependencies) error {
	catalogGuard := scheduler.NewGuard()
	listingGuard := scheduler.NewGuard()
	biddingGuard := scheduler.NewGuard()

	jobs := []*scheduler.Job{
		{
			Name:  "catalog-refresh",
			Cron:  a.cfg.Scheduler.RefreshCron,
			Guard: catalogGuard,
			Run: func(ctx context.Context) error {
				refreshed := deps.Catalog.RefreshStale(ctx, deps.Store.Snapshot())
				deps.Store.Replace(refreshed)
				return nil
			},
		},
		{
			Name:  "catalog-aggregate",
			Cron:  a.cfg.Scheduler.AggregateCron,
			Guard: catalogGuard,
			Run: func(ctx context.Context) error {
				return a.aggregateCatalog(ctx, deps)
			},
		},
		{
			Name:  "listing-blur",
			Cron:  a.cfg.Scheduler.ListingCron,
			Guard: listingGuard,
			Run:   a.catalogJob(deps.Store, deps.BlurListing.Run),
		},
		{
			Name:  "listing-opensea",
			Cron:  a.cfg.Scheduler.ListingCron,
			Guard: listingGuard,
			Run:   a.catalogJob(deps.Store, deps.OpenSeaListing.Run),
		},
		{
			Name:  "bidding-blur",
			Cron:  a.cfg.Scheduler.BiddingCron,
			Guard: biddingGuard,
			Run:   a.catalogJob(deps.Store, deps.BlurBidding.Run),
		},
		{
			Name:       "bidding-opensea",
			Cron:       a.cfg.Scheduler.BiddingCron,
			Guard:      biddingGuard,
			MinSpacing: time.Duration(a.cfg.Bidding.OpenSeaMinSpacingMinutes) * time.Minute,
			Run:        a.catalogJob(deps.Store, deps.OpenSeaBidding.Run),
		},
	}

	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			return err
		}
	}
	return nil
}

// catalogJob adapts a manager pass into a job body that hands over a catalog
// snapshot, skipping entirely while the catalog is still empty.
func (a *App) catalogJob(store *catalog.Store, run func(ctx context.Context, collections []domain.Collection) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		snapshot := store.Snapshot()
		if len(snapshot) == 0 {
			a.logger.InfoContext(ctx, "catalog is empty, nothing to do")
			return nil
		}
		return run(ctx, snapshot)
	}
}

func (a *App) aggregateCatalog(ctx context.Context, deps *Dependencies) error {
	next, err := deps.Catalog.Aggregate(ctx, deps.Store.Snapshot())
	if err != nil {
		return err
	}
	deps.Store.Replace(next)
	return nil
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
