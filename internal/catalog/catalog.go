// Package catalog maintains the in-memory collection dataset: a daily
// aggregation pass that discovers new collections and an hourly refresh pass
// that re-fetches stale statistics.
package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/nftbidbot/internal/domain"
)

// staleAfter is the age at which a collection's statistics are re-fetched.
const staleAfter = time.Hour

// Service builds and refreshes the collection dataset.
type Service struct {
	provider domain.CollectionProvider
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a catalog service.
func NewService(provider domain.CollectionProvider, logger *slog.Logger) *Service {
	return &Service{
		provider: provider,
		logger:   logger.With(slog.String("component", "catalog")),
		now:      time.Now,
	}
}

// Aggregate appends collections present upstream but missing from the
// dataset, fetching each one's trait ranking. Known slugs are untouched, so
// repeated runs are idempotent. Nothing is ever removed.
func (s *Service) Aggregate(ctx context.Context, existing []domain.Collection) ([]domain.Collection, error) {
	s.logger.Info("downloading collection data")

	remote, err := s.provider.ListCollections(ctx)
	if err != nil {
		return existing, err
	}

	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.Slug] = true
	}

	added := 0
	for _, c := range remote {
		if known[c.Slug] {
			continue
		}
		attrs, total, err := s.provider.GetCollectionAttributes(ctx, c.Slug)
		if err != nil {
			s.logger.Warn("skipping collection, attribute fetch failed",
				slog.String("slug", c.Slug),
				slog.String("error", err.Error()),
			)
			continue
		}
		c.Attributes = attrs
		c.AttributesTotalCount = total
		c.DateAddedToList = s.now()
		c.DateLastUpdated = s.now()
		existing = append(existing, c)
		known[c.Slug] = true
		added++
	}

	s.logger.Info("collection data download complete",
		slog.Int("added", added),
		slog.Int("total", len(existing)),
	)
	return existing, nil
}

// RefreshStale re-fetches every collection whose data is older than an hour,
// preserving DateAddedToList. A failed or empty re-fetch leaves the stale
// entry in place for the next pass.
func (s *Service) RefreshStale(ctx context.Context, existing []domain.Collection) []domain.Collection {
	s.logger.Info("updating collection data")

	refreshed := 0
	for i := range existing {
		if ctx.Err() != nil {
			break
		}
		entry := existing[i]
		if entry.Slug == "" {
			continue
		}
		if s.now().Sub(entry.DateLastUpdated) <= staleAfter {
			continue
		}

		fresh, err := s.provider.GetCollection(ctx, entry.Slug)
		if err != nil || fresh == nil {
			s.logger.Warn("collection refresh failed",
				slog.String("slug", entry.Slug),
				slog.String("error", errString(err)),
			)
			continue
		}
		attrs, total, err := s.provider.GetCollectionAttributes(ctx, entry.Slug)
		if err != nil {
			s.logger.Warn("attribute refresh failed",
				slog.String("slug", entry.Slug),
				slog.String("error", err.Error()),
			)
			continue
		}

		fresh.Attributes = attrs
		fresh.AttributesTotalCount = total
		fresh.DateAddedToList = entry.DateAddedToList
		fresh.DateLastUpdated = s.now()
		existing[i] = *fresh
		refreshed++
	}

	s.logger.Info("collection data update complete", slog.Int("refreshed", refreshed))
	return existing
}

func errString(err error) string {
	if err == nil {
		return "empty collection"
	}
	return err.Error()
}
