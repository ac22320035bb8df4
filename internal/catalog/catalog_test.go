package catalog

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/nftbidbot/internal/domain"
)

type fakeProvider struct {
	collections []domain.Collection
	attrs       map[string][]domain.Attribute
	attrErr     map[string]error
	getErr      map[string]error
	getCalls    []string
}

func (f *fakeProvider) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	return f.collections, nil
}

func (f *fakeProvider) GetCollection(ctx context.Context, slug string) (*domain.Collection, error) {
	f.getCalls = append(f.getCalls, slug)
	if err := f.getErr[slug]; err != nil {
		return nil, err
	}
	for _, c := range f.collections {
		if c.Slug == slug {
			out := c
			return &out, nil
		}
	}
	return nil, domain.ErrNoData
}

func (f *fakeProvider) GetCollectionAttributes(ctx context.Context, slug string) ([]domain.Attribute, int, error) {
	if err := f.attrErr[slug]; err != nil {
		return nil, 0, err
	}
	attrs := f.attrs[slug]
	return attrs, len(attrs), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestAggregateAppendsOnlyUnknownSlugs(t *testing.T) {
	provider := &fakeProvider{
		collections: []domain.Collection{
			{Slug: "azuki", ContractAddress: "0xaa"},
			{Slug: "doodles", ContractAddress: "0xbb"},
		},
		attrs: map[string][]domain.Attribute{
			"doodles": {{Key: "Background", Value: "Blue"}},
		},
	}
	svc := NewService(provider, discardLogger())

	existingAdded := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := []domain.Collection{{Slug: "azuki", DateAddedToList: existingAdded}}

	updated, err := svc.Aggregate(context.Background(), existing)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(updated) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(updated))
	}
	if !updated[0].DateAddedToList.Equal(existingAdded) {
		t.Errorf("known entry was touched: %v", updated[0].DateAddedToList)
	}
	if updated[1].Slug != "doodles" || updated[1].AttributesTotalCount != 1 {
		t.Errorf("appended entry wrong: %+v", updated[1])
	}
	if updated[1].DateAddedToList.IsZero() || updated[1].DateLastUpdated.IsZero() {
		t.Error("appended entry missing timestamps")
	}

	// A second run over the same remote data must add nothing.
	again, err := svc.Aggregate(context.Background(), updated)
	if err != nil {
		t.Fatalf("Aggregate again: %v", err)
	}
	if len(again) != 2 {
		t.Errorf("aggregate is not idempotent: %d collections", len(again))
	}
}

func TestAggregateSkipsCollectionOnAttributeFailure(t *testing.T) {
	provider := &fakeProvider{
		collections: []domain.Collection{{Slug: "broken"}, {Slug: "good"}},
		attrErr:     map[string]error{"broken": errors.New("boom")},
		attrs:       map[string][]domain.Attribute{"good": {{Key: "Fur", Value: "Gold"}}},
	}
	svc := NewService(provider, discardLogger())

	updated, err := svc.Aggregate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(updated) != 1 || updated[0].Slug != "good" {
		t.Fatalf("expected only the good collection, got %+v", updated)
	}
}

func TestRefreshStaleOnlyTouchesStaleEntries(t *testing.T) {
	provider := &fakeProvider{
		collections: []domain.Collection{{Slug: "azuki", TotalSupply: 10_000}},
		attrs:       map[string][]domain.Attribute{"azuki": {{Key: "Type", Value: "Human"}}},
	}
	svc := NewService(provider, discardLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	added := now.Add(-48 * time.Hour)
	existing := []domain.Collection{
		{Slug: "azuki", DateAddedToList: added, DateLastUpdated: now.Add(-2 * time.Hour)},
		{Slug: "fresh", DateAddedToList: added, DateLastUpdated: now.Add(-10 * time.Minute)},
		{Slug: "", DateLastUpdated: now.Add(-5 * time.Hour)},
	}

	updated := svc.RefreshStale(context.Background(), existing)

	if got := updated[0]; got.TotalSupply != 10_000 || !got.DateAddedToList.Equal(added) || !got.DateLastUpdated.Equal(now) {
		t.Errorf("stale entry not refreshed correctly: %+v", got)
	}
	if len(provider.getCalls) != 1 || provider.getCalls[0] != "azuki" {
		t.Errorf("expected one refresh call for azuki, got %v", provider.getCalls)
	}
	if !updated[1].DateLastUpdated.Equal(now.Add(-10 * time.Minute)) {
		t.Error("fresh entry was touched")
	}
}

func TestRefreshStaleKeepsEntryOnFailure(t *testing.T) {
	provider := &fakeProvider{
		getErr: map[string]error{"azuki": errors.New("gateway down")},
	}
	svc := NewService(provider, discardLogger())

	stale := time.Now().Add(-3 * time.Hour)
	existing := []domain.Collection{{Slug: "azuki", TotalSupply: 5, DateLastUpdated: stale}}

	updated := svc.RefreshStale(context.Background(), existing)
	if updated[0].TotalSupply != 5 || !updated[0].DateLastUpdated.Equal(stale) {
		t.Errorf("failed refresh must leave the entry unchanged: %+v", updated[0])
	}
}

func TestStoreSnapshotIsIsolated(t *testing.T) {
	store := NewStore()
	store.Replace([]domain.Collection{{Slug: "azuki"}})

	snap := store.Snapshot()
	snap[0].Slug = "mutated"

	if got := store.Snapshot()[0].Slug; got != "azuki" {
		t.Errorf("store was mutated through a snapshot: %q", got)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}
