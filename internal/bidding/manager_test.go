package bidding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/alanyoungcy/nftbidbot/internal/domain"
	"github.com/alanyoungcy/nftbidbot/internal/pricing"
)

type fakeVenue struct {
	mu       sync.Mutex
	name     domain.Marketplace
	balance  float64
	bids     []domain.Bid
	floor    float64
	top      domain.TopBid
	placed   []string
	canceled []string
}

func (f *fakeVenue) Name() domain.Marketplace {
	if f.name == "" {
		return domain.MarketplaceBlur
	}
	return f.name
}

func (f *fakeVenue) Balance(ctx context.Context) (float64, error) { return f.balance, nil }

func (f *fakeVenue) UserTraitBids(ctx context.Context) ([]domain.Bid, error) { return f.bids, nil }

func (f *fakeVenue) CollectionMarket(ctx context.Context, slug string) (float64, domain.TopBid, error) {
	return f.floor, f.top, nil
}

func (f *fakeVenue) CollectionListings(ctx context.Context, slug string) ([]domain.TokenListing, error) {
	return nil, nil
}

func (f *fakeVenue) PlaceTraitBid(ctx context.Context, contract string, criteria domain.Criteria, price float64, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, fmt.Sprintf("%s@%.3fx%d", traitOf(criteria), price, qty))
	return nil
}

func (f *fakeVenue) CancelBid(ctx context.Context, contract string, criteria domain.Criteria, price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, fmt.Sprintf("%s@%.3f", traitOf(criteria), price))
	return nil
}

func (f *fakeVenue) SubmitListing(ctx context.Context, contract, tokenID string, price float64) error {
	return nil
}

func traitOf(c domain.Criteria) string {
	for k, v := range c.Value {
		return k + ":" + v
	}
	return string(c.Type)
}

func testManager(v *fakeVenue) *Manager {
	cfg := Config{MaxBids: 5, SubmitConcurrency: 2}
	return NewManager(v, nil, pricing.DefaultParams(), cfg, slog.New(slog.DiscardHandler))
}

// qualifyingCollection returns a collection that passes the base filter with
// a bucket history rich enough for the top bucket to quote.
func qualifyingCollection() domain.Collection {
	stats := domain.MarketStats{
		OneDayAverageFloorPrice:                0.06,
		SevenDayAverageDailyAverageFloorPrice:  0.05,
		SevenDayMedianDailyAverageFloorPrice:   0.055,
		SevenDayFloorPriceIncreases:            3,
		SevenDayListingSales:                   21,
		SevenDayAcceptedBidSales:               7,
		SevenDayAverageDailyListingSales:       1.5,
		ThirtyDayAverageDailyAverageFloorPrice: 0.04,
		RankingPercentile: domain.RankingPercentiles{
			OneToTen: domain.PercentileBucket{
				ThirtyDayAdjustedAcceptedBidSales:                         5,
				ThirtyDayAdjustedListingSales:                             5,
				ThirtyDayAdjustedAverageListingSalePriceToFloorPriceRatio: 1.4,
			},
		},
	}
	return domain.Collection{
		Slug:                 "azuki",
		ContractAddress:      "0xAA",
		TotalSupply:          10_000,
		AttributesTotalCount: 15,
		Attributes: []domain.Attribute{
			rareTrait("Background", "Gold", 5),
		},
		Blur:    stats,
		OpenSea: stats,
	}
}

func rareTrait(key, value string, rarityFloor float64) domain.Attribute {
	stats := domain.TraitStats{
		Count:              100,
		CountVerification:  100,
		RarityPercentFloor: rarityFloor,
	}
	return domain.Attribute{Key: key, Value: value, Blur: stats, OpenSea: stats}
}

func TestQualifiesBaseFilter(t *testing.T) {
	m := testManager(&fakeVenue{})

	c := qualifyingCollection()
	if !m.Qualifies(&c, nil) {
		t.Fatal("expected the base collection to qualify")
	}

	hot := qualifyingCollection()
	hot.Blur.SevenDayAverageDailyAverageFloorPrice = 0.6
	if m.Qualifies(&hot, nil) {
		t.Error("floor above the 0.5 ceiling must not qualify")
	}

	thin := qualifyingCollection()
	thin.AttributesTotalCount = 10
	if m.Qualifies(&thin, nil) {
		t.Error("10 attributes must not qualify")
	}

	unstable := qualifyingCollection()
	unstable.Blur.ThirtyDayAverageDailyAverageFloorPrice = 0.03 // ratio 0.6
	if m.Qualifies(&unstable, nil) {
		t.Error("floor ratio below 0.75 must not qualify")
	}

	slow := qualifyingCollection()
	slow.Blur.SevenDayAverageDailyListingSales = 0.4
	slow.OpenSea.SevenDayAverageDailyListingSales = 0.4
	if m.Qualifies(&slow, nil) {
		t.Error("combined sale velocity below 2 must not qualify")
	}
}

func TestRunCancelsBidsOnUnqualifiedCollections(t *testing.T) {
	venue := &fakeVenue{
		balance: 1.0,
		floor:   0.05,
		top:     domain.TopBid{Price: 0.04, BidderCount: 4},
		bids: []domain.Bid{{
			ContractAddress: "0xDEAD",
			CriteriaType:    domain.CriteriaTrait,
			CriteriaValue:   map[string]string{"Fur": "Solid Gold"},
			Price:           0.03,
		}},
	}
	m := testManager(venue)

	// The only cataloged collection qualifies; the open bid's does not.
	if err := m.Run(context.Background(), []domain.Collection{qualifyingCollection()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(venue.canceled) == 0 || venue.canceled[0] != "Fur:Solid Gold@0.030" {
		t.Errorf("expected the stray bid canceled, got %v", venue.canceled)
	}
}

func TestRunPlacesBidForEligibleTrait(t *testing.T) {
	venue := &fakeVenue{
		balance: 1.0,
		floor:   0.05,
		top:     domain.TopBid{Price: 0.04, BidderCount: 4},
	}
	m := testManager(venue)

	if err := m.Run(context.Background(), []domain.Collection{qualifyingCollection()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Tick for the sub-0.1 tier is 0.0001; 0.05*1.4 covers the margin at
	// 0.0401, and qty floors at balance/price capped by MaxBids.
	want := "Background:Gold@0.040x5"
	if len(venue.placed) != 1 || venue.placed[0] != want {
		t.Errorf("placed = %v, want [%s]", venue.placed, want)
	}
}

func TestRunCancelsStalePriceAndTopsUp(t *testing.T) {
	venue := &fakeVenue{
		balance: 1.0,
		floor:   0.05,
		top:     domain.TopBid{Price: 0.04, BidderCount: 4},
		bids: []domain.Bid{
			{
				ContractAddress: "0xAA",
				CriteriaType:    domain.CriteriaTrait,
				CriteriaValue:   map[string]string{"Background": "Gold"},
				Price:           0.035, // stale price
				OpenSize:        2,
			},
			{
				ContractAddress: "0xAA",
				CriteriaType:    domain.CriteriaTrait,
				CriteriaValue:   map[string]string{"Background": "Gold"},
				Price:           0.0401, // current price, undersized
				OpenSize:        2,
			},
		},
	}
	m := testManager(venue)

	if err := m.Run(context.Background(), []domain.Collection{qualifyingCollection()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(venue.canceled) != 1 || venue.canceled[0] != "Background:Gold@0.035" {
		t.Errorf("canceled = %v, want the stale 0.035 bid", venue.canceled)
	}
	want := "Background:Gold@0.040x3"
	if len(venue.placed) != 1 || venue.placed[0] != want {
		t.Errorf("placed = %v, want top-up [%s]", venue.placed, want)
	}
}

func TestRunSkipsWhenBidExceedsBalance(t *testing.T) {
	venue := &fakeVenue{
		balance: 0.01,
		floor:   0.05,
		top:     domain.TopBid{Price: 0.04, BidderCount: 4},
	}
	m := testManager(venue)

	if err := m.Run(context.Background(), []domain.Collection{qualifyingCollection()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(venue.placed) != 0 {
		t.Errorf("expected no bids with insufficient balance, got %v", venue.placed)
	}
}

func TestEligibleTraitsDropsDuplicatesAndUnverified(t *testing.T) {
	m := testManager(&fakeVenue{})
	c := qualifyingCollection()
	c.Attributes = []domain.Attribute{
		rareTrait("Background", "Gold", 5),
		rareTrait("background", "GOLD", 5), // case-insensitive duplicate
		rareTrait("Fur", "Silver", 5),
	}
	c.Attributes[2].Blur.CountVerification = 99 // count mismatch

	traits := m.eligibleTraits(&c, pricing.TopBucket)
	if len(traits) != 0 {
		t.Errorf("expected no eligible traits, got %v", traits)
	}

	c.Attributes = []domain.Attribute{rareTrait("Background", "Gold", 5)}
	traits = m.eligibleTraits(&c, pricing.TopBucket)
	if len(traits) != 1 {
		t.Fatalf("expected one eligible trait, got %d", len(traits))
	}
	if traits[0].Key != "Background" {
		t.Errorf("trait = %+v", traits[0])
	}
}

func TestBreadthCapsRejectWideCoverage(t *testing.T) {
	m := testManager(&fakeVenue{})
	c := qualifyingCollection()

	// One eligible trait against one populated trait: 2*1 > 1 trips the cap.
	if m.breadthWithinCaps(&c, pricing.TopBucket, c.Attributes) {
		t.Error("expected the populated-trait cap to reject")
	}

	// Add untargeted populated traits so the trait cap passes, then push
	// the eligible trait's supply coverage over 30%.
	c.Attributes = append(c.Attributes,
		rareTrait("Mouth", "Grin", 20),
		rareTrait("Hat", "Cap", 20),
		rareTrait("Eyes", "Blue", 20),
	)
	wide := rareTrait("Background", "Gold", 5)
	wide.Blur.Count = 4_000
	if m.breadthWithinCaps(&c, pricing.TopBucket, []domain.Attribute{wide}) {
		t.Error("expected the supply-share cap to reject")
	}

	narrow := rareTrait("Background", "Gold", 5)
	if !m.breadthWithinCaps(&c, pricing.TopBucket, []domain.Attribute{narrow}) {
		t.Error("expected a narrow trait set to pass")
	}
}
