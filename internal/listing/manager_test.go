package listing

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/nftbidbot/internal/domain"
	"github.com/alanyoungcy/nftbidbot/internal/pricing"
)

type fakeVenue struct {
	name     domain.Marketplace
	floor    float64
	top      domain.TopBid
	listings []domain.TokenListing
	listed   []string
	prices   []float64
}

func (f *fakeVenue) Name() domain.Marketplace                     { return f.name }
func (f *fakeVenue) Balance(ctx context.Context) (float64, error) { return 0, nil }
func (f *fakeVenue) UserTraitBids(ctx context.Context) ([]domain.Bid, error) {
	return nil, nil
}
func (f *fakeVenue) CollectionMarket(ctx context.Context, slug string) (float64, domain.TopBid, error) {
	return f.floor, f.top, nil
}
func (f *fakeVenue) CollectionListings(ctx context.Context, slug string) ([]domain.TokenListing, error) {
	return f.listings, nil
}
func (f *fakeVenue) PlaceTraitBid(ctx context.Context, contract string, criteria domain.Criteria, price float64, qty int) error {
	return nil
}
func (f *fakeVenue) CancelBid(ctx context.Context, contract string, criteria domain.Criteria, price float64) error {
	return nil
}
func (f *fakeVenue) SubmitListing(ctx context.Context, contract, tokenID string, price float64) error {
	f.listed = append(f.listed, contract+":"+tokenID)
	f.prices = append(f.prices, price)
	return nil
}

type fakeTokens struct {
	tokens []domain.OwnedToken
	events map[string][]domain.ListingEvent
}

func (f *fakeTokens) UserTokens(ctx context.Context) ([]domain.OwnedToken, error) {
	return f.tokens, nil
}

func (f *fakeTokens) TokenListingEvents(ctx context.Context, contract, tokenID string) ([]domain.ListingEvent, error) {
	return f.events[tokenID], nil
}

type fakeRarity struct{ ranks map[string]int }

func (f *fakeRarity) TokenRarityRank(ctx context.Context, contract, tokenID string) (int, error) {
	return f.ranks[tokenID], nil
}

const wallet = "0xB0B"

func testConfig() Config {
	return Config{
		WalletAddress:   wallet,
		MaxDaysInWallet: 14,
		Duration:        60 * time.Minute,
		Overlap:         10 * time.Minute,
	}
}

func listableCollection() domain.Collection {
	return domain.Collection{
		Slug:            "azuki",
		ContractAddress: "0xAA",
		TotalSupply:     10_000,
		Blur: domain.MarketStats{
			SevenDayMedianDailyAverageFloorPrice: 0.2,
			SevenDayListingSales:                 4,
			RankingPercentile: domain.RankingPercentiles{
				OneToTen: domain.PercentileBucket{
					ThirtyDayListingSales:                                     10,
					ThirtyDayAdjustedListingSales:                             10,
					ThirtyDayAdjustedAverageListingSalePriceToFloorPriceRatio: 1.15,
				},
			},
		},
	}
}

func newTestManager(venue *fakeVenue, tokens *fakeTokens, rarity domain.RarityOracle) *Manager {
	return NewManager(venue, tokens, rarity, pricing.DefaultParams(), testConfig(), slog.New(slog.DiscardHandler))
}

func TestRunListsUnlistedToken(t *testing.T) {
	venue := &fakeVenue{name: domain.MarketplaceBlur, floor: 0.2, top: domain.TopBid{Price: 0.18}}
	tokens := &fakeTokens{
		tokens: []domain.OwnedToken{{
			ContractAddress: "0xAA",
			TokenID:         "77",
			RarityRank:      500,
			LastSale:        domain.LastSale{ListedAt: time.Now().Add(-24 * time.Hour)},
		}},
		events: map[string][]domain.ListingEvent{},
	}
	m := newTestManager(venue, tokens, &fakeRarity{})

	if err := m.Run(context.Background(), []domain.Collection{listableCollection()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(venue.listed) != 1 || venue.listed[0] != "0xAA:77" {
		t.Fatalf("listed = %v, want [0xAA:77]", venue.listed)
	}
	// Median 0.2 scaled by the 1-10 bucket ratio 1.15, ticked down.
	want := 0.229999
	if diff := venue.prices[0] - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("price = %v, want %v", venue.prices[0], want)
	}
}

func TestRunSkipsTokensHeldTooLong(t *testing.T) {
	venue := &fakeVenue{name: domain.MarketplaceBlur, floor: 0.2}
	tokens := &fakeTokens{
		tokens: []domain.OwnedToken{{
			ContractAddress: "0xAA",
			TokenID:         "77",
			LastSale:        domain.LastSale{ListedAt: time.Now().Add(-20 * 24 * time.Hour)},
		}},
	}
	m := newTestManager(venue, tokens, &fakeRarity{})

	if err := m.Run(context.Background(), []domain.Collection{listableCollection()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(venue.listed) != 0 {
		t.Errorf("expected no listings for stale inventory, got %v", venue.listed)
	}
}

func TestNeedsListingFreshnessWindows(t *testing.T) {
	venue := &fakeVenue{name: domain.MarketplaceBlur}
	m := newTestManager(venue, &fakeTokens{}, &fakeRarity{})
	now := time.Now()
	m.now = func() time.Time { return now }

	withAsk := &domain.OwnedToken{Asks: []domain.Ask{{Marketplace: domain.MarketplaceBlur}}}
	noAsk := &domain.OwnedToken{}

	ownEvent := func(age time.Duration) domain.ListingEvent {
		return domain.ListingEvent{
			Marketplace: domain.MarketplaceBlur,
			FromTrader:  domain.Trader{Address: wallet},
			CreatedAt:   now.Add(-age),
		}
	}

	cases := []struct {
		name   string
		token  *domain.OwnedToken
		events []domain.ListingEvent
		want   bool
	}{
		{"no ask always lists", noAsk, nil, true},
		{"ask with no events keeps current listing", withAsk, nil, false},
		{"listing aged into the overlap tail renews", withAsk,
			[]domain.ListingEvent{ownEvent(55 * time.Minute)}, true},
		{"recent renewal inside overlap suppresses", withAsk,
			[]domain.ListingEvent{ownEvent(55 * time.Minute), ownEvent(5 * time.Minute)}, false},
		{"mid-duration listing does not renew", withAsk,
			[]domain.ListingEvent{ownEvent(30 * time.Minute)}, false},
		{"someone else's event is ignored", withAsk,
			[]domain.ListingEvent{{
				Marketplace: domain.MarketplaceBlur,
				FromTrader:  domain.Trader{Address: "0xother"},
				CreatedAt:   now.Add(-55 * time.Minute),
			}}, false},
		{"other marketplace event is ignored", withAsk,
			[]domain.ListingEvent{{
				Marketplace: domain.MarketplaceOpenSea,
				FromTrader:  domain.Trader{Address: wallet},
				CreatedAt:   now.Add(-55 * time.Minute),
			}}, false},
	}
	for _, c := range cases {
		if got := m.needsListing(c.token, c.events); got != c.want {
			t.Errorf("%s: needsListing = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestResolveRankFavorsActiveMarketplace(t *testing.T) {
	venue := &fakeVenue{name: domain.MarketplaceBlur}
	rarity := &fakeRarity{ranks: map[string]int{"77": 900}}
	m := newTestManager(venue, &fakeTokens{}, rarity)

	token := &domain.OwnedToken{ContractAddress: "0xAA", TokenID: "77", RarityRank: 500}

	active := listableCollection() // blur has 7d listing sales
	if got := m.resolveRank(context.Background(), &active, token); got != 500 {
		t.Errorf("active venue: rank = %d, want the venue rank 500", got)
	}

	idle := listableCollection()
	idle.Blur.SevenDayListingSales = 0
	if got := m.resolveRank(context.Background(), &idle, token); got != 900 {
		t.Errorf("idle venue: rank = %d, want the OpenSea rank 900", got)
	}

	noOpenSea := &fakeRarity{}
	m2 := newTestManager(venue, &fakeTokens{}, noOpenSea)
	if got := m2.resolveRank(context.Background(), &idle, token); got != 500 {
		t.Errorf("no OpenSea rank: rank = %d, want fallback 500", got)
	}
}
