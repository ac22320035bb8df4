// Package listing runs the listing pass for one marketplace: walk the
// wallet's recently acquired tokens, decide per token whether a fresh ask is
// needed from its listing-event history, price it, and submit it.
package listing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/nftbidbot/internal/domain"
	"github.com/alanyoungcy/nftbidbot/internal/pricing"
)

// Config holds the listing windows.
type Config struct {
	// WalletAddress identifies the bot's own listing events.
	WalletAddress string
	// MaxDaysInWallet excludes tokens held longer than this; stale
	// inventory is not churned automatically.
	MaxDaysInWallet int
	// Duration is the lifetime of a submitted listing.
	Duration time.Duration
	// Overlap is the tail window before expiry during which renewal runs.
	Overlap time.Duration
}

// Manager runs listing passes against one venue.
type Manager struct {
	venue  domain.Venue
	tokens domain.TokenSource
	rarity domain.RarityOracle
	params pricing.Params
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a listing manager for the given venue.
func NewManager(venue domain.Venue, tokens domain.TokenSource, rarity domain.RarityOracle, params pricing.Params, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		venue:  venue,
		tokens: tokens,
		rarity: rarity,
		params: params,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "listing"), slog.String("marketplace", string(venue.Name()))),
		now:    time.Now,
	}
}

// Run executes one listing pass over a catalog snapshot. A failed submission
// is logged and not retried within the run; the next scheduled pass
// re-evaluates the token.
func (m *Manager) Run(ctx context.Context, collections []domain.Collection) error {
	m.logger.Info("downloading user tokens")
	tokens, err := m.tokens.UserTokens(ctx)
	if err != nil {
		return fmt.Errorf("listing: user tokens: %w", err)
	}

	cutoff := m.now().Add(-time.Duration(m.cfg.MaxDaysInWallet) * 24 * time.Hour)
	for i := range tokens {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		token := &tokens[i]
		if !token.LastSale.ListedAt.After(cutoff) {
			continue
		}
		collection := findCollection(collections, token.ContractAddress)
		if collection == nil {
			continue
		}
		m.listToken(ctx, collection, token)
	}
	return nil
}

// listToken evaluates and, when needed, relists one token.
func (m *Manager) listToken(ctx context.Context, c *domain.Collection, token *domain.OwnedToken) {
	events, err := m.tokens.TokenListingEvents(ctx, token.ContractAddress, token.TokenID)
	if err != nil {
		m.logTokenError(token, "listing events failed", err)
		return
	}
	if !m.needsListing(token, events) {
		return
	}

	rank := m.resolveRank(ctx, c, token)
	floor, top, err := m.venue.CollectionMarket(ctx, c.Slug)
	if err != nil {
		m.logTokenError(token, "market data failed", err)
		return
	}
	// Competitor data is optional: without it the computed price stands on
	// statistics alone.
	listings, err := m.venue.CollectionListings(ctx, c.Slug)
	if err != nil {
		m.logTokenError(token, "competitor listings failed", err)
		listings = nil
	}

	quote := pricing.ListPrice(pricing.ListInputs{
		Stats:               *c.Stats(m.venue.Name()),
		CombinedBidAskRatio: c.CombinedBidAskRatio(),
		Floor:               floor,
		TopBid:              top.Price,
		RarityRank:          rank,
		TotalSupply:         c.TotalSupply,
		Listings:            listings,
	}, m.params)
	if !quote.OK() {
		m.logger.Warn("no listing price",
			slog.String("token", token.ContractAddress+":"+token.TokenID),
			slog.String("reason", quote.Reason),
		)
		return
	}

	if err := m.venue.SubmitListing(ctx, token.ContractAddress, token.TokenID, quote.Price); err != nil {
		m.logTokenError(token, "listing submission failed", err)
		return
	}
	m.logger.Info("created listing",
		slog.String("token", token.ContractAddress+":"+token.TokenID),
		slog.Float64("price", quote.Price),
		slog.Float64("rarity_multiplier", quote.RarityMultiplier),
	)
}

// needsListing decides whether the token needs a fresh ask on the venue. A
// token with no active ask always does. A token with an ask is renewed only
// when the wallet's own listing event has aged into the overlap tail of its
// duration window and no newer event sits inside the overlap window itself,
// which would mean renewal already happened.
func (m *Manager) needsListing(token *domain.OwnedToken, events []domain.ListingEvent) bool {
	if token.AsksOn(m.venue.Name()) == 0 {
		return true
	}

	now := m.now()
	windowStart := now.Add(-m.cfg.Duration)
	tailEnd := now.Add(-(m.cfg.Duration - m.cfg.Overlap))
	overlapStart := now.Add(-m.cfg.Overlap)

	inTail := false
	inOverlap := false
	for i := range events {
		e := &events[i]
		if e.Marketplace != m.venue.Name() || !e.ByWallet(m.cfg.WalletAddress) {
			continue
		}
		if e.CreatedAt.After(windowStart) && e.CreatedAt.Before(tailEnd) {
			inTail = true
		}
		if e.CreatedAt.After(overlapStart) {
			inOverlap = true
		}
	}
	return inTail && !inOverlap
}

// resolveRank picks the rarity rank used for pricing. The venue's own rank
// is trusted only when the venue has demonstrated a listing sale in the last
// seven days; otherwise the OpenSea rank is used when it exists.
func (m *Manager) resolveRank(ctx context.Context, c *domain.Collection, token *domain.OwnedToken) int {
	osRank := 0
	if m.rarity != nil {
		rank, err := m.rarity.TokenRarityRank(ctx, token.ContractAddress, token.TokenID)
		if err != nil {
			m.logTokenError(token, "rarity lookup failed", err)
		} else {
			osRank = rank
		}
	}

	venueRank := token.RarityRank
	if m.venue.Name() == domain.MarketplaceOpenSea {
		venueRank = osRank
	}
	if c.Stats(m.venue.Name()).SevenDayListingSales >= 1 && venueRank > 0 {
		return venueRank
	}
	if osRank > 0 {
		return osRank
	}
	return venueRank
}

func (m *Manager) logTokenError(token *domain.OwnedToken, msg string, err error) {
	m.logger.Warn(msg,
		slog.String("token", token.ContractAddress+":"+token.TokenID),
		slog.String("error", err.Error()),
	)
}

func findCollection(collections []domain.Collection, contractAddress string) *domain.Collection {
	for i := range collections {
		if strings.EqualFold(collections[i].ContractAddress, contractAddress) {
			return &collections[i]
		}
	}
	return nil
}
