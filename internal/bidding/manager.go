// Package bidding runs the trait bidding pass for one marketplace: select
// qualified collections, pick biddable traits, price them through the
// pricing engine, and reconcile the wallet's open bids against the target.
package bidding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/nftbidbot/internal/domain"
	"github.com/alanyoungcy/nftbidbot/internal/pricing"
)

// Collection qualification thresholds.
const (
	minAttributeCount    = 10
	minFloorStability    = 0.75
	minDailyListingSales = 2.0
	minFloorIncreases    = 2
	minSevenDayFloor     = 0.03
	maxSevenDayFloor     = 0.5
	maxQualBidAskRatio   = 1.75
)

// Trait eligibility and breadth thresholds.
const (
	maxTraitSupplyShare = 0.5
	maxBidTokenShare    = 0.3

	// Demand-inflation proxy: a common trait still qualifies when its
	// listing sales clear the floor by this much while bids do not.
	inflatedListingRatio = 1.1

	// widePoolTraitCount is the trait count above which per-bid sizing
	// halves, spreading the balance across the larger pool.
	widePoolTraitCount = 100
)

// Config sizes bids and caps exposure.
type Config struct {
	// MaxBids caps the quantity of any single trait bid.
	MaxBids int
	// SubmitConcurrency bounds concurrent trait submissions.
	SubmitConcurrency int
	// MaxTokensPerCollection stops bidding on a collection once the wallet
	// holds this many of its tokens. 0 disables the cap.
	MaxTokensPerCollection int
	// Cooldown pauses bidding on a collection after an acquisition.
	// 0 disables the cooldown.
	Cooldown time.Duration
}

// Manager runs bidding passes against one venue.
type Manager struct {
	venue  domain.Venue
	tokens domain.TokenSource
	params pricing.Params
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a bidding manager for the given venue. tokens may be
// nil when no exposure cap is configured.
func NewManager(venue domain.Venue, tokens domain.TokenSource, params pricing.Params, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		venue:  venue,
		tokens: tokens,
		params: params,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "bidding"), slog.String("marketplace", string(venue.Name()))),
		now:    time.Now,
	}
}

// Run executes one bidding pass over a catalog snapshot: cancel bids on
// collections that no longer qualify, then reconcile trait bids for each
// qualified collection in both rarity buckets. Per-collection failures are
// logged and do not stop the pass.
func (m *Manager) Run(ctx context.Context, collections []domain.Collection) error {
	m.logger.Info("downloading user bids")
	bids, err := m.venue.UserTraitBids(ctx)
	if err != nil {
		return fmt.Errorf("bidding: user bids: %w", err)
	}

	exposure, err := m.loadExposure(ctx)
	if err != nil {
		return err
	}

	var qualified []domain.Collection
	for _, c := range collections {
		if m.Qualifies(&c, exposure) {
			qualified = append(qualified, c)
		}
	}
	if len(qualified) == 0 {
		m.logger.Info("no qualified collections")
		return nil
	}

	m.cancelUnqualified(ctx, qualified, bids)

	for i := range qualified {
		c := &qualified[i]
		collectionBids := bidsForContract(bids, c.ContractAddress)
		for _, bucket := range []pricing.Bucket{pricing.TopBucket, pricing.MidBucket} {
			if err := m.runBucket(ctx, c, collectionBids, bucket); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				m.logger.Warn("bucket pass failed",
					slog.String("slug", c.Slug),
					slog.Float64("bucket_to", bucket.To),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	return nil
}

// Qualifies applies the collection qualification filter using the venue's
// own statistics as the primary series.
func (m *Manager) Qualifies(c *domain.Collection, exposure *exposureState) bool {
	s := c.Stats(m.venue.Name())
	if c.AttributesTotalCount <= minAttributeCount {
		return false
	}
	if s.SevenDayAverageDailyAverageFloorPrice <= 0 {
		return false
	}
	if s.ThirtyDayAverageDailyAverageFloorPrice/s.SevenDayAverageDailyAverageFloorPrice <= minFloorStability {
		return false
	}
	if c.CombinedDailyListingSales() < minDailyListingSales {
		return false
	}
	if s.SevenDayFloorPriceIncreases <= minFloorIncreases {
		return false
	}
	if s.SevenDayAverageDailyAverageFloorPrice <= minSevenDayFloor ||
		s.SevenDayAverageDailyAverageFloorPrice >= maxSevenDayFloor {
		return false
	}
	if c.CombinedBidAskRatio() >= maxQualBidAskRatio {
		return false
	}
	if exposure != nil && !exposure.allows(c.ContractAddress, m.cfg, m.now()) {
		return false
	}
	return true
}

// cancelUnqualified retires open bids whose collection fell out of the
// qualified set.
func (m *Manager) cancelUnqualified(ctx context.Context, qualified []domain.Collection, bids []domain.Bid) {
	byContract := make(map[string]bool, len(qualified))
	for _, c := range qualified {
		byContract[strings.ToLower(c.ContractAddress)] = true
	}
	for _, b := range bids {
		if byContract[strings.ToLower(b.ContractAddress)] {
			continue
		}
		if err := m.venue.CancelBid(ctx, b.ContractAddress, domain.Criteria{Type: b.CriteriaType, Value: b.CriteriaValue}, b.Price); err != nil {
			m.logger.Warn("cancel for unqualified collection failed",
				slog.String("contract", b.ContractAddress),
				slog.String("error", err.Error()),
			)
			continue
		}
		m.logger.Info("canceled bid on no longer qualified collection",
			slog.String("contract", b.ContractAddress),
			slog.Float64("price", b.Price),
		)
	}
}

// runBucket reconciles the trait bids of one collection and rarity bucket.
func (m *Manager) runBucket(ctx context.Context, c *domain.Collection, bids []domain.Bid, bucket pricing.Bucket) error {
	traits := m.eligibleTraits(c, bucket)
	if len(traits) == 0 {
		return nil
	}
	if !m.breadthWithinCaps(c, bucket, traits) {
		return nil
	}

	floor, top, err := m.venue.CollectionMarket(ctx, c.Slug)
	if err != nil && !errors.Is(err, domain.ErrNoData) {
		return err
	}

	var quote pricing.Quote
	if err != nil {
		quote = pricing.Quote{Reason: "no market data"}
	} else {
		quote = pricing.TraitBidAmount(pricing.BidInputs{
			Stats:               *c.Stats(m.venue.Name()),
			CombinedBidAskRatio: c.CombinedBidAskRatio(),
			Floor:               floor,
			Top:                 top,
		}, bucket, m.params)
	}

	if !quote.OK() {
		m.logger.Warn("no bid for bucket, retiring open trait bids",
			slog.String("slug", c.Slug),
			slog.Float64("bucket_to", bucket.To),
			slog.String("reason", quote.Reason),
		)
		m.cancelTraitBids(ctx, c, traits, bids, func(b *domain.Bid) bool { return true })
		return nil
	}

	// Bids live at exactly the quoted price; anything else is stale.
	m.cancelTraitBids(ctx, c, traits, bids, func(b *domain.Bid) bool { return b.Price != quote.Price })

	balance, err := m.venue.Balance(ctx)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	if quote.Price > balance {
		m.logger.Warn("skipping collection, bid exceeds balance",
			slog.String("slug", c.Slug),
			slog.Float64("bid", quote.Price),
			slog.Float64("balance", balance),
		)
		return nil
	}

	quantity := m.bidQuantity(balance, quote.Price, len(traits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.SubmitConcurrency)
	for _, trait := range traits {
		g.Go(func() error {
			m.reconcileTrait(gctx, c, trait, bids, quote.Price, quantity)
			return gctx.Err()
		})
	}
	return g.Wait()
}

// reconcileTrait brings one trait's open bid to the target price and
// quantity. Failures are logged; the next pass re-evaluates.
func (m *Manager) reconcileTrait(ctx context.Context, c *domain.Collection, trait domain.Attribute, bids []domain.Bid, price float64, quantity int) {
	criteria := domain.TraitCriteria(trait.Key, trait.Value)

	var current *domain.Bid
	for i := range bids {
		if bids[i].MatchesTrait(trait.Key, trait.Value) && bids[i].Price == price {
			current = &bids[i]
			break
		}
	}

	switch {
	case current == nil:
		if err := m.venue.PlaceTraitBid(ctx, c.ContractAddress, criteria, price, quantity); err != nil {
			m.logTraitError(c, trait, "place bid failed", err)
			return
		}
		m.logger.Info("placed trait bid",
			slog.String("slug", c.Slug),
			slog.String("trait", trait.Key+":"+trait.Value),
			slog.Float64("price", price),
			slog.Int("quantity", quantity),
		)
	case current.Quantity() > quantity:
		// Shrink by recreating: criteria bids cannot be reduced in place.
		if err := m.venue.CancelBid(ctx, c.ContractAddress, criteria, current.Price); err != nil {
			m.logTraitError(c, trait, "cancel for resize failed", err)
			return
		}
		if err := m.venue.PlaceTraitBid(ctx, c.ContractAddress, criteria, price, quantity); err != nil {
			m.logTraitError(c, trait, "replacement bid failed", err)
			return
		}
		m.logger.Info("resized trait bid down",
			slog.String("slug", c.Slug),
			slog.String("trait", trait.Key+":"+trait.Value),
			slog.Int("from", current.Quantity()),
			slog.Int("to", quantity),
		)
	case current.Quantity() < quantity:
		if err := m.venue.PlaceTraitBid(ctx, c.ContractAddress, criteria, price, quantity-current.Quantity()); err != nil {
			m.logTraitError(c, trait, "top-up bid failed", err)
			return
		}
		m.logger.Info("topped up trait bid",
			slog.String("slug", c.Slug),
			slog.String("trait", trait.Key+":"+trait.Value),
			slog.Int("added", quantity-current.Quantity()),
		)
	}
}

// bidQuantity sizes one trait bid from the available balance. A pool of more
// than widePoolTraitCount traits halves the per-bid allocation.
func (m *Manager) bidQuantity(balance, price float64, traitCount int) int {
	multiplier := 1.0
	if traitCount > widePoolTraitCount {
		multiplier = 2.0
	}
	quantity := int(math.Floor(balance / (price * multiplier)))
	if quantity > m.cfg.MaxBids {
		quantity = m.cfg.MaxBids
	}
	if quantity < 1 {
		quantity = 1
	}
	return quantity
}

// cancelTraitBids cancels the open bids matching the eligible traits for
// which match returns true.
func (m *Manager) cancelTraitBids(ctx context.Context, c *domain.Collection, traits []domain.Attribute, bids []domain.Bid, match func(*domain.Bid) bool) {
	for _, trait := range traits {
		for i := range bids {
			b := &bids[i]
			if !b.MatchesTrait(trait.Key, trait.Value) || !match(b) {
				continue
			}
			criteria := domain.Criteria{Type: b.CriteriaType, Value: b.CriteriaValue}
			if err := m.venue.CancelBid(ctx, c.ContractAddress, criteria, b.Price); err != nil {
				m.logTraitError(c, trait, "cancel failed", err)
				continue
			}
			m.logger.Info("canceled trait bid",
				slog.String("slug", c.Slug),
				slog.String("trait", trait.Key+":"+trait.Value),
				slog.Float64("price", b.Price),
			)
		}
	}
}

func (m *Manager) logTraitError(c *domain.Collection, trait domain.Attribute, msg string, err error) {
	m.logger.Warn(msg,
		slog.String("slug", c.Slug),
		slog.String("trait", trait.Key+":"+trait.Value),
		slog.String("error", err.Error()),
	)
}

func bidsForContract(bids []domain.Bid, contractAddress string) []domain.Bid {
	var out []domain.Bid
	for _, b := range bids {
		if strings.EqualFold(b.ContractAddress, contractAddress) {
			out = append(out, b)
		}
	}
	return out
}
