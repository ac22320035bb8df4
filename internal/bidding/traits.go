package bidding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/nftbidbot/internal/domain"
	"github.com/alanyoungcy/nftbidbot/internal/pricing"
)

// eligibleTraits selects the traits of a collection worth bidding on in the
// given rarity bucket. A trait must clear the filter on BOTH marketplaces'
// statistics: a verified count, a bounded supply share, and a rarity floor
// inside the bucket (or, for common buckets, the demand-inflation proxy).
// Traits whose key/value is not unique case-insensitively are dropped as
// untrusted metadata.
func (m *Manager) eligibleTraits(c *domain.Collection, bucket pricing.Bucket) []domain.Attribute {
	var out []domain.Attribute
	for i := range c.Attributes {
		a := &c.Attributes[i]
		if strings.TrimSpace(a.Value) == "" {
			continue
		}
		if !traitEligibleOn(&a.Blur, c.TotalSupply, bucket) || !traitEligibleOn(&a.OpenSea, c.TotalSupply, bucket) {
			continue
		}
		if !traitUnique(c, a) {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// traitEligibleOn applies one marketplace's view of the trait filter.
func traitEligibleOn(s *domain.TraitStats, totalSupply int, bucket pricing.Bucket) bool {
	if s.Count <= 0 || s.RarityPercentFloor <= 0 {
		return false
	}
	if s.Count != s.CountVerification {
		return false
	}
	if totalSupply <= 0 || float64(s.Count)/float64(totalSupply) > maxTraitSupplyShare {
		return false
	}

	inBucket := s.RarityPercentFloor > bucket.From && s.RarityPercentFloor <= bucket.To
	inflated := bucket.From >= 10 &&
		s.ThirtyDayAverageListingSalePriceToFloorPriceRatio > inflatedListingRatio &&
		s.ThirtyDayAverageAcceptedBidSalePriceToFloorPriceRatio > 0 &&
		s.ThirtyDayAverageAcceptedBidSalePriceToFloorPriceRatio < 1.0
	return inBucket || inflated
}

// traitUnique reports whether exactly one attribute in the collection
// carries this key/value pair, comparing case-insensitively.
func traitUnique(c *domain.Collection, a *domain.Attribute) bool {
	matches := 0
	for i := range c.Attributes {
		if c.Attributes[i].SameTrait(a) {
			matches++
		}
	}
	return matches == 1
}

// breadthWithinCaps rejects a bucket pass that would spread bids over too
// much of the collection: more than half its populated traits, or traits
// covering more than 30% of the supply.
func (m *Manager) breadthWithinCaps(c *domain.Collection, bucket pricing.Bucket, traits []domain.Attribute) bool {
	populated := 0
	for i := range c.Attributes {
		if c.Attributes[i].Blur.Count > 0 {
			populated++
		}
	}
	if len(traits)*2 > populated {
		m.logger.Warn("skipping bucket, bidding on too many traits",
			slog.String("slug", c.Slug),
			slog.Float64("bucket_to", bucket.To),
			slog.Int("traits", len(traits)),
		)
		return false
	}

	covered := 0
	for _, t := range traits {
		covered += t.Blur.Count
	}
	if c.TotalSupply > 0 && float64(covered)/float64(c.TotalSupply) > maxBidTokenShare {
		m.logger.Warn("skipping bucket, trait coverage exceeds supply share",
			slog.String("slug", c.Slug),
			slog.Float64("bucket_to", bucket.To),
			slog.Int("covered", covered),
		)
		return false
	}
	return true
}

// exposureState summarizes the wallet's current holdings per collection for
// the optional exposure caps.
type exposureState struct {
	owned        map[string]int
	lastAcquired map[string]time.Time
}

// allows reports whether exposure limits still permit bidding on the
// contract.
func (e *exposureState) allows(contractAddress string, cfg Config, now time.Time) bool {
	key := strings.ToLower(contractAddress)
	if cfg.MaxTokensPerCollection > 0 && e.owned[key] >= cfg.MaxTokensPerCollection {
		return false
	}
	if cfg.Cooldown > 0 {
		if last, ok := e.lastAcquired[key]; ok && now.Sub(last) < cfg.Cooldown {
			return false
		}
	}
	return true
}

// loadExposure fetches the wallet inventory when an exposure cap is
// configured; otherwise it returns nil and the caps are skipped.
func (m *Manager) loadExposure(ctx context.Context) (*exposureState, error) {
	if m.cfg.MaxTokensPerCollection <= 0 && m.cfg.Cooldown <= 0 {
		return nil, nil
	}
	if m.tokens == nil {
		return nil, nil
	}

	owned, err := m.tokens.UserTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("bidding: exposure inventory: %w", err)
	}
	state := &exposureState{
		owned:        make(map[string]int),
		lastAcquired: make(map[string]time.Time),
	}
	for _, t := range owned {
		key := strings.ToLower(t.ContractAddress)
		state.owned[key]++
		if t.LastSale.ListedAt.After(state.lastAcquired[key]) {
			state.lastAcquired[key] = t.LastSale.ListedAt
		}
	}
	return state, nil
}
