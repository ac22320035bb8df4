// Package pricing computes trait bid amounts and token listing prices from
// collection statistics and live market state. Everything here is a pure
// function of its inputs; the managers assemble the inputs from a catalog
// snapshot plus live venue data and act on the returned quotes.
package pricing

import "math"

// Params carries the numeric thresholds of the pricing heuristics. The
// defaults encode the tuned production values; tests override individual
// fields to pin down single rules.
type Params struct {
	// MinAcceptedBidSamples is the minimum adjusted accepted-bid sale count
	// a rarity bucket needs before any bid is quoted against it.
	MinAcceptedBidSamples float64

	// MinTopListingSamples and MinMidListingSamples gate the adjusted
	// listing-sale ratio: below the minimum the raw ratio is used instead.
	MinTopListingSamples float64
	MinMidListingSamples float64

	// MidListingRatioCeiling rejects mid-bucket bids when the bucket's
	// listing-sale-to-floor ratio exceeds it, a sign the floor is unreliable.
	MidListingRatioCeiling float64

	// MaxBidAskRatio caps the combined accepted-bid to listing-sale ratio
	// under which outbidding the top bid is still allowed.
	MaxBidAskRatio float64

	// ProfitMargin is the multiple by which the projected sale price must
	// exceed the bid for the bid to be worth placing.
	ProfitMargin float64

	// MinBidderDepth is the bidder count the top level needs before a
	// mid-bucket bid steps above it rather than matching it.
	MinBidderDepth int

	// TopOnePercentMultiplier is the flat listing multiplier for tokens in
	// the top 1% of rarity.
	TopOnePercentMultiplier float64

	// BidDominanceRatio is the combined bid/ask ratio above which common
	// tokens are listed at the plain floor price.
	BidDominanceRatio float64

	// CompetitorJoinGap is the maximum relative gap under which the listing
	// joins the next-higher competitor cluster instead of undercutting alone.
	CompetitorJoinGap float64

	// UndercutSafeguardFactor floors the listing at this fraction of the
	// cheapest listing of rarer tokens.
	UndercutSafeguardFactor float64
}

// DefaultParams returns the production thresholds.
func DefaultParams() Params {
	return Params{
		MinAcceptedBidSamples:   3,
		MinTopListingSamples:    3,
		MinMidListingSamples:    5,
		MidListingRatioCeiling:  1.5,
		MaxBidAskRatio:          1.2,
		ProfitMargin:            1.05,
		MinBidderDepth:          3,
		TopOnePercentMultiplier: 1.28,
		BidDominanceRatio:       1.5,
		CompetitorJoinGap:       0.03,
		UndercutSafeguardFactor: 0.8,
	}
}

// Bucket is a rarity percentile band bids are scoped to.
type Bucket struct {
	From float64
	To   float64
}

var (
	// TopBucket covers the rarest 10% of a collection.
	TopBucket = Bucket{From: 0, To: 10}
	// MidBucket covers the 10th through 50th rarity percentile.
	MidBucket = Bucket{From: 10, To: 50}
)

// IsTop reports whether the bucket lies entirely within the top decile.
func (b Bucket) IsTop() bool { return b.To <= 10 }

// Decimals returns the price precision for the given magnitude.
func Decimals(price float64) int {
	switch {
	case price < 0.1:
		return 4
	case price < 1.0:
		return 3
	default:
		return 2
	}
}

// Tick returns the minimum outbid increment for the given magnitude.
func Tick(price float64) float64 {
	switch {
	case price < 0.1:
		return 0.0001
	case price < 1.0:
		return 0.003
	default:
		return 0.05
	}
}

// Round rounds a price to its tier precision.
func Round(price float64) float64 {
	pow := math.Pow(10, float64(Decimals(price)))
	return math.Round(price*pow) / pow
}

// roundListing rounds a listing price to the six decimals the marketplaces
// accept for asks.
func roundListing(price float64) float64 {
	return math.Round(price*1e6) / 1e6
}
