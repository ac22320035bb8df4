package pricing

import (
	"sort"

	"github.com/alanyoungcy/nftbidbot/internal/domain"
)

// ListInputs is everything a listing price computation reads: the
// collection's marketplace statistics, the token's rarity, and the live
// floor, top bid, and competing listings on the venue being listed on.
type ListInputs struct {
	Stats               domain.MarketStats
	CombinedBidAskRatio float64
	Floor               float64
	TopBid              float64
	RarityRank          int
	TotalSupply         int
	// Listings are other sellers' live listings, already filtered to
	// native-ETH, non-suspicious entries.
	Listings []domain.TokenListing
}

// ListQuote is the outcome of a listing price computation.
type ListQuote struct {
	Price            float64
	RarityMultiplier float64
	Reason           string
}

// OK reports whether the quote carries a usable price.
func (q ListQuote) OK() bool { return q.Reason == "" }

// ListPrice computes the ask for one token. The baseline is the 7-day median
// floor raised to the best live bid, scaled by the token's rarity bucket,
// clamped to the floor, then positioned against competing listings.
func ListPrice(in ListInputs, p Params) ListQuote {
	if in.Floor <= 0 {
		return ListQuote{Reason: "no floor price"}
	}
	if in.TotalSupply <= 0 {
		return ListQuote{Reason: "no supply data"}
	}

	price := in.Floor
	if in.Stats.SevenDayMedianDailyAverageFloorPrice > 0 {
		price = roundListing(in.Stats.SevenDayMedianDailyAverageFloorPrice)
	}
	// A listing must never undercut the best live bid.
	if in.TopBid > price {
		price = roundListing(in.TopBid)
	}

	pct := float64(in.RarityRank) / float64(in.TotalSupply)
	mult := 1.0
	rp := in.Stats.RankingPercentile
	switch {
	case pct <= 0.01:
		mult = p.TopOnePercentMultiplier
		price = roundListing(price * mult)
	case pct <= 0.1:
		if rp.OneToTen.ThirtyDayListingSales >= p.MinTopListingSamples {
			price = rp.OneToTen.ListingSaleRatio(p.MinTopListingSamples) * price
		}
	case pct <= 0.25:
		if rp.TenToTwentyFive.ThirtyDayListingSales >= p.MinMidListingSamples {
			price = rp.TenToTwentyFive.ListingSaleRatio(p.MinMidListingSamples) * price
		}
	case pct <= 0.5:
		price = midBandRatio(rp, p) * price
	}

	// Bids dominating sales signals a falling market: list commons at floor.
	if pct > 0.25 && in.CombinedBidAskRatio > p.BidDominanceRatio {
		price = in.Floor
	}

	price = roundListing(price)
	if price < in.Floor {
		price = roundListing(in.Floor)
	}

	byPrice := make([]domain.TokenListing, len(in.Listings))
	copy(byPrice, in.Listings)
	sort.Slice(byPrice, func(i, j int) bool { return byPrice[i].Price < byPrice[j].Price })

	// Never list a rare token far below what rarer tokens are asking.
	if cheapestRarer := cheapestAtOrAboveRarity(byPrice, pct, in.TotalSupply); cheapestRarer > 0 && price < cheapestRarer*p.UndercutSafeguardFactor {
		price = cheapestRarer * p.UndercutSafeguardFactor
	}

	// Undercut the cheapest competitor at or above the computed price, and
	// when the next one up is within the join gap, move up to it too,
	// joining the cluster instead of racing it down.
	if competitor := cheapestAtLeast(byPrice, roundListing(price), false); competitor > 0 {
		price = competitor
		if next := cheapestAtLeast(byPrice, roundListing(price), true); next > 0 {
			if price/next > 1-p.CompetitorJoinGap {
				price = next
			}
		}
	}

	if price > in.Floor {
		price = roundListing(price - 0.000001)
	} else {
		price = roundListing(in.Floor)
	}
	return ListQuote{Price: price, RarityMultiplier: mult}
}

// midBandRatio selects the listing-sale ratio for the 25-50 band, falling
// back to the wider 10-50 bucket when the narrow band is under-sampled.
func midBandRatio(rp domain.RankingPercentiles, p Params) float64 {
	switch {
	case rp.TwentyFiveToFifty.ThirtyDayAdjustedListingSales >= p.MinMidListingSamples:
		return rp.TwentyFiveToFifty.ThirtyDayAdjustedAverageListingSalePriceToFloorPriceRatio
	case rp.TenToFifty.ThirtyDayAdjustedListingSales >= p.MinMidListingSamples:
		return rp.TenToFifty.ThirtyDayAdjustedAverageListingSalePriceToFloorPriceRatio
	default:
		return rp.TwentyFiveToFifty.ThirtyDayAverageListingSalePriceToFloorPriceRatio
	}
}

// cheapestAtOrAboveRarity returns the lowest price among listings of tokens
// at least as rare as pct. Listings without a known rank are skipped.
func cheapestAtOrAboveRarity(byPrice []domain.TokenListing, pct float64, supply int) float64 {
	for _, l := range byPrice {
		if l.RarityRank <= 0 {
			continue
		}
		if float64(l.RarityRank)/float64(supply) <= pct {
			return l.Price
		}
	}
	return 0
}

// cheapestAtLeast returns the lowest competing price >= limit, or > limit
// when strict.
func cheapestAtLeast(byPrice []domain.TokenListing, limit float64, strict bool) float64 {
	for _, l := range byPrice {
		if l.Price > limit || (!strict && l.Price == limit) {
			return l.Price
		}
	}
	return 0
}
