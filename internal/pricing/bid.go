package pricing

import (
	"github.com/alanyoungcy/nftbidbot/internal/domain"
)

// BidInputs is everything a trait bid computation reads: the collection's
// marketplace statistics, the cross-marketplace bid/ask ratio, and the live
// floor and top competing bid on the venue being bid on.
type BidInputs struct {
	Stats               domain.MarketStats
	CombinedBidAskRatio float64
	Floor               float64
	Top                 domain.TopBid
}

// Quote is the outcome of a bid computation. A non-empty Reason means no bid
// should be live: the caller retires existing bids instead of placing one.
type Quote struct {
	Price  float64
	Reason string
}

// OK reports whether the quote carries a placeable price.
func (q Quote) OK() bool { return q.Reason == "" }

// TraitBidAmount computes the bid amount for traits in the given rarity
// bucket, anchored on the venue's top executable bid. The bid steps one tick
// above the top bid only when the collection's sale history projects enough
// margin, and is rejected outright when that margin is absent even at the
// top bid itself.
func TraitBidAmount(in BidInputs, bucket Bucket, p Params) Quote {
	rp := in.Stats.RankingPercentile

	if bucket.IsTop() {
		if rp.OneToTen.ThirtyDayAdjustedAcceptedBidSales < p.MinAcceptedBidSamples {
			return Quote{Reason: "not enough accepted-bid history in the 0-10 percentile"}
		}
	} else {
		if rp.TenToFifty.ThirtyDayAdjustedAcceptedBidSales < p.MinAcceptedBidSamples {
			return Quote{Reason: "not enough accepted-bid history in the 10-50 percentile"}
		}
		if rp.TenToFifty.ThirtyDayAdjustedAverageListingSalePriceToFloorPriceRatio > p.MidListingRatioCeiling {
			return Quote{Reason: "listing-sale-to-floor ratio abnormally high"}
		}
	}

	if in.Floor <= 0 {
		return Quote{Reason: "no floor price"}
	}
	if in.Top.Price <= 0 {
		return Quote{Reason: "no executable bids"}
	}

	bid := in.Top.Price
	raise := in.Top.Price + Tick(in.Top.Price)

	if bucket.IsTop() {
		ratio := rp.OneToTen.ListingSaleRatio(p.MinTopListingSamples)
		if raise <= in.Stats.SevenDayMedianDailyAverageFloorPrice &&
			in.CombinedBidAskRatio < p.MaxBidAskRatio &&
			in.Floor*ratio > raise*p.ProfitMargin {
			bid = raise
		}
		if bid*p.ProfitMargin > ratio*in.Floor {
			return Quote{Reason: "bid not profitable against projected sale price"}
		}
		return Quote{Price: Round(bid)}
	}

	// Mid bucket: never bid above the 7-day median floor, a spike guard.
	if bid > in.Stats.SevenDayMedianDailyAverageFloorPrice {
		bid = Round(in.Stats.SevenDayMedianDailyAverageFloorPrice)
	}

	ratio := rp.TenToFifty.ListingSaleRatio(p.MinMidListingSamples)
	projected := Round(rp.TenToFifty.ThirtyDayAverageAcceptedBidSalePriceToFloorPriceRatio * in.Floor)

	if in.Top.Price >= bid &&
		raise <= in.Stats.SevenDayMedianDailyAverageFloorPrice &&
		in.CombinedBidAskRatio < p.MaxBidAskRatio &&
		in.Floor*ratio > raise*p.ProfitMargin &&
		raise <= projected &&
		raise < in.Floor &&
		raise < in.Stats.OneDayAverageFloorPrice {
		// Step above the top bid only when the bid pool is deep enough to
		// absorb the competition; otherwise match it.
		if in.Top.BidderCount > p.MinBidderDepth {
			bid = raise
		} else {
			bid = in.Top.Price
		}
	}

	if bid*p.ProfitMargin > ratio*in.Floor {
		return Quote{Reason: "bid not profitable against projected sale price"}
	}
	return Quote{Price: Round(bid)}
}
