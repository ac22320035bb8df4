package domain

// MarketStats is one marketplace's rolling aggregate view of a collection.
// All price fields are ETH denominated; ratios are dimensionless, derived as
// price / floorPrice.
type MarketStats struct {
	OneDayAverageFloorPrice float64 `json:"oneDayAverageFloorPrice"`

	SevenDayAverageDailyAverageFloorPrice float64 `json:"sevenDayAverageDailyAverageFloorPrice"`
	SevenDayMedianDailyAverageFloorPrice  float64 `json:"sevenDayMedianDailyAverageFloorPrice"`
	SevenDayFloorPriceIncreases           int     `json:"sevenDayFloorPriceIncreases"`
	SevenDayListingSales                  float64 `json:"sevenDayListingSales"`
	SevenDayAcceptedBidSales              float64 `json:"sevenDayAcceptedBidSales"`
	SevenDayAverageDailyListingSales      float64 `json:"sevenDayAverageDailyListingSales"`

	ThirtyDayAverageDailyAverageFloorPrice float64 `json:"thirtyDayAverageDailyAverageFloorPrice"`

	RankingPercentile RankingPercentiles `json:"rankingPercentile"`
}

// RankingPercentiles buckets collection sales statistics by token rarity
// percentile. TenToFifty is the union bucket used as a wider-sample fallback
// for the narrower mid buckets.
type RankingPercentiles struct {
	OneToTen          PercentileBucket `json:"oneToTen"`
	TenToTwentyFive   PercentileBucket `json:"tenToTwentyFive"`
	TwentyFiveToFifty PercentileBucket `json:"twentyFiveToFifty"`
	TenToFifty        PercentileBucket `json:"tenToFifty"`
}

// PercentileBucket carries thirty-day sale statistics for one rarity
// percentile band. "Adjusted" figures are outlier-filtered variants of the
// raw ones; the adjusted ratio is only trusted when the adjusted sample size
// meets a confidence minimum.
type PercentileBucket struct {
	ThirtyDayListingSales         float64 `json:"thirtyDayListingSales"`
	ThirtyDayAdjustedListingSales float64 `json:"thirtyDayAdjustedListingSales"`

	ThirtyDayAcceptedBidSales         float64 `json:"thirtyDayAcceptedBidSales"`
	ThirtyDayAdjustedAcceptedBidSales float64 `json:"thirtyDayAdjustedAcceptedBidSales"`

	ThirtyDayAverageListingSalePriceToFloorPriceRatio             float64 `json:"thirtyDayAverageListingSalePriceToFloorPriceRatio"`
	ThirtyDayAdjustedAverageListingSalePriceToFloorPriceRatio     float64 `json:"thirtyDayAdjustedAverageListingSalePriceToFloorPriceRatio"`
	ThirtyDayAverageAcceptedBidSalePriceToFloorPriceRatio         float64 `json:"thirtyDayAverageAcceptedBidSalePriceToFloorPriceRatio"`
	ThirtyDayAdjustedAverageAcceptedBidSalePriceToFloorPriceRatio float64 `json:"thirtyDayAdjustedAverageAcceptedBidSalePriceToFloorPriceRatio"`
}

// ListingSaleRatio returns the listing-sale-to-floor price ratio for the
// bucket, preferring the adjusted figure when the adjusted sample size is at
// least minSamples, else the raw figure.
func (b *PercentileBucket) ListingSaleRatio(minSamples float64) float64 {
	if b.ThirtyDayAdjustedListingSales < minSamples {
		return b.ThirtyDayAverageListingSalePriceToFloorPriceRatio
	}
	return b.ThirtyDayAdjustedAverageListingSalePriceToFloorPriceRatio
}
