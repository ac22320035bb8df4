package domain

import (
	"strings"
	"time"
)

// Collection is one tracked NFT collection. A collection is uniquely keyed by
// Slug; the catalog never holds two entries with the same slug.
type Collection struct {
	Slug                 string      `json:"slug"`
	ContractAddress      string      `json:"contractAddress"`
	TotalSupply          int         `json:"totalSupply"`
	AttributesTotalCount int         `json:"attributesTotalCount"`
	Attributes           []Attribute `json:"attributes"`

	Blur    MarketStats `json:"blur"`
	OpenSea MarketStats `json:"opensea"`

	DateAddedToList time.Time `json:"dateAddedToList"`
	DateLastUpdated time.Time `json:"dateLastUpdated"`
}

// Stats returns the per-marketplace statistics sub-record for m.
func (c *Collection) Stats(m Marketplace) *MarketStats {
	if m == MarketplaceOpenSea {
		return &c.OpenSea
	}
	return &c.Blur
}

// CombinedBidAskRatio is accepted-bid sales divided by listing sales over the
// trailing seven days, summed across both marketplaces. A ratio above 1
// implies bid-side pressure. Returns 0 when there are no listing sales.
func (c *Collection) CombinedBidAskRatio() float64 {
	listings := c.Blur.SevenDayListingSales + c.OpenSea.SevenDayListingSales
	if listings == 0 {
		return 0
	}
	return (c.Blur.SevenDayAcceptedBidSales + c.OpenSea.SevenDayAcceptedBidSales) / listings
}

// CombinedDailyListingSales is the seven-day average daily listing-sale
// velocity summed across both marketplaces.
func (c *Collection) CombinedDailyListingSales() float64 {
	return c.Blur.SevenDayAverageDailyListingSales + c.OpenSea.SevenDayAverageDailyListingSales
}

// Attribute is one trait key/value pair of a collection, with per-marketplace
// trait statistics. Counts are reported twice (Count and CountVerification)
// by independent sources; a mismatch marks the trait as untrusted.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`

	Blur    TraitStats `json:"blur"`
	OpenSea TraitStats `json:"opensea"`
}

// Stats returns the per-marketplace trait statistics for m.
func (a *Attribute) Stats(m Marketplace) *TraitStats {
	if m == MarketplaceOpenSea {
		return &a.OpenSea
	}
	return &a.Blur
}

// SameTrait reports whether a and b name the same trait, comparing key and
// value case-insensitively.
func (a *Attribute) SameTrait(b *Attribute) bool {
	return strings.EqualFold(a.Key, b.Key) && strings.EqualFold(a.Value, b.Value)
}

// TraitStats holds one marketplace's view of a single trait.
type TraitStats struct {
	Count              int     `json:"count"`
	CountVerification  int     `json:"countVerification"`
	RarityPercentFloor float64 `json:"rarityPercentFloor"`

	ThirtyDayAverageListingSalePriceToFloorPriceRatio     float64 `json:"thirtyDayAverageListingSalePriceToFloorPriceRatio"`
	ThirtyDayAverageAcceptedBidSalePriceToFloorPriceRatio float64 `json:"thirtyDayAverageAcceptedBidSalePriceToFloorPriceRatio"`
}
