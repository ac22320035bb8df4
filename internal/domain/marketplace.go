// Package domain defines the core entities shared across the bot: tracked
// collections and their marketplace statistics, trait attributes, user bids,
// owned tokens, and listing events. It also declares the sentinel errors and
// the interfaces the pricing, bidding, and listing layers depend on.
package domain

// Marketplace identifies one of the two supported NFT marketplaces.
type Marketplace string

const (
	MarketplaceBlur    Marketplace = "BLUR"
	MarketplaceOpenSea Marketplace = "OPENSEA"
)

// String returns the wire form of the marketplace name.
func (m Marketplace) String() string { return string(m) }
