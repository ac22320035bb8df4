package domain

import "context"

// CollectionProvider fetches collection-level data from the aggregated NFT
// data API. Implementations page through cursors internally.
type CollectionProvider interface {
	// ListCollections returns the full remote collection list.
	ListCollections(ctx context.Context) ([]Collection, error)
	// GetCollection returns core collection data for one slug.
	GetCollection(ctx context.Context, slug string) (*Collection, error)
	// GetCollectionAttributes returns the trait ranking for one slug along
	// with the reported total attribute count.
	GetCollectionAttributes(ctx context.Context, slug string) ([]Attribute, int, error)
}

// Venue is one marketplace's trading surface: the funds available on it, the
// wallet's open bids, live collection market data, and bid/listing actions.
// The bidding and listing managers are written against this interface so the
// Blur and OpenSea passes share one code path.
type Venue interface {
	Name() Marketplace

	// Balance returns the venue's bidding balance (BETH on Blur, WETH on
	// OpenSea) in ETH units, read fresh from chain.
	Balance(ctx context.Context) (float64, error)

	// UserTraitBids returns the wallet's open TRAIT criteria bids.
	UserTraitBids(ctx context.Context) ([]Bid, error)

	// CollectionMarket returns the live floor price and the best competing
	// executable bid (highest bid not placed by this wallet) for a
	// collection. A zero TopBid means no competing bid exists.
	CollectionMarket(ctx context.Context, slug string) (float64, TopBid, error)

	// CollectionListings returns the live listings of other sellers in a
	// collection, for competitor-aware ask positioning.
	CollectionListings(ctx context.Context, slug string) ([]TokenListing, error)

	// PlaceTraitBid formats, signs, and submits a trait bid.
	PlaceTraitBid(ctx context.Context, contractAddress string, criteria Criteria, price float64, quantity int) error

	// CancelBid cancels one open criteria bid at the given price.
	CancelBid(ctx context.Context, contractAddress string, criteria Criteria, price float64) error

	// SubmitListing formats, signs, and submits an ask for one token.
	SubmitListing(ctx context.Context, contractAddress, tokenID string, price float64) error
}

// TokenSource exposes the wallet's token inventory and per-token listing
// history. Both marketplaces' listing events flow through the same source.
type TokenSource interface {
	// UserTokens returns the wallet's owned tokens with their active asks.
	UserTokens(ctx context.Context) ([]OwnedToken, error)
	// TokenListingEvents returns the listing-creation history of one token
	// across marketplaces, newest first.
	TokenListingEvents(ctx context.Context, contractAddress, tokenID string) ([]ListingEvent, error)
}

// RarityOracle resolves a token's rarity rank from a marketplace's own
// metadata. Used by the listing manager when a token's snapshot rank needs a
// second opinion.
type RarityOracle interface {
	// TokenRarityRank returns the marketplace's rarity rank for one token,
	// or 0 when the marketplace reports none.
	TokenRarityRank(ctx context.Context, contractAddress, tokenID string) (int, error)
}

// ChainWallet performs the on-chain reads and writes the bot needs. Balances
// and approval state are read fresh per operation, never cached.
type ChainWallet interface {
	// Address returns the bot wallet address.
	Address() string
	// TokenBalance returns the ERC-20 balance of the wallet for the given
	// token contract, in whole-token (18 decimal) units.
	TokenBalance(ctx context.Context, tokenContract string) (float64, error)
	// EnsureApproval checks ERC-721 delegate approval for operator on the
	// given contract, submitting setApprovalForAll and waiting for it to
	// take effect when missing. Returns ErrNotApproved if the approval does
	// not confirm within the wait budget.
	EnsureApproval(ctx context.Context, nftContract, operator string) error
}
