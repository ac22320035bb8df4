package domain

import (
	"strings"
	"time"
)

// OwnedToken is a read-only snapshot of one token held by the bot's wallet,
// fetched fresh on every listing pass.
type OwnedToken struct {
	ContractAddress string   `json:"contractAddress"`
	TokenID         string   `json:"tokenId"`
	RarityRank      int      `json:"rarityRank"`
	Asks            []Ask    `json:"asks"`
	LastSale        LastSale `json:"lastSale"`
}

// Ask is one active listing of an owned token on a marketplace.
type Ask struct {
	Marketplace Marketplace `json:"marketplace"`
	Price       float64     `json:"price,string"`
}

// LastSale records when the token was acquired (listed into the wallet).
type LastSale struct {
	ListedAt time.Time `json:"listedAt"`
}

// AsksOn counts the token's active listings on the given marketplace.
func (t *OwnedToken) AsksOn(m Marketplace) int {
	n := 0
	for _, a := range t.Asks {
		if a.Marketplace == m {
			n++
		}
	}
	return n
}

// ListingEvent is one historical listing-creation event for a token.
type ListingEvent struct {
	Marketplace Marketplace `json:"marketplace"`
	FromTrader  Trader      `json:"fromTrader"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Trader identifies the wallet behind a listing event.
type Trader struct {
	Address string `json:"address"`
}

// ByWallet reports whether the event was created by the given wallet address,
// compared case-insensitively.
func (e *ListingEvent) ByWallet(address string) bool {
	return strings.EqualFold(e.FromTrader.Address, address)
}

// TokenListing is one live listing in a collection, used when positioning the
// bot's own ask against competing sellers.
type TokenListing struct {
	TokenID      string  `json:"tokenId"`
	RarityRank   int     `json:"rarityRank"`
	Price        float64 `json:"price"`
	PriceUnit    string  `json:"priceUnit"`
	IsSuspicious bool    `json:"isSuspicious"`
	OwnerAddress string  `json:"ownerAddress"`
}
