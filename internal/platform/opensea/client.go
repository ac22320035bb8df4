// Package opensea is the OpenSea API v2 client: collection stats and offers,
// paginated listings, token rarity lookup, and order submission through
// locally assembled, EIP-712 signed Seaport orders.
package opensea

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/nftbidbot/internal/crypto"
	"github.com/alanyoungcy/nftbidbot/internal/domain"
	"github.com/alanyoungcy/nftbidbot/internal/platform/request"
)

const (
	// pageSize is the listings page length; a short page ends pagination.
	pageSize = 100

	// listingPageCap bounds the all-listings pagination loop.
	listingPageCap = 10
)

// Config carries the client's collaborator wiring.
type Config struct {
	WalletAddress       string
	WETHContractAddress string
	SeaportAddress      string
	ConduitAddress      string
	ListingDuration     time.Duration
	// OfferDuration is the lifetime of submitted trait offers. It is kept
	// short so that expiry, not cancellation, retires superseded offers.
	OfferDuration time.Duration
}

// Client implements domain.Venue and domain.RarityOracle for OpenSea.
type Client struct {
	http   *request.Client
	signer *crypto.Signer
	chain  domain.ChainWallet
	cfg    Config
	logger *slog.Logger

	mu sync.Mutex
	// slugs caches contract address to collection slug resolution.
	slugs map[string]string
	// orderHashes maps open-bid identity to the order hash needed for
	// cancellation, refreshed on every UserTraitBids call.
	orderHashes map[string]string
}

// New creates an OpenSea client.
func New(baseURL, apiKey string, policy request.Policy, signer *crypto.Signer, chain domain.ChainWallet, cfg Config, logger *slog.Logger) *Client {
	logger = logger.With(slog.String("component", "opensea"))
	return &Client{
		http:        request.New(baseURL, map[string]string{"X-API-KEY": apiKey}, policy, logger),
		signer:      signer,
		chain:       chain,
		cfg:         cfg,
		logger:      logger,
		slugs:       make(map[string]string),
		orderHashes: make(map[string]string),
	}
}

// Name returns the marketplace identifier.
func (c *Client) Name() domain.Marketplace { return domain.MarketplaceOpenSea }

// Balance returns the wallet's WETH balance, read fresh from chain.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	return c.chain.TokenBalance(ctx, c.cfg.WETHContractAddress)
}

type statsResponse struct {
	Total struct {
		FloorPrice float64 `json:"floor_price"`
	} `json:"total"`
}

type apiPrice struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type apiOffer struct {
	OrderHash    string       `json:"order_hash"`
	Price        apiPrice     `json:"price"`
	Criteria     *apiCriteria `json:"criteria"`
	ProtocolData struct {
		Parameters orderParameters `json:"parameters"`
	} `json:"protocol_data"`
}

type apiCriteria struct {
	Collection struct {
		Slug string `json:"slug"`
	} `json:"collection"`
	Contract struct {
		Address string `json:"address"`
	} `json:"contract"`
	Trait *struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"trait"`
}

type collectionOffersResponse struct {
	Offers []apiOffer `json:"offers"`
}

// CollectionMarket returns the live floor price and best collection offer
// not placed by this wallet. A zero floor maps to ErrNoData.
func (c *Client) CollectionMarket(ctx context.Context, slug string) (float64, domain.TopBid, error) {
	var stats statsResponse
	if err := c.http.GetJSON(ctx, "/api/v2/collections/"+slug+"/stats", &stats); err != nil {
		return 0, domain.TopBid{}, fmt.Errorf("opensea: stats %q: %w", slug, err)
	}
	if stats.Total.FloorPrice <= 0 {
		return 0, domain.TopBid{}, fmt.Errorf("opensea: stats %q floor: %w", slug, domain.ErrNoData)
	}

	var offers collectionOffersResponse
	if err := c.http.GetJSON(ctx, "/api/v2/offers/collection/"+slug, &offers); err != nil {
		return 0, domain.TopBid{}, fmt.Errorf("opensea: collection offers %q: %w", slug, err)
	}

	var top domain.TopBid
	for _, o := range offers.Offers {
		if strings.EqualFold(o.ProtocolData.Parameters.Offerer, c.cfg.WalletAddress) {
			continue
		}
		price := weiToEth(o.Price.Value)
		switch {
		case price > top.Price:
			top = domain.TopBid{Price: price, BidCount: 1, BidderCount: 1}
		case price == top.Price && price > 0:
			top.BidCount++
			top.BidderCount++
		}
	}
	return stats.Total.FloorPrice, top, nil
}

type apiListing struct {
	Price struct {
		Current apiPrice `json:"current"`
	} `json:"price"`
	ProtocolData struct {
		Parameters orderParameters `json:"parameters"`
	} `json:"protocol_data"`
}

type listingsResponse struct {
	Listings []apiListing `json:"listings"`
	Next     string       `json:"next"`
}

// CollectionListings returns all live native-ETH listings of other sellers.
// OpenSea listings carry no rarity rank, so RarityRank is left at zero and
// rank sensitive pricing rules skip these entries.
func (c *Client) CollectionListings(ctx context.Context, slug string) ([]domain.TokenListing, error) {
	var (
		listings []domain.TokenListing
		next     string
	)
	for i := 0; i <= listingPageCap; i++ {
		path := fmt.Sprintf("/api/v2/listings/collection/%s/all?limit=%d", slug, pageSize)
		if next != "" {
			path += "&next=" + next
		}
		var resp listingsResponse
		if err := c.http.GetJSON(ctx, path, &resp); err != nil {
			return nil, fmt.Errorf("opensea: listings %q: %w", slug, err)
		}
		if len(resp.Listings) == 0 {
			break
		}

		for _, l := range resp.Listings {
			params := l.ProtocolData.Parameters
			if strings.EqualFold(params.Offerer, c.cfg.WalletAddress) {
				continue
			}
			if l.Price.Current.Currency != "ETH" || len(params.Offer) == 0 {
				continue
			}
			listings = append(listings, domain.TokenListing{
				TokenID:      params.Offer[0].IdentifierOrCriteria,
				Price:        weiToEth(l.Price.Current.Value),
				PriceUnit:    l.Price.Current.Currency,
				OwnerAddress: params.Offerer,
			})
		}
		next = resp.Next
		if next == "" || len(resp.Listings) < pageSize {
			break
		}
	}
	return listings, nil
}

type userOffersResponse struct {
	Offers []apiOffer `json:"offers"`
	Next   string     `json:"next"`
}

// UserTraitBids returns the wallet's open trait offers and refreshes the
// order-hash index used by CancelBid.
func (c *Client) UserTraitBids(ctx context.Context) ([]domain.Bid, error) {
	var (
		bids   []domain.Bid
		hashes = make(map[string]string)
		next   string
	)
	for i := 0; i <= listingPageCap; i++ {
		path := fmt.Sprintf("/api/v2/offers/user/%s?limit=%d", c.cfg.WalletAddress, pageSize)
		if next != "" {
			path += "&next=" + next
		}
		var resp userOffersResponse
		if err := c.http.GetJSON(ctx, path, &resp); err != nil {
			return nil, fmt.Errorf("opensea: user offers: %w", err)
		}
		if len(resp.Offers) == 0 {
			break
		}

		for _, o := range resp.Offers {
			if o.Criteria == nil || o.Criteria.Trait == nil {
				continue
			}
			bid := domain.Bid{
				ContractAddress: o.Criteria.Contract.Address,
				CriteriaType:    domain.CriteriaTrait,
				CriteriaValue:   map[string]string{o.Criteria.Trait.Type: o.Criteria.Trait.Value},
				Price:           weiToEth(o.Price.Value),
				OpenSize:        1,
			}
			bids = append(bids, bid)
			hashes[bidKey(bid.ContractAddress, domain.Criteria{Type: bid.CriteriaType, Value: bid.CriteriaValue}, bid.Price)] = o.OrderHash
		}
		next = resp.Next
		if next == "" || len(resp.Offers) < pageSize {
			break
		}
	}

	c.mu.Lock()
	c.orderHashes = hashes
	c.mu.Unlock()
	return bids, nil
}

type buildOfferResponse struct {
	PartialParameters struct {
		Consideration []orderItem `json:"consideration"`
		Zone          string      `json:"zone"`
		ZoneHash      string      `json:"zoneHash"`
	} `json:"partialParameters"`
}

// PlaceTraitBid builds, signs, and submits a Seaport criteria offer for one
// trait. The offer funds in WETH and expires after OfferDuration.
func (c *Client) PlaceTraitBid(ctx context.Context, contractAddress string, criteria domain.Criteria, price float64, quantity int) error {
	slug, err := c.slugFor(ctx, contractAddress)
	if err != nil {
		return err
	}
	traitType, traitValue, ok := singleTrait(criteria)
	if !ok {
		return fmt.Errorf("opensea: trait bid on %s: criteria has no trait: %w", contractAddress, domain.ErrBadRequest)
	}

	apiCrit := map[string]any{
		"collection": map[string]string{"slug": slug},
		"trait":      map[string]string{"type": traitType, "value": traitValue},
	}
	var build buildOfferResponse
	err = c.http.PostJSON(ctx, "/api/v2/offers/build", map[string]any{
		"offerer":          c.cfg.WalletAddress,
		"quantity":         quantity,
		"criteria":         apiCrit,
		"protocol_address": c.cfg.SeaportAddress,
	}, &build)
	if err != nil {
		return fmt.Errorf("opensea: build offer: %w", err)
	}
	if len(build.PartialParameters.Consideration) == 0 {
		return fmt.Errorf("opensea: build offer for %s: %w", contractAddress, domain.ErrNoData)
	}

	now := time.Now()
	salt, err := newSalt()
	if err != nil {
		return fmt.Errorf("opensea: offer: %w", err)
	}
	totalWei := ethToWei(price * float64(quantity))
	orderType := orderTypePartialOpen
	if !strings.EqualFold(build.PartialParameters.Zone, zeroAddress) {
		orderType = orderTypePartialRestricted
	}
	params := orderParameters{
		Offerer: c.cfg.WalletAddress,
		Zone:    build.PartialParameters.Zone,
		Offer: []orderItem{{
			ItemType:             itemTypeERC20,
			Token:                c.cfg.WETHContractAddress,
			IdentifierOrCriteria: "0",
			StartAmount:          totalWei.String(),
			EndAmount:            totalWei.String(),
		}},
		Consideration:                   build.PartialParameters.Consideration,
		OrderType:                       orderType,
		StartTime:                       fmt.Sprintf("%d", now.Unix()),
		EndTime:                         fmt.Sprintf("%d", now.Add(c.cfg.OfferDuration).Unix()),
		ZoneHash:                        build.PartialParameters.ZoneHash,
		Salt:                            salt,
		ConduitKey:                      conduitKey,
		TotalOriginalConsiderationItems: len(build.PartialParameters.Consideration),
		Counter:                         "0",
	}

	signature, err := c.signer.SignTypedData(params.typedData(c.cfg.SeaportAddress))
	if err != nil {
		return fmt.Errorf("opensea: offer: %w: %v", domain.ErrSigningFailed, err)
	}

	err = c.http.PostJSON(ctx, "/api/v2/offers", map[string]any{
		"protocol_data": map[string]any{
			"parameters": params,
			"signature":  signature,
		},
		"criteria":         apiCrit,
		"protocol_address": c.cfg.SeaportAddress,
	}, nil)
	if err != nil {
		return fmt.Errorf("opensea: submit offer: %w", err)
	}
	return nil
}

// CancelBid cancels one open trait offer, resolved to its order hash through
// the index UserTraitBids maintains. A bid the index does not know was
// already retired by expiry.
func (c *Client) CancelBid(ctx context.Context, contractAddress string, criteria domain.Criteria, price float64) error {
	c.mu.Lock()
	hash, ok := c.orderHashes[bidKey(contractAddress, criteria, price)]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	path := fmt.Sprintf("/api/v2/orders/chain/ethereum/protocol/%s/%s/cancel", c.cfg.SeaportAddress, hash)
	if err := c.http.PostJSON(ctx, path, map[string]any{"offerer": c.cfg.WalletAddress}, nil); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("opensea: cancel offer %s: %w", hash, err)
	}
	return nil
}

// SubmitListing assembles, signs, and submits a fixed-price Seaport ask for
// one token. The NFT must be approved for the OpenSea conduit first.
func (c *Client) SubmitListing(ctx context.Context, contractAddress, tokenID string, price float64) error {
	if err := c.chain.EnsureApproval(ctx, contractAddress, c.cfg.ConduitAddress); err != nil {
		return fmt.Errorf("opensea: listing approval: %w", err)
	}

	now := time.Now()
	params, err := newListingOrder(c.cfg.WalletAddress, contractAddress, tokenID, ethToWei(price), now, now.Add(c.cfg.ListingDuration))
	if err != nil {
		return fmt.Errorf("opensea: listing: %w", err)
	}
	signature, err := c.signer.SignTypedData(params.typedData(c.cfg.SeaportAddress))
	if err != nil {
		return fmt.Errorf("opensea: listing: %w: %v", domain.ErrSigningFailed, err)
	}

	err = c.http.PostJSON(ctx, "/api/v2/orders/ethereum/seaport/listings", map[string]any{
		"parameters":       params,
		"signature":        signature,
		"protocol_address": c.cfg.SeaportAddress,
	}, nil)
	if err != nil {
		return fmt.Errorf("opensea: submit listing %s:%s: %w", contractAddress, tokenID, err)
	}
	return nil
}

type nftResponse struct {
	NFT struct {
		Rarity *struct {
			Rank int `json:"rank"`
		} `json:"rarity"`
	} `json:"nft"`
}

// TokenRarityRank returns OpenSea's rarity rank for one token, or zero when
// the marketplace reports none.
func (c *Client) TokenRarityRank(ctx context.Context, contractAddress, tokenID string) (int, error) {
	path := fmt.Sprintf("/api/v2/chain/ethereum/contract/%s/nfts/%s", contractAddress, tokenID)
	var resp nftResponse
	if err := c.http.GetJSON(ctx, path, &resp); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("opensea: nft %s:%s: %w", contractAddress, tokenID, err)
	}
	if resp.NFT.Rarity == nil {
		return 0, nil
	}
	return resp.NFT.Rarity.Rank, nil
}

type contractResponse struct {
	Collection string `json:"collection"`
}

// slugFor resolves and caches the collection slug behind a contract address.
func (c *Client) slugFor(ctx context.Context, contractAddress string) (string, error) {
	key := strings.ToLower(contractAddress)
	c.mu.Lock()
	slug, ok := c.slugs[key]
	c.mu.Unlock()
	if ok {
		return slug, nil
	}

	var resp contractResponse
	if err := c.http.GetJSON(ctx, "/api/v2/chain/ethereum/contract/"+key, &resp); err != nil {
		return "", fmt.Errorf("opensea: contract %s: %w", contractAddress, err)
	}
	if resp.Collection == "" {
		return "", fmt.Errorf("opensea: contract %s has no collection: %w", contractAddress, domain.ErrNoData)
	}

	c.mu.Lock()
	c.slugs[key] = resp.Collection
	c.mu.Unlock()
	return resp.Collection, nil
}

func singleTrait(criteria domain.Criteria) (string, string, bool) {
	if criteria.Type != domain.CriteriaTrait {
		return "", "", false
	}
	for k, v := range criteria.Value {
		return k, v, true
	}
	return "", "", false
}

func bidKey(contractAddress string, criteria domain.Criteria, price float64) string {
	traitType, traitValue, _ := singleTrait(criteria)
	return fmt.Sprintf("%s|%s=%s|%.6f", strings.ToLower(contractAddress), traitType, traitValue, price)
}
