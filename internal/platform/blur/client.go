// Package blur is the client for the Blur marketplace gateway: session
// auth, user bids and tokens, collection market data, token events, and the
// format→sign→submit flows for bids and listings.
package blur

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/nftbidbot/internal/crypto"
	"github.com/alanyoungcy/nftbidbot/internal/domain"
	"github.com/alanyoungcy/nftbidbot/internal/platform/request"
)

const (
	// pageSize is the gateway's fixed page length; a short page ends
	// pagination early.
	pageSize = 100

	// bidPageCap and tokenPageCap bound the pagination loops.
	bidPageCap   = 100
	tokenPageCap = 10

	// bidExpiry is the lifetime requested for submitted bids.
	bidExpiry = 24 * time.Hour
)

// Config carries the client's collaborator wiring.
type Config struct {
	WalletAddress           string
	DelegateContractAddress string
	BETHContractAddress     string
	ListingDuration         time.Duration
}

// Client implements domain.Venue and domain.TokenSource for Blur.
type Client struct {
	http    *request.Client
	session *Session
	signer  *crypto.Signer
	chain   domain.ChainWallet
	cfg     Config
	logger  *slog.Logger
}

// New creates a Blur client. The session is owned by the client and
// re-authenticates transparently after a 401.
func New(baseURL, apiKey string, policy request.Policy, signer *crypto.Signer, chain domain.ChainWallet, cfg Config, logger *slog.Logger) *Client {
	logger = logger.With(slog.String("component", "blur"))
	http := request.New(baseURL, map[string]string{"X-RapidAPI-Key": apiKey}, policy, logger)
	return &Client{
		http:    http,
		session: NewSession(http, signer, cfg.WalletAddress, logger),
		signer:  signer,
		chain:   chain,
		cfg:     cfg,
		logger:  logger,
	}
}

// Name returns the marketplace identifier.
func (c *Client) Name() domain.Marketplace { return domain.MarketplaceBlur }

// Balance returns the wallet's BETH balance, read fresh from chain.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	return c.chain.TokenBalance(ctx, c.cfg.BETHContractAddress)
}

// authPost performs an authenticated POST, re-authenticating once when the
// gateway reports the session token stale.
func (c *Client) authPost(ctx context.Context, path string, build func(token string) any, out any) error {
	token, err := c.session.Token(ctx)
	if err != nil {
		return err
	}
	err = c.http.PostJSON(ctx, path, build(token), out)
	if errors.Is(err, domain.ErrUnauthorized) {
		c.session.Invalidate()
		if token, err = c.session.Token(ctx); err != nil {
			return err
		}
		err = c.http.PostJSON(ctx, path, build(token), out)
	}
	return err
}

type userBidsResponse struct {
	PriceLevels []domain.Bid `json:"priceLevels"`
	NextCursor  *string      `json:"nextCursor"`
}

// UserTraitBids returns the wallet's open TRAIT bids, deduplicated across
// pages by (price, criteria).
func (c *Client) UserTraitBids(ctx context.Context) ([]domain.Bid, error) {
	var (
		bids   []domain.Bid
		cursor *string
	)
	for i := 0; i <= bidPageCap; i++ {
		var resp userBidsResponse
		err := c.authPost(ctx, "/user/bids", func(token string) any {
			payload := map[string]any{
				"userWalletAddress": c.cfg.WalletAddress,
				"walletAddress":     c.cfg.WalletAddress,
				"authToken":         token,
				"criteria":          string(domain.CriteriaTrait),
			}
			if cursor != nil {
				payload["nextCursor"] = *cursor
			}
			return payload
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("blur: user bids: %w", err)
		}
		if len(resp.PriceLevels) == 0 {
			break
		}

		for _, b := range resp.PriceLevels {
			if !containsBid(bids, b) {
				bids = append(bids, b)
			}
		}
		cursor = resp.NextCursor
		if len(resp.PriceLevels) < pageSize {
			break
		}
	}
	return bids, nil
}

func containsBid(bids []domain.Bid, b domain.Bid) bool {
	for _, x := range bids {
		if x.Price == b.Price && x.CriteriaType == b.CriteriaType && sameCriteriaValue(x.CriteriaValue, b.CriteriaValue) {
			return true
		}
	}
	return false
}

func sameCriteriaValue(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

type userTokensResponse struct {
	Tokens     []domain.OwnedToken `json:"tokens"`
	NextCursor *string             `json:"nextCursor"`
}

// UserTokens returns the wallet's owned tokens that carry ask data.
func (c *Client) UserTokens(ctx context.Context) ([]domain.OwnedToken, error) {
	var (
		tokens []domain.OwnedToken
		cursor *string
	)
	for i := 0; i <= tokenPageCap; i++ {
		var resp userTokensResponse
		err := c.authPost(ctx, "/user/tokens", func(token string) any {
			payload := map[string]any{
				"userWalletAddress": c.cfg.WalletAddress,
				"walletAddress":     c.cfg.WalletAddress,
				"authToken":         token,
				"hasAsks":           true,
			}
			if cursor != nil {
				payload["nextCursor"] = *cursor
			}
			return payload
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("blur: user tokens: %w", err)
		}
		if len(resp.Tokens) == 0 {
			break
		}

		tokens = append(tokens, resp.Tokens...)
		cursor = resp.NextCursor
		if len(resp.Tokens) < pageSize {
			break
		}
	}
	return tokens, nil
}

type blurCollection struct {
	CollectionSlug  string  `json:"collectionSlug"`
	ContractAddress string  `json:"contractAddress"`
	TotalSupply     int     `json:"totalSupply"`
	FloorPrice      *amount `json:"floorPrice"`
}

type amount struct {
	Amount float64 `json:"amount,string"`
	Unit   string  `json:"unit"`
}

type collectionResponse struct {
	Collection blurCollection `json:"collection"`
}

type executableBidsResponse struct {
	Success     bool                `json:"success"`
	PriceLevels []domain.PriceLevel `json:"priceLevels"`
}

// CollectionMarket returns the live floor price and best executable bid for
// a collection. A zero floor or missing floor maps to ErrNoData.
func (c *Client) CollectionMarket(ctx context.Context, slug string) (float64, domain.TopBid, error) {
	var coll collectionResponse
	if err := c.http.PostJSON(ctx, "/collection", map[string]any{"collection": slug}, &coll); err != nil {
		return 0, domain.TopBid{}, fmt.Errorf("blur: collection %q: %w", slug, err)
	}
	if coll.Collection.FloorPrice == nil || coll.Collection.FloorPrice.Amount <= 0 {
		return 0, domain.TopBid{}, fmt.Errorf("blur: collection %q floor: %w", slug, domain.ErrNoData)
	}

	var bids executableBidsResponse
	if err := c.http.PostJSON(ctx, "/collection/executable-bids", map[string]any{"collection": slug}, &bids); err != nil {
		return 0, domain.TopBid{}, fmt.Errorf("blur: executable bids %q: %w", slug, err)
	}

	return coll.Collection.FloorPrice.Amount, domain.BestBid(bids.PriceLevels), nil
}

type listedToken struct {
	TokenID      string `json:"tokenId"`
	RarityRank   int    `json:"rarityRank"`
	Price        amount `json:"price"`
	IsSuspicious bool   `json:"isSuspicious"`
	Owner        struct {
		Address string `json:"address"`
	} `json:"owner"`
}

type listedTokensResponse struct {
	Tokens []listedToken `json:"tokens"`
}

// CollectionListings returns the live ETH-denominated, non-suspicious
// listings of other sellers in a collection.
func (c *Client) CollectionListings(ctx context.Context, slug string) ([]domain.TokenListing, error) {
	var resp listedTokensResponse
	if err := c.http.PostJSON(ctx, "/collection/tokens/listed", map[string]any{"collection": slug}, &resp); err != nil {
		return nil, fmt.Errorf("blur: listed tokens %q: %w", slug, err)
	}

	listings := make([]domain.TokenListing, 0, len(resp.Tokens))
	for _, t := range resp.Tokens {
		if t.IsSuspicious || !strings.EqualFold(t.Price.Unit, "ETH") {
			continue
		}
		if strings.EqualFold(t.Owner.Address, c.cfg.WalletAddress) {
			continue
		}
		listings = append(listings, domain.TokenListing{
			TokenID:      t.TokenID,
			RarityRank:   t.RarityRank,
			Price:        t.Price.Amount,
			PriceUnit:    t.Price.Unit,
			OwnerAddress: t.Owner.Address,
		})
	}
	return listings, nil
}

type eventsResponse struct {
	ActivityItems []domain.ListingEvent `json:"activityItems"`
}

// TokenListingEvents returns the listing-creation history of one token.
func (c *Client) TokenListingEvents(ctx context.Context, contractAddress, tokenID string) ([]domain.ListingEvent, error) {
	payload := map[string]any{
		"contractAddress":   contractAddress,
		"tokenId":           tokenID,
		"showSales":         false,
		"showMints":         false,
		"showTransfers":     false,
		"showListingOrders": true,
	}
	var resp eventsResponse
	if err := c.http.PostJSON(ctx, "/events", payload, &resp); err != nil {
		return nil, fmt.Errorf("blur: events %s:%s: %w", contractAddress, tokenID, err)
	}
	return resp.ActivityItems, nil
}

type formatResponse struct {
	Success    bool         `json:"success"`
	Error      any          `json:"error"`
	Message    string       `json:"message"`
	Signatures []signDetail `json:"signatures"`
}

type submitResponse struct {
	Success bool `json:"success"`
}

// PlaceTraitBid formats, signs, and submits one trait bid. The gateway's
// sign data carries a non-zero nonce it cannot verify; it must be forced to
// zero before signing or the submission is rejected.
func (c *Client) PlaceTraitBid(ctx context.Context, contractAddress string, criteria domain.Criteria, price float64, quantity int) error {
	bid := map[string]any{
		"contractAddress": contractAddress,
		"price": map[string]string{
			"unit":   "BETH",
			"amount": strconv.FormatFloat(price, 'f', -1, 64),
		},
		"quantity":       quantity,
		"expirationTime": time.Now().Add(bidExpiry).UTC().Format(time.RFC3339),
		"criteria":       criteria,
	}

	var format formatResponse
	err := c.authPost(ctx, "/bid/format", func(token string) any {
		return map[string]any{"bid": bid, "walletAddress": c.cfg.WalletAddress, "authToken": token}
	}, &format)
	if err != nil {
		return fmt.Errorf("blur: bid format: %w", err)
	}
	if !format.Success || len(format.Signatures) == 0 {
		return fmt.Errorf("blur: bid format for %s: %w", contractAddress, domain.ErrNoData)
	}

	signature, marketplaceData, err := c.signDetail(format.Signatures[0])
	if err != nil {
		return fmt.Errorf("blur: bid: %w", err)
	}

	var submit submitResponse
	err = c.authPost(ctx, "/bid/submit", func(token string) any {
		return map[string]any{
			"bidSubmission": map[string]any{
				"marketplaceData": marketplaceData,
				"signature":       signature,
			},
			"walletAddress": c.cfg.WalletAddress,
			"authToken":     token,
		}
	}, &submit)
	if err != nil {
		return fmt.Errorf("blur: bid submit: %w", err)
	}
	if !submit.Success {
		return fmt.Errorf("blur: bid submit for %s rejected", contractAddress)
	}
	return nil
}

// CancelBid cancels one open criteria bid at the given price.
func (c *Client) CancelBid(ctx context.Context, contractAddress string, criteria domain.Criteria, price float64) error {
	priceStr := strconv.FormatFloat(price, 'f', -1, 64)
	cancellation := map[string]any{"contractAddress": contractAddress}
	switch criteria.Type {
	case domain.CriteriaCollection:
		cancellation["prices"] = []string{priceStr}
	case domain.CriteriaTrait:
		cancellation["criteriaPrices"] = []map[string]any{
			{"price": priceStr, "criteria": criteria},
		}
	}

	var resp submitResponse
	err := c.authPost(ctx, "/bid/cancel", func(token string) any {
		return map[string]any{
			"bidCancellation": cancellation,
			"walletAddress":   c.cfg.WalletAddress,
			"authToken":       token,
		}
	}, &resp)
	if err != nil {
		return fmt.Errorf("blur: bid cancel: %w", err)
	}
	return nil
}

// SubmitListing ensures delegate approval, then formats, signs, and submits
// an ask for one token. A collection enforcing a 0.5% minimum royalty is
// retried once with that fee rate.
func (c *Client) SubmitListing(ctx context.Context, contractAddress, tokenID string, price float64) error {
	if err := c.chain.EnsureApproval(ctx, contractAddress, c.cfg.DelegateContractAddress); err != nil {
		return fmt.Errorf("blur: listing approval: %w", err)
	}

	listing := map[string]any{
		"price": map[string]string{
			"amount": strconv.FormatFloat(price, 'f', 6, 64),
			"unit":   "ETH",
		},
		"tokenId":         tokenID,
		"feeRate":         0,
		"contractAddress": strings.ToLower(contractAddress),
		"expirationTime":  time.Now().Add(c.cfg.ListingDuration).UTC().Format(time.RFC3339),
	}

	format, err := c.listingFormat(ctx, listing)
	if err != nil {
		return err
	}
	if format.Error != nil && format.Message == "0.5% minimum royalty for this collection" {
		listing["feeRate"] = 50
		if format, err = c.listingFormat(ctx, listing); err != nil {
			return err
		}
	}
	if len(format.Signatures) == 0 {
		if format.Message != "" {
			c.logger.Error("listing format rejected",
				slog.String("contract", contractAddress),
				slog.String("token", tokenID),
				slog.String("message", format.Message),
			)
		}
		return fmt.Errorf("blur: listing format for %s:%s: %w", contractAddress, tokenID, domain.ErrNoData)
	}

	signature, marketplaceData, err := c.signDetail(format.Signatures[0])
	if err != nil {
		return fmt.Errorf("blur: listing: %w", err)
	}

	var submit submitResponse
	err = c.authPost(ctx, "/listing/submit", func(token string) any {
		return map[string]any{
			"listingSubmission": map[string]any{
				"marketplace":     format.Signatures[0].Marketplace,
				"marketplaceData": marketplaceData,
				"signature":       signature,
			},
			"walletAddress": c.cfg.WalletAddress,
			"authToken":     token,
		}
	}, &submit)
	if err != nil {
		return fmt.Errorf("blur: listing submit: %w", err)
	}
	if !submit.Success {
		return fmt.Errorf("blur: listing submit for %s:%s rejected", contractAddress, tokenID)
	}
	return nil
}

func (c *Client) listingFormat(ctx context.Context, listing map[string]any) (formatResponse, error) {
	var format formatResponse
	err := c.authPost(ctx, "/listing/format", func(token string) any {
		return map[string]any{"listing": listing, "walletAddress": c.cfg.WalletAddress, "authToken": token}
	}, &format)
	if err != nil {
		return formatResponse{}, fmt.Errorf("blur: listing format: %w", err)
	}
	return format, nil
}

// signDetail forces the sign data's nonce to zero (gateway quirk: the nonce
// it reports does not verify on chain) and signs the typed data.
func (c *Client) signDetail(detail signDetail) (signature string, marketplaceData json.RawMessage, err error) {
	detail.SignData.Value["nonce"] = "0"

	typedData, err := detail.SignData.typedData()
	if err != nil {
		return "", nil, fmt.Errorf("build typed data: %w", err)
	}
	signature, err = c.signer.SignTypedData(typedData)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}
	return signature, detail.MarketplaceData, nil
}
