package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/nftbidbot/internal/bidding"
	"github.com/alanyoungcy/nftbidbot/internal/catalog"
	"github.com/alanyoungcy/nftbidbot/internal/config"
	"github.com/alanyoungcy/nftbidbot/internal/crypto"
	"github.com/alanyoungcy/nftbidbot/internal/listing"
	"github.com/alanyoungcy/nftbidbot/internal/platform/blur"
	"github.com/alanyoungcy/nftbidbot/internal/platform/nftdata"
	"github.com/alanyoungcy/nftbidbot/internal/platform/opensea"
	"github.com/alanyoungcy/nftbidbot/internal/platform/request"
	"github.com/alanyoungcy/nftbidbot/internal/pricing"
	"github.com/alanyoungcy/nftbidbot/internal/wallet"
)

// Dependencies bundles everything the scheduled jobs operate on. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Chain *wallet.Client

	Store   *catalog.Store
	Catalog *catalog.Service

	BlurBidding    *bidding.Manager
	OpenSeaBidding *bidding.Manager
	BlurListing    *listing.Manager
	OpenSeaListing *listing.Manager
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Wallet key and chain access ---
	keyHex, err := crypto.LoadPrivateKey(crypto.KeySource{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: private key: %w", err)
	}
	signer, err := crypto.NewSigner(keyHex)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: signer: %w", err)
	}
	chain, err := wallet.New(cfg.Wallet.RPCProvider, keyHex, int64(cfg.Wallet.ChainID), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: wallet: %w", err)
	}
	closers = append(closers, chain.Close)

	// --- Outbound HTTP clients ---
	policy := request.Policy{
		Attempts: cfg.HTTP.RetryAttempts,
		Delay:    time.Duration(cfg.HTTP.RetryDelayMS) * time.Millisecond,
		Timeout:  time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
	}

	provider := nftdata.New(cfg.NFTData.BaseURL, cfg.NFTData.APIKey, policy, logger)

	blurClient := blur.New(cfg.Blur.BaseURL, cfg.Blur.APIKey, policy, signer, chain, blur.Config{
		WalletAddress:           cfg.Wallet.Address,
		DelegateContractAddress: cfg.Blur.DelegateContractAddress,
		BETHContractAddress:     cfg.Blur.BETHContractAddress,
		ListingDuration:         cfg.ListingDuration(),
	}, logger)

	// Trait offers are kept short-lived so expiry retires superseded
	// offers between spaced bidding runs.
	offerDuration := 30 * time.Minute
	if cfg.Bidding.OpenSeaMinSpacingMinutes > 0 {
		offerDuration = 2 * time.Duration(cfg.Bidding.OpenSeaMinSpacingMinutes) * time.Minute
	}
	openseaClient := opensea.New(cfg.OpenSea.BaseURL, cfg.OpenSea.APIKey, policy, signer, chain, opensea.Config{
		WalletAddress:       cfg.Wallet.Address,
		WETHContractAddress: cfg.OpenSea.WETHContractAddress,
		SeaportAddress:      cfg.OpenSea.SeaportContractAddress,
		ConduitAddress:      cfg.OpenSea.ConduitContractAddress,
		ListingDuration:     cfg.ListingDuration(),
		OfferDuration:       offerDuration,
	}, logger)

	// --- Catalog ---
	store := catalog.NewStore()
	catalogSvc := catalog.NewService(provider, logger)

	// --- Managers ---
	params := pricing.DefaultParams()

	bidCfg := bidding.Config{
		MaxBids:                cfg.Bidding.MaxBids,
		SubmitConcurrency:      cfg.Bidding.SubmitConcurrency,
		MaxTokensPerCollection: cfg.Bidding.MaxTokensPerCollection,
		Cooldown:               time.Duration(cfg.Bidding.CooldownMinutes) * time.Minute,
	}
	listCfg := listing.Config{
		WalletAddress:   cfg.Wallet.Address,
		MaxDaysInWallet: cfg.Listing.MaxDaysInWallet,
		Duration:        cfg.ListingDuration(),
		Overlap:         cfg.ListingOverlap(),
	}

	// Token inventory and listing history come from Blur for both venues;
	// OpenSea serves as the second rarity opinion.
	deps := &Dependencies{
		Chain:          chain,
		Store:          store,
		Catalog:        catalogSvc,
		BlurBidding:    bidding.NewManager(blurClient, blurClient, params, bidCfg, logger),
		OpenSeaBidding: bidding.NewManager(openseaClient, blurClient, params, bidCfg, logger),
		BlurListing:    listing.NewManager(blurClient, blurClient, openseaClient, params, listCfg, logger),
		OpenSeaListing: listing.NewManager(openseaClient, blurClient, openseaClient, params, listCfg, logger),
	}
	return deps, cleanup, nil
}
