package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies NFTBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known NFTBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.Address, "NFTBOT_WALLET_ADDRESS")
	setStr(&cfg.Wallet.PrivateKey, "NFTBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "NFTBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "NFTBOT_WALLET_KEY_PASSWORD")
	setStr(&cfg.Wallet.RPCProvider, "NFTBOT_WALLET_RPC_PROVIDER")
	setInt(&cfg.Wallet.ChainID, "NFTBOT_WALLET_CHAIN_ID")

	// ── NFT data provider ──
	setStr(&cfg.NFTData.BaseURL, "NFTBOT_NFTDATA_BASE_URL")
	setStr(&cfg.NFTData.APIKey, "NFTBOT_NFTDATA_API_KEY")

	// ── Blur ──
	setStr(&cfg.Blur.BaseURL, "NFTBOT_BLUR_BASE_URL")
	setStr(&cfg.Blur.APIKey, "NFTBOT_BLUR_API_KEY")
	setStr(&cfg.Blur.DelegateContractAddress, "NFTBOT_BLUR_DELEGATE_CONTRACT_ADDRESS")
	setStr(&cfg.Blur.BETHContractAddress, "NFTBOT_BLUR_BETH_CONTRACT_ADDRESS")

	// ── OpenSea ──
	setStr(&cfg.OpenSea.BaseURL, "NFTBOT_OPENSEA_BASE_URL")
	setStr(&cfg.OpenSea.APIKey, "NFTBOT_OPENSEA_API_KEY")
	setStr(&cfg.OpenSea.WETHContractAddress, "NFTBOT_OPENSEA_WETH_CONTRACT_ADDRESS")
	setStr(&cfg.OpenSea.SeaportContractAddress, "NFTBOT_OPENSEA_SEAPORT_CONTRACT_ADDRESS")
	setStr(&cfg.OpenSea.ConduitContractAddress, "NFTBOT_OPENSEA_CONDUIT_CONTRACT_ADDRESS")

	// ── HTTP ──
	setInt(&cfg.HTTP.RetryAttempts, "NFTBOT_HTTP_RETRY_ATTEMPTS")
	setInt(&cfg.HTTP.RetryDelayMS, "NFTBOT_HTTP_RETRY_DELAY_MS")
	setInt(&cfg.HTTP.TimeoutSeconds, "NFTBOT_HTTP_TIMEOUT_SECONDS")

	// ── Bidding ──
	setInt(&cfg.Bidding.MaxBids, "NFTBOT_BIDDING_MAX_BIDS")
	setInt(&cfg.Bidding.MaxTokensPerCollection, "NFTBOT_BIDDING_MAX_TOKENS_PER_COLLECTION")
	setInt(&cfg.Bidding.CooldownMinutes, "NFTBOT_BIDDING_COOLDOWN_MINUTES")
	setInt(&cfg.Bidding.SubmitConcurrency, "NFTBOT_BIDDING_SUBMIT_CONCURRENCY")
	setInt(&cfg.Bidding.OpenSeaMinSpacingMinutes, "NFTBOT_BIDDING_OPENSEA_MIN_SPACING_MINUTES")

	// ── Listing ──
	setInt(&cfg.Listing.MaxDaysInWallet, "NFTBOT_LISTING_MAX_DAYS_IN_WALLET")
	setInt(&cfg.Listing.DurationMinutes, "NFTBOT_LISTING_DURATION_MINUTES")
	setInt(&cfg.Listing.OverlapMinutes, "NFTBOT_LISTING_OVERLAP_MINUTES")

	// ── Scheduler ──
	setStr(&cfg.Scheduler.RefreshCron, "NFTBOT_SCHEDULER_REFRESH_CRON")
	setStr(&cfg.Scheduler.AggregateCron, "NFTBOT_SCHEDULER_AGGREGATE_CRON")
	setStr(&cfg.Scheduler.ListingCron, "NFTBOT_SCHEDULER_LISTING_CRON")
	setStr(&cfg.Scheduler.BiddingCron, "NFTBOT_SCHEDULER_BIDDING_CRON")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "NFTBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
