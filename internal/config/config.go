// Package config defines the top-level configuration for the NFT bidding bot
// and provides loading and validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by NFTBOT_* environment variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	NFTData   NFTDataConfig   `toml:"nftdata"`
	Blur      BlurConfig      `toml:"blur"`
	OpenSea   OpenSeaConfig   `toml:"opensea"`
	HTTP      HTTPConfig      `toml:"http"`
	Bidding   BiddingConfig   `toml:"bidding"`
	Listing   ListingConfig   `toml:"listing"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds Ethereum wallet credentials and the RPC endpoint used
// for balance and approval reads.
type WalletConfig struct {
	Address          string `toml:"address"`
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	RPCProvider      string `toml:"rpc_provider"`
	ChainID          int    `toml:"chain_id"`
}

// NFTDataConfig holds the collection data provider endpoint and key.
type NFTDataConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// BlurConfig holds the Blur gateway endpoint, key, and the chain contracts
// the Blur flow touches.
type BlurConfig struct {
	BaseURL                 string `toml:"base_url"`
	APIKey                  string `toml:"api_key"`
	DelegateContractAddress string `toml:"delegate_contract_address"`
	BETHContractAddress     string `toml:"beth_contract_address"`
}

// OpenSeaConfig holds the OpenSea API endpoint, key, and chain contracts.
type OpenSeaConfig struct {
	BaseURL                string `toml:"base_url"`
	APIKey                 string `toml:"api_key"`
	WETHContractAddress    string `toml:"weth_contract_address"`
	SeaportContractAddress string `toml:"seaport_contract_address"`
	ConduitContractAddress string `toml:"conduit_contract_address"`
}

// HTTPConfig holds the shared outbound request retry policy.
type HTTPConfig struct {
	RetryAttempts  int `toml:"retry_attempts"`
	RetryDelayMS   int `toml:"retry_delay_ms"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// BiddingConfig holds bid sizing and exposure parameters.
type BiddingConfig struct {
	MaxBids int `toml:"max_bids"`
	// MaxTokensPerCollection caps how many tokens of one collection the
	// wallet may hold before bidding on it stops. 0 disables the cap.
	MaxTokensPerCollection int `toml:"max_tokens_per_collection"`
	// CooldownMinutes pauses bidding on a collection after an acquisition.
	// 0 disables the cooldown.
	CooldownMinutes int `toml:"cooldown_minutes"`
	// SubmitConcurrency bounds concurrent trait-bid submissions within one
	// collection pass.
	SubmitConcurrency int `toml:"submit_concurrency"`
	// OpenSeaMinSpacingMinutes is the minimum spacing between OpenSea
	// bidding runs, enforced on top of the cron cadence.
	OpenSeaMinSpacingMinutes int `toml:"opensea_min_spacing_minutes"`
}

// ListingConfig holds listing freshness and pricing windows.
type ListingConfig struct {
	MaxDaysInWallet int `toml:"max_days_in_wallet"`
	DurationMinutes int `toml:"duration_minutes"`
	OverlapMinutes  int `toml:"overlap_minutes"`
}

// SchedulerConfig holds the cron expressions for the periodic jobs.
type SchedulerConfig struct {
	RefreshCron   string `toml:"refresh_cron"`
	AggregateCron string `toml:"aggregate_cron"`
	ListingCron   string `toml:"listing_cron"`
	BiddingCron   string `toml:"bidding_cron"`
}

// Defaults returns the built-in configuration, suitable as the base layer
// under a TOML file and environment overrides.
func Defaults() Config {
	return Config{
		Wallet: WalletConfig{
			ChainID: 1,
		},
		Blur: BlurConfig{
			BETHContractAddress: "0x0000000000A39bb272e79075ade125fd351887Ac",
		},
		OpenSea: OpenSeaConfig{
			BaseURL:                "https://api.opensea.io",
			WETHContractAddress:    "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
			SeaportContractAddress: "0x0000000000000068F116a894984e2DB1123eB395",
			ConduitContractAddress: "0x1E0049783F008A0085193E00003D00cd54003c71",
		},
		HTTP: HTTPConfig{
			RetryAttempts:  3,
			RetryDelayMS:   1400,
			TimeoutSeconds: 30,
		},
		Bidding: BiddingConfig{
			MaxBids:                  5,
			SubmitConcurrency:        4,
			OpenSeaMinSpacingMinutes: 15,
		},
		Listing: ListingConfig{
			MaxDaysInWallet: 14,
			DurationMinutes: 60,
			OverlapMinutes:  10,
		},
		Scheduler: SchedulerConfig{
			RefreshCron:   "0 * * * *",
			AggregateCron: "0 0 * * *",
			ListingCron:   "*/3 * * * *",
			BiddingCron:   "* * * * *",
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	if c.Wallet.Address == "" {
		return fmt.Errorf("config: wallet.address is required")
	}
	if !strings.HasPrefix(c.Wallet.Address, "0x") {
		return fmt.Errorf("config: wallet.address must be a 0x-prefixed hex address")
	}
	if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
		return fmt.Errorf("config: one of wallet.private_key or wallet.encrypted_key_path is required")
	}
	if c.Wallet.RPCProvider == "" {
		return fmt.Errorf("config: wallet.rpc_provider is required")
	}
	if c.NFTData.BaseURL == "" {
		return fmt.Errorf("config: nftdata.base_url is required")
	}
	if c.Blur.BaseURL == "" {
		return fmt.Errorf("config: blur.base_url is required")
	}
	if c.Blur.DelegateContractAddress == "" {
		return fmt.Errorf("config: blur.delegate_contract_address is required")
	}
	if c.OpenSea.APIKey == "" {
		return fmt.Errorf("config: opensea.api_key is required")
	}
	if c.HTTP.RetryAttempts <= 0 {
		return fmt.Errorf("config: http.retry_attempts must be positive")
	}
	if c.Bidding.MaxBids <= 0 {
		return fmt.Errorf("config: bidding.max_bids must be positive")
	}
	if c.Bidding.SubmitConcurrency <= 0 {
		return fmt.Errorf("config: bidding.submit_concurrency must be positive")
	}
	if c.Listing.DurationMinutes <= 0 {
		return fmt.Errorf("config: listing.duration_minutes must be positive")
	}
	if c.Listing.OverlapMinutes <= 0 || c.Listing.OverlapMinutes >= c.Listing.DurationMinutes {
		return fmt.Errorf("config: listing.overlap_minutes must be positive and below listing.duration_minutes")
	}
	for name, expr := range map[string]string{
		"scheduler.refresh_cron":   c.Scheduler.RefreshCron,
		"scheduler.aggregate_cron": c.Scheduler.AggregateCron,
		"scheduler.listing_cron":   c.Scheduler.ListingCron,
		"scheduler.bidding_cron":   c.Scheduler.BiddingCron,
	} {
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("config: %s is required", name)
		}
	}
	return nil
}

// ListingDuration returns the configured listing lifetime.
func (c *Config) ListingDuration() time.Duration {
	return time.Duration(c.Listing.DurationMinutes) * time.Minute
}

// ListingOverlap returns the configured renewal overlap window.
func (c *Config) ListingOverlap() time.Duration {
	return time.Duration(c.Listing.OverlapMinutes) * time.Minute
}
