// Package wallet performs the bot's on-chain operations: ERC-20 balance
// reads for the bidding funds (BETH, WETH) and ERC-721 delegate approvals
// for listing. Balance and approval state are read fresh per operation so
// the bot never acts on stale allowance data.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/nftbidbot/internal/domain"
)

const erc20ABIJSON = `[
	{"name":"balanceOf","type":"function","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const erc721ABIJSON = `[
	{"name":"isApprovedForAll","type":"function","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"operator","type":"address"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"name":"setApprovalForAll","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],
	 "outputs":[]}
]`

const (
	// approvalWait bounds how long EnsureApproval waits for a submitted
	// setApprovalForAll to take effect.
	approvalWait = 240 * time.Second
	// approvalPoll is the isApprovedForAll re-check interval.
	approvalPoll = 10 * time.Second
)

var weiPerEth = new(big.Float).SetFloat64(1e18)

// Client implements domain.ChainWallet against a JSON-RPC endpoint.
type Client struct {
	eth      *ethclient.Client
	opts     *bind.TransactOpts
	address  common.Address
	erc20ABI abi.ABI
	nftABI   abi.ABI
	logger   *slog.Logger
}

// New connects to the RPC provider and prepares a transactor for the given
// key and chain.
func New(rpcURL, privateKeyHex string, chainID int64, logger *slog.Logger) (*Client, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("wallet: dial rpc provider: %w", err)
	}

	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid private key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(pk, big.NewInt(chainID))
	if err != nil {
		return nil, fmt.Errorf("wallet: create transactor: %w", err)
	}

	erc20, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("wallet: parse erc20 abi: %w", err)
	}
	erc721, err := abi.JSON(strings.NewReader(erc721ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("wallet: parse erc721 abi: %w", err)
	}

	return &Client{
		eth:      eth,
		opts:     opts,
		address:  ethcrypto.PubkeyToAddress(pk.PublicKey),
		erc20ABI: erc20,
		nftABI:   erc721,
		logger:   logger.With(slog.String("component", "wallet")),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Address returns the bot wallet address in 0x hex form.
func (c *Client) Address() string {
	return c.address.Hex()
}

// TokenBalance returns the wallet's ERC-20 balance for tokenContract in
// whole-token units (18 decimals assumed, as both BETH and WETH use).
func (c *Client) TokenBalance(ctx context.Context, tokenContract string) (float64, error) {
	contract := bind.NewBoundContract(common.HexToAddress(tokenContract), c.erc20ABI, c.eth, c.eth, c.eth)

	var out []any
	err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", c.address)
	if err != nil {
		return 0, fmt.Errorf("wallet: balanceOf %s: %w", tokenContract, err)
	}
	raw, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("wallet: balanceOf %s: unexpected return type", tokenContract)
	}

	balance, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), weiPerEth).Float64()
	return balance, nil
}

// EnsureApproval checks that the operator has ERC-721 delegate approval on
// nftContract, submitting setApprovalForAll when missing and polling until
// the approval is visible or the wait budget runs out.
func (c *Client) EnsureApproval(ctx context.Context, nftContract, operator string) error {
	contract := bind.NewBoundContract(common.HexToAddress(nftContract), c.nftABI, c.eth, c.eth, c.eth)
	operatorAddr := common.HexToAddress(operator)

	approved, err := c.isApprovedForAll(ctx, contract, operatorAddr)
	if err != nil {
		return err
	}
	if approved {
		return nil
	}

	opts := *c.opts
	opts.Context = ctx
	tx, err := contract.Transact(&opts, "setApprovalForAll", operatorAddr, true)
	if err != nil {
		return fmt.Errorf("wallet: setApprovalForAll %s -> %s: %w", nftContract, operator, err)
	}
	c.logger.Info("submitted delegate approval",
		slog.String("contract", nftContract),
		slog.String("operator", operator),
		slog.String("tx", tx.Hash().Hex()),
	)

	deadline := time.Now().Add(approvalWait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(approvalPoll):
		}
		approved, err = c.isApprovedForAll(ctx, contract, operatorAddr)
		if err != nil {
			c.logger.Warn("approval re-check failed", slog.String("error", err.Error()))
			continue
		}
		if approved {
			return nil
		}
	}

	return fmt.Errorf("wallet: %w for %s on %s", domain.ErrNotApproved, operator, nftContract)
}

func (c *Client) isApprovedForAll(ctx context.Context, contract *bind.BoundContract, operator common.Address) (bool, error) {
	var out []any
	err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "isApprovedForAll", c.address, operator)
	if err != nil {
		return false, fmt.Errorf("wallet: isApprovedForAll: %w", err)
	}
	approved, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("wallet: isApprovedForAll: unexpected return type")
	}
	return approved, nil
}
