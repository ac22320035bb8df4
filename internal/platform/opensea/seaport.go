package opensea

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Seaport protocol constants for Ethereum mainnet. The protocol and conduit
// contract addresses come in through configuration.
const (
	seaportVersion    = "1.6"
	conduitKey        = "0x0000007b02230091a7ed01230072f7006a004d60a8d4e71d599b8104250f0000"
	zeroAddress       = "0x0000000000000000000000000000000000000000"
	zeroHash          = "0x0000000000000000000000000000000000000000000000000000000000000000"
	feeRecipient      = "0x0000a26b00c1F0DF003000390027140000fAa719"
	marketplaceFeeBps = 50
)

// Seaport item type and order type enums, as the contract defines them.
const (
	itemTypeNative             = 0
	itemTypeERC20              = 1
	itemTypeERC721             = 2
	itemTypeERC721WithCriteria = 4

	orderTypeFullOpen          = 0
	orderTypePartialOpen       = 1
	orderTypePartialRestricted = 3
)

var seaportTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"OrderComponents": {
		{Name: "offerer", Type: "address"},
		{Name: "zone", Type: "address"},
		{Name: "offer", Type: "OfferItem[]"},
		{Name: "consideration", Type: "ConsiderationItem[]"},
		{Name: "orderType", Type: "uint8"},
		{Name: "startTime", Type: "uint256"},
		{Name: "endTime", Type: "uint256"},
		{Name: "zoneHash", Type: "bytes32"},
		{Name: "salt", Type: "uint256"},
		{Name: "conduitKey", Type: "bytes32"},
		{Name: "counter", Type: "uint256"},
	},
	"OfferItem": {
		{Name: "itemType", Type: "uint8"},
		{Name: "token", Type: "address"},
		{Name: "identifierOrCriteria", Type: "uint256"},
		{Name: "startAmount", Type: "uint256"},
		{Name: "endAmount", Type: "uint256"},
	},
	"ConsiderationItem": {
		{Name: "itemType", Type: "uint8"},
		{Name: "token", Type: "address"},
		{Name: "identifierOrCriteria", Type: "uint256"},
		{Name: "startAmount", Type: "uint256"},
		{Name: "endAmount", Type: "uint256"},
		{Name: "recipient", Type: "address"},
	},
}

// orderItem is one Seaport offer or consideration item on the wire. Amounts
// and identifiers travel as decimal strings.
type orderItem struct {
	ItemType             int    `json:"itemType"`
	Token                string `json:"token"`
	IdentifierOrCriteria string `json:"identifierOrCriteria"`
	StartAmount          string `json:"startAmount"`
	EndAmount            string `json:"endAmount"`
	Recipient            string `json:"recipient,omitempty"`
}

// orderParameters is the full Seaport order body submitted to the API. The
// counter is always fetched as zero here; the wallet never increments it.
type orderParameters struct {
	Offerer                         string      `json:"offerer"`
	Zone                            string      `json:"zone"`
	Offer                           []orderItem `json:"offer"`
	Consideration                   []orderItem `json:"consideration"`
	OrderType                       int         `json:"orderType"`
	StartTime                       string      `json:"startTime"`
	EndTime                         string      `json:"endTime"`
	ZoneHash                        string      `json:"zoneHash"`
	Salt                            string      `json:"salt"`
	ConduitKey                      string      `json:"conduitKey"`
	TotalOriginalConsiderationItems int         `json:"totalOriginalConsiderationItems"`
	Counter                         string      `json:"counter"`
}

// newListingOrder assembles the order for a fixed-price ask: the token goes
// into the offer, and the consideration splits the native-ETH price between
// the seller and the marketplace fee recipient.
func newListingOrder(offerer, contractAddress, tokenID string, priceWei *big.Int, start, end time.Time) (orderParameters, error) {
	fee := new(big.Int).Div(new(big.Int).Mul(priceWei, big.NewInt(marketplaceFeeBps)), big.NewInt(10_000))
	proceeds := new(big.Int).Sub(priceWei, fee)

	salt, err := newSalt()
	if err != nil {
		return orderParameters{}, err
	}
	return orderParameters{
		Offerer: offerer,
		Zone:    zeroAddress,
		Offer: []orderItem{{
			ItemType:             itemTypeERC721,
			Token:                contractAddress,
			IdentifierOrCriteria: tokenID,
			StartAmount:          "1",
			EndAmount:            "1",
		}},
		Consideration: []orderItem{
			{
				ItemType:             itemTypeNative,
				Token:                zeroAddress,
				IdentifierOrCriteria: "0",
				StartAmount:          proceeds.String(),
				EndAmount:            proceeds.String(),
				Recipient:            offerer,
			},
			{
				ItemType:             itemTypeNative,
				Token:                zeroAddress,
				IdentifierOrCriteria: "0",
				StartAmount:          fee.String(),
				EndAmount:            fee.String(),
				Recipient:            feeRecipient,
			},
		},
		OrderType:                       orderTypeFullOpen,
		StartTime:                       fmt.Sprintf("%d", start.Unix()),
		EndTime:                         fmt.Sprintf("%d", end.Unix()),
		ZoneHash:                        zeroHash,
		Salt:                            salt,
		ConduitKey:                      conduitKey,
		TotalOriginalConsiderationItems: 2,
		Counter:                         "0",
	}, nil
}

// typedData converts the order into the EIP-712 payload the wallet signs,
// bound to the Seaport deployment at verifyingContract.
func (p orderParameters) typedData(verifyingContract string) apitypes.TypedData {
	message := apitypes.TypedDataMessage{
		"offerer":       p.Offerer,
		"zone":          p.Zone,
		"offer":         itemsToMessage(p.Offer, false),
		"consideration": itemsToMessage(p.Consideration, true),
		"orderType":     fmt.Sprintf("%d", p.OrderType),
		"startTime":     p.StartTime,
		"endTime":       p.EndTime,
		"zoneHash":      p.ZoneHash,
		"salt":          p.Salt,
		"conduitKey":    p.ConduitKey,
		"counter":       p.Counter,
	}
	return apitypes.TypedData{
		Types:       seaportTypes,
		PrimaryType: "OrderComponents",
		Domain: apitypes.TypedDataDomain{
			Name:              "Seaport",
			Version:           seaportVersion,
			ChainId:           math.NewHexOrDecimal256(1),
			VerifyingContract: verifyingContract,
		},
		Message: message,
	}
}

func itemsToMessage(items []orderItem, withRecipient bool) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		m := map[string]any{
			"itemType":             fmt.Sprintf("%d", it.ItemType),
			"token":                it.Token,
			"identifierOrCriteria": it.IdentifierOrCriteria,
			"startAmount":          it.StartAmount,
			"endAmount":            it.EndAmount,
		}
		if withRecipient {
			m["recipient"] = it.Recipient
		}
		out = append(out, m)
	}
	return out
}

func newSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("order salt: %w", err)
	}
	return new(big.Int).SetBytes(buf).String(), nil
}

// ethToWei converts an ETH amount to wei, truncating sub-wei dust.
func ethToWei(eth float64) *big.Int {
	f := new(big.Float).SetFloat64(eth)
	f.Mul(f, big.NewFloat(1e18))
	wei, _ := f.Int(nil)
	return wei
}

// weiToEth converts a decimal wei string to ETH units. Malformed input maps
// to zero, which callers filter out.
func weiToEth(wei string) float64 {
	v, ok := new(big.Float).SetString(wei)
	if !ok {
		return 0
	}
	v.Quo(v, big.NewFloat(1e18))
	out, _ := v.Float64()
	return out
}
