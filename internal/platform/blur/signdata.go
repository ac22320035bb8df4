package blur

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// signDetail is one entry of a format endpoint's signatures array: the
// marketplace routing fields plus the EIP-712 payload the wallet must sign.
type signDetail struct {
	Marketplace     string          `json:"marketplace"`
	MarketplaceData json.RawMessage `json:"marketplaceData"`
	SignData        signData        `json:"signData"`
}

type signData struct {
	Domain map[string]json.RawMessage `json:"domain"`
	Types  map[string][]apitypes.Type `json:"types"`
	Value  map[string]any             `json:"value"`
}

// typedData converts the gateway's sign data to an apitypes payload. The
// gateway omits the EIP712Domain type entry and the primary type name, the
// way ethers-style signers expect, so both are reconstructed here. The value
// map's nonce has already been forced to zero by the caller.
func (d signData) typedData() (apitypes.TypedData, error) {
	domain, err := d.parseDomain()
	if err != nil {
		return apitypes.TypedData{}, err
	}

	types := make(apitypes.Types, len(d.Types)+1)
	for name, fields := range d.Types {
		types[name] = fields
	}
	if _, ok := types["EIP712Domain"]; !ok {
		types["EIP712Domain"] = domainTypeFields(d.Domain)
	}

	primary, err := inferPrimaryType(d.Types)
	if err != nil {
		return apitypes.TypedData{}, err
	}

	return apitypes.TypedData{
		Types:       types,
		PrimaryType: primary,
		Domain:      domain,
		Message:     normalizeMessage(d.Value),
	}, nil
}

func (d signData) parseDomain() (apitypes.TypedDataDomain, error) {
	var out apitypes.TypedDataDomain
	for field, raw := range d.Domain {
		switch field {
		case "name":
			if err := json.Unmarshal(raw, &out.Name); err != nil {
				return out, fmt.Errorf("domain name: %w", err)
			}
		case "version":
			if err := json.Unmarshal(raw, &out.Version); err != nil {
				return out, fmt.Errorf("domain version: %w", err)
			}
		case "verifyingContract":
			if err := json.Unmarshal(raw, &out.VerifyingContract); err != nil {
				return out, fmt.Errorf("domain verifyingContract: %w", err)
			}
		case "salt":
			if err := json.Unmarshal(raw, &out.Salt); err != nil {
				return out, fmt.Errorf("domain salt: %w", err)
			}
		case "chainId":
			id, err := parseChainID(raw)
			if err != nil {
				return out, err
			}
			out.ChainId = id
		}
	}
	return out, nil
}

func parseChainID(raw json.RawMessage) (*math.HexOrDecimal256, error) {
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return math.NewHexOrDecimal256(asNumber), nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return nil, fmt.Errorf("domain chainId: %w", err)
	}
	n, ok := new(big.Int).SetString(asString, 0)
	if !ok {
		return nil, fmt.Errorf("domain chainId: cannot parse %q", asString)
	}
	return (*math.HexOrDecimal256)(n), nil
}

// domainTypeFields derives the EIP712Domain type definition from the fields
// the gateway actually populated, in canonical order.
func domainTypeFields(domain map[string]json.RawMessage) []apitypes.Type {
	canonical := []struct{ name, typ string }{
		{"name", "string"},
		{"version", "string"},
		{"chainId", "uint256"},
		{"verifyingContract", "address"},
		{"salt", "bytes32"},
	}
	var fields []apitypes.Type
	for _, f := range canonical {
		if _, ok := domain[f.name]; ok {
			fields = append(fields, apitypes.Type{Name: f.name, Type: f.typ})
		}
	}
	return fields
}

// inferPrimaryType picks the one struct type not referenced as a field of any
// other type, mirroring how ethers infers the primary type.
func inferPrimaryType(types map[string][]apitypes.Type) (string, error) {
	referenced := make(map[string]bool)
	for _, fields := range types {
		for _, f := range fields {
			base := f.Type
			for len(base) > 2 && base[len(base)-2:] == "[]" {
				base = base[:len(base)-2]
			}
			if _, ok := types[base]; ok {
				referenced[base] = true
			}
		}
	}

	for name := range types {
		if name != "EIP712Domain" && !referenced[name] {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot infer primary type from %d types", len(types))
}

// normalizeMessage converts JSON numbers to decimal strings so apitypes can
// encode them as uint/int values without float precision loss.
func normalizeMessage(value map[string]any) apitypes.TypedDataMessage {
	out := make(apitypes.TypedDataMessage, len(value))
	for k, v := range value {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		nested := make(map[string]any, len(t))
		for k, inner := range t {
			nested[k] = normalizeValue(inner)
		}
		return nested
	case []any:
		items := make([]any, len(t))
		for i, inner := range t {
			items[i] = normalizeValue(inner)
		}
		return items
	default:
		return v
	}
}
