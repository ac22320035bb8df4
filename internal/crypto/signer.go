package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer signs marketplace payloads with the bot wallet's key. Both
// marketplaces hand the client a fully-formed payload to sign: Blur returns
// EIP-712 sign data from its format endpoints, OpenSea requires a signed
// Seaport order.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the Ethereum address derived from the signer's key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignPersonalMessage signs message per EIP-191 ("\x19Ethereum Signed
// Message:\n" prefix), as the Blur auth challenge requires. The returned
// signature is 0x-prefixed hex with the recovery byte adjusted to 27/28.
func (s *Signer) SignPersonalMessage(message string) (string, error) {
	hash := accounts.TextHash([]byte(message))
	sig, err := ethcrypto.Sign(hash, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: sign message: %w", err)
	}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}

// SignTypedData hashes and signs an EIP-712 typed-data payload. The returned
// signature is 0x-prefixed hex with the recovery byte adjusted to 27/28.
func (s *Signer) SignTypedData(typedData apitypes.TypedData) (string, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: hash typed data: %w", err)
	}
	sig, err := ethcrypto.Sign(hash, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: sign typed data: %w", err)
	}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}
