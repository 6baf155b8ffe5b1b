package kms

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// LocalEthSigner signs with a secp256k1 key held in process memory.
type LocalEthSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewLocalEthSigner parses a hex encoded private key. A leading 0x prefix is
// accepted. Returns ErrInvalidKey when the key is malformed.
func NewLocalEthSigner(hexKey string) (*LocalEthSigner, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &LocalEthSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the account address derived from the key.
func (s *LocalEthSigner) Address() common.Address {
	return s.address
}

// Sign signs the given digest.
func (s *LocalEthSigner) Sign(_ context.Context, digest []byte) ([]byte, error) {
	return crypto.Sign(digest, s.key)
}
