// Package kms holds the signing capability used to authorize on-chain
// submissions. The concrete key material is injected once at startup and
// never leaves this package: callers hand over a digest and get back a
// signature plus the derived sender address.
package kms

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidKey is returned when the configured private key cannot be parsed.
var ErrInvalidKey = errors.New("invalid private key")

// Signer signs transaction digests on behalf of a single chain account.
type Signer interface {
	// Address returns the account address derived from the signing key.
	Address() common.Address
	// Sign signs a 32 byte digest and returns the 65 byte [R || S || V]
	// signature expected by the transaction types.
	Sign(ctx context.Context, digest []byte) ([]byte, error)
}

// SignerConfig selects and parametrizes the signer implementation.
type SignerConfig struct {
	// PrivateKey is the hex encoded secp256k1 key for the local signer.
	PrivateKey string
}

// NewSigner builds the signer from configuration. Only the local in-memory
// signer exists today; the indirection keeps the door open for remote or
// hardware-backed implementations without touching the orchestration code.
func NewSigner(cfg SignerConfig) (Signer, error) {
	s, err := NewLocalEthSigner(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("loading local signer: %w", err)
	}
	return s, nil
}
