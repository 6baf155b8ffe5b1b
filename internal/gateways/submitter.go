// Package gateways interacts with the blockchain on behalf of the pipeline.
package gateways

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/yonathanavila/verified-chain-bk/internal/core/domain"
	"github.com/yonathanavila/verified-chain-bk/internal/hasher"
	"github.com/yonathanavila/verified-chain-bk/internal/kms"
	"github.com/yonathanavila/verified-chain-bk/internal/log"
	"github.com/yonathanavila/verified-chain-bk/internal/registry"
	"github.com/yonathanavila/verified-chain-bk/pkg/blockchain/eth"
)

// chainClient is the slice of the eth client the gateway needs.
type chainClient interface {
	CreateRawTx(ctx context.Context, txParams eth.TransactionParams) (*types.Transaction, error)
	SendRawTx(ctx context.Context, tx *types.Transaction) error
	WaitReceipt(ctx context.Context, txID common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, to common.Address, packed []byte) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// SubmissionEthGateway submits commitments to the proof registry contract
// and answers read-only queries against it. The contract handle and signer
// are injected once at construction and never reassigned.
type SubmissionEthGateway struct {
	client   chainClient
	contract *registry.Contract
	signer   kms.Signer
}

// NewSubmissionEthGateway creates a new gateway bound to the registry contract.
func NewSubmissionEthGateway(client *eth.Client, contract *registry.Contract, signer kms.Signer) *SubmissionEthGateway {
	return newSubmissionEthGateway(client, contract, signer)
}

func newSubmissionEthGateway(client chainClient, contract *registry.Contract, signer kms.Signer) *SubmissionEthGateway {
	return &SubmissionEthGateway{
		client:   client,
		contract: contract,
		signer:   signer,
	}
}

// SubmitCommitment sends a create_proof transaction carrying the commitment,
// waits for its receipt and returns the submission record together with the
// registry counter observed once the receipt arrived.
func (g *SubmissionEthGateway) SubmitCommitment(ctx context.Context, commitment string) (*domain.SubmissionRecord, error) {
	payload, err := g.contract.PackCreateProof(hasher.CommitmentToBytes32(commitment))
	if err != nil {
		return nil, err
	}

	tx, err := g.client.CreateRawTx(ctx, eth.TransactionParams{
		FromAddress: g.signer.Address(),
		ToAddress:   g.contract.Address(),
		Payload:     payload,
	})
	if err != nil {
		return nil, err
	}

	cid, err := g.client.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	s := types.LatestSignerForChainID(cid)
	h := s.Hash(tx)
	sig, err := g.signer.Sign(ctx, h[:])
	if err != nil {
		return nil, err
	}
	signedTx, err := tx.WithSignature(s, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := g.client.SendRawTx(ctx, signedTx); err != nil {
		return nil, err
	}

	txID := signedTx.Hash()
	log.Debug(ctx, "create_proof submitted", "tx", txID.Hex(), "nonce", signedTx.Nonce())

	if _, err := g.client.WaitReceipt(ctx, txID); err != nil {
		return nil, err
	}

	counter, err := g.Counter(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.SubmissionRecord{
		Commitment: commitment,
		TxHash:     txID.Hex(),
		Counter:    counter,
	}, nil
}

// Counter reads the registry's entry counter.
func (g *SubmissionEthGateway) Counter(ctx context.Context) (*big.Int, error) {
	packed, err := g.contract.PackCounter()
	if err != nil {
		return nil, err
	}
	res, err := g.client.CallContract(ctx, g.contract.Address(), packed)
	if err != nil {
		return nil, err
	}
	return g.contract.UnpackCounter(res)
}

// VerifyProof asks the registry whether the commitment sits at the given
// index. Read-only, no gas, no signing.
func (g *SubmissionEthGateway) VerifyProof(ctx context.Context, index *big.Int, commitment string) (bool, error) {
	packed, err := g.contract.PackVerifyProof(index, hasher.CommitmentToBytes32(commitment))
	if err != nil {
		return false, err
	}
	res, err := g.client.CallContract(ctx, g.contract.Address(), packed)
	if err != nil {
		return false, err
	}
	return g.contract.UnpackVerifyProof(res)
}
