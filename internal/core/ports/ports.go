// Package ports defines the collaborator interfaces the orchestrator
// depends on.
package ports

import (
	"context"
	"math/big"

	"github.com/yonathanavila/verified-chain-bk/internal/core/domain"
)

// ProofGenerator produces a raw proof artifact for a request.
type ProofGenerator interface {
	Generate(ctx context.Context, requestID string) ([]byte, error)
}

// SubmissionGateway submits commitments to the registry contract and answers
// read-only verification queries against it.
type SubmissionGateway interface {
	SubmitCommitment(ctx context.Context, commitment string) (*domain.SubmissionRecord, error)
	VerifyProof(ctx context.Context, index *big.Int, commitment string) (bool, error)
}

// Pipeline runs one proof request end to end.
type Pipeline interface {
	Run(ctx context.Context, req domain.ProofRequest) (*domain.Result, error)
}
