// Package services holds the submission orchestrator: the state machine that
// turns a proof request into a confirmed, verifiable on-chain record.
package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/yonathanavila/verified-chain-bk/internal/core/domain"
	"github.com/yonathanavila/verified-chain-bk/internal/core/ports"
	"github.com/yonathanavila/verified-chain-bk/internal/hasher"
	"github.com/yonathanavila/verified-chain-bk/internal/inflight"
	"github.com/yonathanavila/verified-chain-bk/internal/log"
)

const (
	inflightTTL     = 10 * time.Minute
	inflightCleanup = time.Hour
)

// ErrRequestInFlight when an equivalent request is already being processed.
var ErrRequestInFlight = errors.New("an equivalent request is already in flight")

// StageError reports which pipeline stage failed and why.
type StageError struct {
	Stage domain.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type pipeline struct {
	prover  ports.ProofGenerator
	gateway ports.SubmissionGateway
	pending *inflight.TTLMap
}

// NewPipeline builds the orchestrator. Each Run call executes its own state
// machine instance; the collaborators are the only shared state and are safe
// under concurrent use.
func NewPipeline(prover ports.ProofGenerator, gateway ports.SubmissionGateway) ports.Pipeline {
	pending := inflight.New(inflightTTL)
	pending.CleaningBackground(inflightCleanup)
	return &pipeline{
		prover:  prover,
		gateway: gateway,
		pending: pending,
	}
}

// Run drives one request through proving, hashing, submitting and verifying.
// A collaborator failure terminates the run and reports the failed stage; in
// particular nothing is ever submitted for a failed proof.
func (p *pipeline) Run(ctx context.Context, req domain.ProofRequest) (*domain.Result, error) {
	key := req.Key()
	if p.pending.Load(key) != nil {
		return nil, ErrRequestInFlight
	}
	p.pending.Store(key, req.ID)
	defer p.pending.Delete(key)

	ctx = log.With(ctx, "request-id", req.ID)
	log.Info(ctx, "pipeline started", "requester", req.Requester)

	artifact, err := p.prover.Generate(ctx, req.ID)
	if err != nil {
		return nil, p.failed(ctx, domain.StageProving, err)
	}

	commitment := hasher.Hash(artifact)
	log.Debug(ctx, "artifact hashed", "commitment", commitment, "artifact-bytes", len(artifact))

	record, err := p.gateway.SubmitCommitment(ctx, commitment)
	if err != nil {
		return nil, p.failed(ctx, domain.StageSubmitting, err)
	}

	// the registry is append-only and zero-indexed: the counter observed
	// after the submission points one past our entry
	index := new(big.Int).Sub(record.Counter, big.NewInt(1))
	verified, err := p.gateway.VerifyProof(ctx, index, commitment)
	if err != nil {
		return nil, p.failed(ctx, domain.StageVerifying, err)
	}

	log.Info(ctx, "pipeline done",
		"tx", record.TxHash,
		"index", index,
		"verified", verified)

	return &domain.Result{
		Commitment: commitment,
		TxHash:     record.TxHash,
		Index:      index,
		Verified:   verified,
	}, nil
}

func (p *pipeline) failed(ctx context.Context, stage domain.Stage, err error) error {
	log.Error(ctx, "pipeline failed", err, "stage", string(stage))
	return &StageError{Stage: stage, Err: err}
}
