// Package domain holds the types flowing through the submission pipeline.
package domain

import "math/big"

// Stage identifies a step of the submission pipeline.
type Stage string

// Pipeline stages, in execution order.
const (
	StageProving    Stage = "proving"
	StageHashing    Stage = "hashing"
	StageSubmitting Stage = "submitting"
	StageVerifying  Stage = "verifying"
	StageDone       Stage = "done"
)

// ProofRequest is the logical unit of work. Immutable once created.
type ProofRequest struct {
	// ID correlates logs, the prover workdir and the on-chain record.
	ID string
	// Requester is the chain address the request was made on behalf of.
	Requester string
	// Payload is the opaque request parameter forwarded by the caller.
	Payload string
	// Signature is an optional pre-supplied signature over the payload.
	// Carried opaque; signature checking belongs to the caller's boundary.
	Signature string
}

// Key identifies equivalent requests for in-flight deduplication.
func (r ProofRequest) Key() string {
	return r.Requester + "|" + r.Payload
}

// SubmissionRecord correlates a submitted commitment with its transaction
// and the on-chain counter observed once the receipt arrived. Consumed by
// the immediately following verification step, never stored.
type SubmissionRecord struct {
	Commitment string
	TxHash     string
	// Counter is the registry counter after the submission was recorded.
	Counter *big.Int
}

// Result is the outcome of a pipeline run that reached done.
type Result struct {
	Commitment string
	TxHash     string
	// Index is the registry slot the commitment was verified against.
	Index *big.Int
	// Verified is the boolean answer of the on-chain verification call.
	Verified bool
}
