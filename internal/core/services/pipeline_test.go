package services

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yonathanavila/verified-chain-bk/internal/core/domain"
)

const proofBytesCommitment = "0xe445088f7b9caa45a88c6f588ff0606925e8e59819b994840971e60c2f89c026"

type stubProver struct {
	mu       sync.Mutex
	artifact []byte
	err      error
	calls    int
	block    chan struct{} // when set, Generate waits until closed
}

func (s *stubProver) Generate(_ context.Context, _ string) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	return s.artifact, s.err
}

type stubGateway struct {
	mu sync.Mutex

	record    *domain.SubmissionRecord
	submitErr error

	verifyResult bool
	verifyErr    error

	submitCalls      int
	verifyCalls      int
	verifyIndex      *big.Int
	verifyCommitment string
}

func (s *stubGateway) SubmitCommitment(_ context.Context, commitment string) (*domain.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitCalls++
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	rec := *s.record
	rec.Commitment = commitment
	return &rec, nil
}

func (s *stubGateway) VerifyProof(_ context.Context, index *big.Int, commitment string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifyCalls++
	s.verifyIndex = index
	s.verifyCommitment = commitment
	return s.verifyResult, s.verifyErr
}

func request(id string) domain.ProofRequest {
	return domain.ProofRequest{
		ID:        id,
		Requester: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		Payload:   "hello-" + id,
	}
}

func TestRunRoundTrip(t *testing.T) {
	gw := &stubGateway{
		record: &domain.SubmissionRecord{
			TxHash:  "0xabc",
			Counter: big.NewInt(6), // counter observed after submit
		},
		verifyResult: true,
	}
	p := NewPipeline(&stubProver{artifact: []byte("proof-bytes")}, gw)

	res, err := p.Run(context.Background(), request("r1"))
	require.NoError(t, err)

	assert.Equal(t, proofBytesCommitment, res.Commitment)
	assert.Equal(t, "0xabc", res.TxHash)
	assert.True(t, res.Verified)

	// the entry appended at counter 5 must be verified at index 5
	assert.Equal(t, int64(5), res.Index.Int64())
	assert.Equal(t, int64(5), gw.verifyIndex.Int64())
	assert.Equal(t, proofBytesCommitment, gw.verifyCommitment,
		"the commitment verified on chain must equal the commitment computed from the artifact")
}

func TestRunProverFailureNeverSubmits(t *testing.T) {
	gw := &stubGateway{record: &domain.SubmissionRecord{Counter: big.NewInt(1)}}
	p := NewPipeline(&stubProver{err: errors.New("setup failed")}, gw)

	_, err := p.Run(context.Background(), request("r2"))

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageProving, stageErr.Stage)
	assert.Contains(t, stageErr.Error(), "setup failed")
	assert.Equal(t, 0, gw.submitCalls, "no transaction may be submitted for a failed proof")
	assert.Equal(t, 0, gw.verifyCalls)
}

func TestRunSubmitFailure(t *testing.T) {
	gw := &stubGateway{submitErr: errors.New("node rejected tx")}
	p := NewPipeline(&stubProver{artifact: []byte("proof-bytes")}, gw)

	_, err := p.Run(context.Background(), request("r3"))

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageSubmitting, stageErr.Stage)
	assert.Equal(t, 0, gw.verifyCalls, "verification must not run after a failed submission")
}

func TestRunVerifyFailure(t *testing.T) {
	gw := &stubGateway{
		record:    &domain.SubmissionRecord{TxHash: "0xabc", Counter: big.NewInt(3)},
		verifyErr: errors.New("execution reverted"),
	}
	p := NewPipeline(&stubProver{artifact: []byte("proof-bytes")}, gw)

	_, err := p.Run(context.Background(), request("r4"))

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageVerifying, stageErr.Stage)
}

func TestRunCompletesOnNegativeVerification(t *testing.T) {
	// the orchestrator's job is the round trip, not interpreting validity
	gw := &stubGateway{
		record:       &domain.SubmissionRecord{TxHash: "0xabc", Counter: big.NewInt(1)},
		verifyResult: false,
	}
	p := NewPipeline(&stubProver{artifact: []byte("proof-bytes")}, gw)

	res, err := p.Run(context.Background(), request("r5"))
	require.NoError(t, err)
	assert.False(t, res.Verified)
}

func TestRunRejectsDuplicateInFlight(t *testing.T) {
	block := make(chan struct{})
	prover := &stubProver{artifact: []byte("proof-bytes"), block: block}
	gw := &stubGateway{
		record:       &domain.SubmissionRecord{TxHash: "0xabc", Counter: big.NewInt(1)},
		verifyResult: true,
	}
	p := NewPipeline(prover, gw)

	req := request("r6")
	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), req)
		done <- err
	}()

	// wait for the first run to enter the proving stage
	for {
		prover.mu.Lock()
		started := prover.calls > 0
		prover.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	dup := req
	dup.ID = "r6-dup"
	_, err := p.Run(context.Background(), dup)
	assert.ErrorIs(t, err, ErrRequestInFlight)

	close(block)
	require.NoError(t, <-done)

	// once finished, the same request may run again
	_, err = p.Run(context.Background(), req)
	require.NoError(t, err)
}

func TestRunConcurrentDistinctRequests(t *testing.T) {
	gw := &stubGateway{
		record:       &domain.SubmissionRecord{TxHash: "0xabc", Counter: big.NewInt(9)},
		verifyResult: true,
	}
	p := NewPipeline(&stubProver{artifact: []byte("proof-bytes")}, gw)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for n := 0; n < 4; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = p.Run(context.Background(), request(string(rune('a'+n))))
		}(n)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 4, gw.submitCalls)
}
