package gateways

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yonathanavila/verified-chain-bk/internal/hasher"
	"github.com/yonathanavila/verified-chain-bk/internal/kms"
	"github.com/yonathanavila/verified-chain-bk/internal/registry"
	"github.com/yonathanavila/verified-chain-bk/pkg/blockchain/eth"
)

const proofRegistryABI = `[
  {"type":"function","name":"create_proof","stateMutability":"nonpayable",
   "inputs":[{"name":"commitment","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"verify_proof","stateMutability":"view",
   "inputs":[{"name":"index","type":"uint256"},{"name":"commitment","type":"bytes32"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"counter","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const (
	devKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	commitment = "0xe445088f7b9caa45a88c6f588ff0606925e8e59819b994840971e60c2f89c026"
)

var chainID = big.NewInt(31337)

// fakeChain implements the chainClient slice against an in-memory registry
// stub: counter reads return a fixed value, verify_proof answers true for
// the commitment preloaded at a fixed index.
type fakeChain struct {
	contract *registry.Contract

	counter     *big.Int
	storedIndex *big.Int
	storedWord  [32]byte

	sent        *types.Transaction
	sendErr     error
	receiptErr  error
	createCalls int
	callCalls   int
}

func (f *fakeChain) CreateRawTx(_ context.Context, p eth.TransactionParams) (*types.Transaction, error) {
	f.createCalls++
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		To:        &p.ToAddress,
		Nonce:     7,
		Gas:       60000,
		Value:     big.NewInt(0),
		Data:      p.Payload,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
	}), nil
}

func (f *fakeChain) SendRawTx(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = tx
	return nil
}

func (f *fakeChain) WaitReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (f *fakeChain) CallContract(_ context.Context, _ common.Address, packed []byte) ([]byte, error) {
	f.callCalls++
	counterPacked, _ := f.contract.PackCounter()
	if bytes.Equal(packed, counterPacked) {
		return common.LeftPadBytes(f.counter.Bytes(), 32), nil
	}
	expected, _ := f.contract.PackVerifyProof(f.storedIndex, f.storedWord)
	if bytes.Equal(packed, expected) {
		return common.LeftPadBytes([]byte{1}, 32), nil
	}
	return make([]byte, 32), nil
}

func (f *fakeChain) ChainID(_ context.Context) (*big.Int, error) {
	return chainID, nil
}

func newGateway(t *testing.T, chain *fakeChain) (*SubmissionEthGateway, kms.Signer) {
	t.Helper()
	contract, err := registry.Bind(proofRegistryABI, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"))
	require.NoError(t, err)
	chain.contract = contract

	signer, err := kms.NewLocalEthSigner(devKey)
	require.NoError(t, err)
	return newSubmissionEthGateway(chain, contract, signer), signer
}

func TestSubmitCommitment(t *testing.T) {
	chain := &fakeChain{
		counter:     big.NewInt(6),
		storedIndex: big.NewInt(5),
		storedWord:  hasher.CommitmentToBytes32(commitment),
	}
	g, signer := newGateway(t, chain)

	rec, err := g.SubmitCommitment(context.Background(), commitment)
	require.NoError(t, err)

	require.NotNil(t, chain.sent)
	assert.Equal(t, chain.sent.Hash().Hex(), rec.TxHash)
	assert.Equal(t, commitment, rec.Commitment)
	assert.Equal(t, int64(6), rec.Counter.Int64())

	// the broadcast transaction must carry the create_proof calldata and be
	// signed by the injected signer
	expectedPayload, err := chain.contract.PackCreateProof(hasher.CommitmentToBytes32(commitment))
	require.NoError(t, err)
	assert.Equal(t, expectedPayload, chain.sent.Data())

	from, err := types.Sender(types.LatestSignerForChainID(chainID), chain.sent)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), from)
}

func TestSubmitCommitmentSendFailure(t *testing.T) {
	boom := errors.New("node rejected tx")
	chain := &fakeChain{counter: big.NewInt(1), storedIndex: big.NewInt(0), sendErr: boom}
	g, _ := newGateway(t, chain)

	_, err := g.SubmitCommitment(context.Background(), commitment)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, chain.callCalls, "counter must not be read after a failed send")
}

func TestSubmitCommitmentReceiptTimeout(t *testing.T) {
	chain := &fakeChain{counter: big.NewInt(1), storedIndex: big.NewInt(0), receiptErr: eth.ErrReceiptNotReceived}
	g, _ := newGateway(t, chain)

	_, err := g.SubmitCommitment(context.Background(), commitment)
	assert.ErrorIs(t, err, eth.ErrReceiptNotReceived)
}

func TestVerifyProof(t *testing.T) {
	chain := &fakeChain{
		counter:     big.NewInt(6),
		storedIndex: big.NewInt(5),
		storedWord:  hasher.CommitmentToBytes32(commitment),
	}
	g, _ := newGateway(t, chain)

	ctx := context.Background()

	ok, err := g.VerifyProof(ctx, big.NewInt(5), commitment)
	require.NoError(t, err)
	assert.True(t, ok, "the commitment preloaded at index 5 must verify")

	ok, err = g.VerifyProof(ctx, big.NewInt(4), commitment)
	require.NoError(t, err)
	assert.False(t, ok, "a different index must not verify")
}

func TestCounter(t *testing.T) {
	chain := &fakeChain{counter: big.NewInt(42), storedIndex: big.NewInt(0)}
	g, _ := newGateway(t, chain)

	counter, err := g.Counter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), counter.Int64())
}
