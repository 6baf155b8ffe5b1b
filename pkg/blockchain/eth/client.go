package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"

	"github.com/yonathanavila/verified-chain-bk/internal/log"
)

const (
	// Eq is for "equal" result of comparison
	Eq = 0
	// Gt is for "greater" than result of comparison
	Gt = 1
	// Lt is for "less than" result of comparison
	Lt = -1

	gasPriceIncrement = 10
	feeIncrementNum   = 5
	feeIncrementDen   = 4
)

var (
	// ErrEstimation when the node rejects the gas estimation call
	ErrEstimation = errors.New("transaction estimation rejected")
	// ErrSubmission when the node rejects a signed transaction
	ErrSubmission = errors.New("transaction submission rejected")
	// ErrCall when a read-only contract call fails
	ErrCall = errors.New("contract call failed")
	// ErrReceiptStatusFailed when receiving a failed transaction
	ErrReceiptStatusFailed = errors.New("receipt status is failed")
	// ErrReceiptNotReceived when unable to retrieve a transaction receipt in time
	ErrReceiptNotReceived = errors.New("receipt not available")
)

// Client is an ethereum client to call Smart Contract methods.
type Client struct {
	client *ethclient.Client
	Config *ClientConfig
	nonces *nonceManager
}

// ClientConfig eth client config
type ClientConfig struct {
	ReceiptTimeout       time.Duration `json:"receipt_timeout"`
	DefaultGasLimit      int           `json:"default_gas_limit"`
	MinGasPrice          *big.Int      `json:"min_gas_price"`
	MaxGasPrice          *big.Int      `json:"max_gas_price"`
	RPCResponseTimeout   time.Duration `json:"rpc_response_time_out"`
	WaitReceiptCycleTime time.Duration `json:"wait_receipt_cycle_time_out"`
}

// NewClient creates a Client instance.
func NewClient(client *ethclient.Client, c *ClientConfig) *Client {
	cl := &Client{client: client, Config: c}
	cl.nonces = newNonceManager(func(ctx context.Context, account common.Address) (uint64, error) {
		_ctx, cancel := context.WithTimeout(ctx, c.RPCResponseTimeout)
		defer cancel()
		return client.PendingNonceAt(_ctx, account)
	})
	return cl
}

// BalanceAt retrieves the balance of the given account
func (c *Client) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	_ctx, cancel := context.WithTimeout(ctx, c.Config.RPCResponseTimeout)
	defer cancel()
	return c.client.BalanceAt(_ctx, addr, nil)
}

// ChainID get chain id.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	_ctx, cancel := context.WithTimeout(ctx, c.Config.RPCResponseTimeout)
	defer cancel()
	return c.client.ChainID(_ctx)
}

// Ping reports whether the node answers RPC requests.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ChainID(ctx)
	return err
}

// HeaderByNumber get eth block header by block number
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	_ctx, cancel := context.WithTimeout(ctx, c.Config.RPCResponseTimeout)
	defer cancel()
	return c.client.HeaderByNumber(_ctx, number)
}

// TransactionParams settings for transaction.
type TransactionParams struct {
	BaseFee     *big.Int
	GasTips     *big.Int
	Nonce       *uint64
	FromAddress common.Address
	ToAddress   common.Address
	Payload     []byte
}

// CreateRawTx builds an unsigned dynamic fee transaction for the given call.
// The nonce is acquired through the per-account nonce manager unless one is
// supplied, so concurrent submissions from the same account never collide.
// Gas estimation and fee queries run in parallel; both are read-only.
func (c *Client) CreateRawTx(ctx context.Context, txParams TransactionParams) (*types.Transaction, error) {
	if txParams.Nonce == nil {
		nonce, err := c.nonces.Next(ctx, txParams.FromAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to get nonce: %v", err)
		}
		txParams.Nonce = &nonce
	}

	var (
		gasLimit          uint64
		latestBlockHeader *types.Header
		gasTip            *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_ctx, cancel := context.WithTimeout(gctx, c.Config.RPCResponseTimeout)
		defer cancel()
		limit, err := c.client.EstimateGas(_ctx, ethereum.CallMsg{
			From:  txParams.FromAddress,
			To:    &txParams.ToAddress,
			Gas:   0,
			Value: big.NewInt(0),
			Data:  txParams.Payload,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEstimation, err)
		}
		gasLimit = limit
		return nil
	})
	g.Go(func() error {
		header, err := c.HeaderByNumber(gctx, nil)
		if err != nil {
			return fmt.Errorf("failed to get latest block header: %v", err)
		}
		latestBlockHeader = header
		return nil
	})
	if txParams.GasTips == nil {
		g.Go(func() error {
			_ctx, cancel := context.WithTimeout(gctx, c.Config.RPCResponseTimeout)
			defer cancel()
			tip, err := c.client.SuggestGasTipCap(_ctx)
			if err != nil {
				// some dev nodes don't implement eth_maxPriorityFeePerGas
				log.Warn(gctx, "failed to get suggested gas tip, using 0", "err", err)
				tip = big.NewInt(0)
			}
			gasTip = tip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if txParams.GasTips != nil {
		gasTip = txParams.GasTips
	}

	if txParams.BaseFee == nil {
		baseFee := latestBlockHeader.BaseFee
		if baseFee == nil {
			baseFee = big.NewInt(0)
		}
		// add 25% to the base fee; unused gas from a dynamic fee transaction
		// is returned anyway
		baseFee = new(big.Int).Div(new(big.Int).Mul(baseFee, big.NewInt(feeIncrementNum)), big.NewInt(feeIncrementDen))
		txParams.BaseFee = baseFee
	}

	maxFeePerGas := boundGasPrice(new(big.Int).Add(txParams.BaseFee, gasTip), c.Config.MinGasPrice, c.Config.MaxGasPrice)
	if maxFeePerGas.Cmp(gasTip) == Lt {
		gasTip = new(big.Int).Set(maxFeePerGas)
	}

	baseTx := &types.DynamicFeeTx{
		To:        &txParams.ToAddress,
		Nonce:     *txParams.Nonce,
		Gas:       gasLimit,
		Value:     big.NewInt(0),
		Data:      txParams.Payload,
		GasTipCap: gasTip,
		GasFeeCap: maxFeePerGas,
	}

	return types.NewTx(baseTx), nil
}

// SendRawTx broadcasts a signed transaction.
func (c *Client) SendRawTx(ctx context.Context, tx *types.Transaction) error {
	_ctx, cancel := context.WithTimeout(ctx, c.Config.RPCResponseTimeout)
	defer cancel()
	if err := c.client.SendTransaction(_ctx, tx); err != nil {
		return fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	return nil
}

// WaitReceipt polls the node until the transaction receipt is available or
// the configured receipt timeout expires.
func (c *Client) WaitReceipt(ctx context.Context, txID common.Hash) (*types.Receipt, error) {
	var err error
	var receipt *types.Receipt

	log.Debug(ctx, "Waiting for receipt", "tx", txID.Hex())

	start := time.Now()
	for {
		receipt, err = c.client.TransactionReceipt(ctx, txID)
		if err != nil {
			log.Debug(ctx, "get transaction receipt", "err", err)
		}

		if receipt != nil || time.Since(start) >= c.Config.ReceiptTimeout {
			break
		}

		time.Sleep(c.Config.WaitReceiptCycleTime)
	}

	if receipt == nil {
		log.Debug(ctx, "Pending transaction / Wait receipt timeout", "tx", txID.Hex())
		return nil, ErrReceiptNotReceived
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, ErrReceiptStatusFailed
	}
	log.Debug(ctx, "Receipt received", "tx", txID.Hex())

	return receipt, nil
}

// CallContract performs a read-only contract call with the given packed
// calldata. No gas is spent and nothing is signed.
func (c *Client) CallContract(ctx context.Context, to common.Address, packed []byte) ([]byte, error) {
	_ctx, cancel := context.WithTimeout(ctx, c.Config.RPCResponseTimeout)
	defer cancel()
	res, err := c.client.CallContract(_ctx, ethereum.CallMsg{
		To:   &to,
		Data: packed,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCall, err)
	}
	return res, nil
}

// boundGasPrice corrects the given gas price with the configured bounds. A
// min equal to a non-zero max forces that exact value. The suggested price is
// bumped by 10% for better confirmation speed before clamping.
func boundGasPrice(suggested, min, max *big.Int) *big.Int {
	zero := big.NewInt(0)

	if min != nil && min.Cmp(zero) == Gt && max != nil && min.Cmp(max) == Eq {
		return new(big.Int).Set(max)
	}

	gasPrice := new(big.Int).Set(suggested)
	inc := new(big.Int).Set(gasPrice)
	inc.Div(inc, new(big.Int).SetUint64(gasPriceIncrement))
	gasPrice.Add(gasPrice, inc)

	if min != nil && min.Cmp(zero) == Gt && gasPrice.Cmp(min) == Lt {
		gasPrice.Set(min)
	}
	if max != nil && max.Cmp(zero) == Gt && gasPrice.Cmp(max) == Gt {
		gasPrice.Set(max)
	}
	return gasPrice
}
