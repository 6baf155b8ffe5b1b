// Package registry loads the proof registry contract interface and binds it
// to its deployed address. Loading happens once at startup; the resulting
// handle is immutable and safe to share across concurrent requests.
package registry

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrLoad is returned when the ABI source or the address is unusable.
	ErrLoad = errors.New("cannot load contract definition")
	// ErrAbiParse is returned when the interface description is malformed.
	ErrAbiParse = errors.New("cannot parse contract ABI")
)

// methods the pipeline depends on
const (
	MethodCreateProof = "create_proof"
	MethodVerifyProof = "verify_proof"
	MethodCounter     = "counter"
)

// Contract binds a parsed ABI to a deployed address.
type Contract struct {
	abi     abi.ABI
	address common.Address
}

// Load reads the ABI description from abiPath and binds it to the deployed
// contract address. Fatal at startup: callers should not retry per request.
func Load(abiPath, address string) (*Contract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: invalid contract address %q", ErrLoad, address)
	}
	raw, err := os.ReadFile(abiPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrLoad, abiPath, err)
	}
	return Bind(string(raw), common.HexToAddress(address))
}

// Bind parses an ABI JSON document and binds it to the given address.
func Bind(abiJSON string, address common.Address) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAbiParse, err)
	}
	for _, m := range []string{MethodCreateProof, MethodVerifyProof, MethodCounter} {
		if _, ok := parsed.Methods[m]; !ok {
			return nil, fmt.Errorf("%w: ABI is missing method %s", ErrAbiParse, m)
		}
	}
	return &Contract{abi: parsed, address: address}, nil
}

// Address returns the deployed contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// PackCreateProof encodes a create_proof(bytes32) call.
func (c *Contract) PackCreateProof(commitment [32]byte) ([]byte, error) {
	return c.abi.Pack(MethodCreateProof, commitment)
}

// PackVerifyProof encodes a verify_proof(uint256,bytes32) call.
func (c *Contract) PackVerifyProof(index *big.Int, commitment [32]byte) ([]byte, error) {
	return c.abi.Pack(MethodVerifyProof, index, commitment)
}

// UnpackVerifyProof decodes the boolean result of verify_proof.
func (c *Contract) UnpackVerifyProof(data []byte) (bool, error) {
	out, err := c.abi.Unpack(MethodVerifyProof, data)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrAbiParse, err)
	}
	ok, valid := out[0].(bool)
	if !valid {
		return false, fmt.Errorf("%w: verify_proof returned a non boolean", ErrAbiParse)
	}
	return ok, nil
}

// PackCounter encodes a read of the counter state variable.
func (c *Contract) PackCounter() ([]byte, error) {
	return c.abi.Pack(MethodCounter)
}

// UnpackCounter decodes the counter value.
func (c *Contract) UnpackCounter(data []byte) (*big.Int, error) {
	out, err := c.abi.Unpack(MethodCounter, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAbiParse, err)
	}
	counter, valid := out[0].(*big.Int)
	if !valid {
		return nil, fmt.Errorf("%w: counter returned a non integer", ErrAbiParse)
	}
	return counter, nil
}
