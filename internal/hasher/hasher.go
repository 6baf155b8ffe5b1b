// Package hasher derives the canonical on-chain commitment of a proof
// artifact. The commitment is the keccak-256 digest of the raw artifact
// bytes, rendered as 0x-prefixed lowercase hex. It is a pure function of its
// input: the same bytes always produce the same commitment.
package hasher

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Hash returns the commitment for the given artifact bytes. Empty input is
// valid and yields the digest of zero bytes.
func Hash(artifact []byte) string {
	return crypto.Keccak256Hash(artifact).Hex()
}

// HashToBytes32 returns the commitment as a 32 byte word, the form the
// contract methods take.
func HashToBytes32(artifact []byte) [32]byte {
	return crypto.Keccak256Hash(artifact)
}

// CommitmentToBytes32 converts a 0x-prefixed hex commitment back to the 32
// byte word used in contract calls.
func CommitmentToBytes32(commitment string) [32]byte {
	return common.HexToHash(commitment)
}
