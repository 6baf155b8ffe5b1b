package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashKnownVectors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "proof bytes",
			input:    []byte("proof-bytes"),
			expected: "0xe445088f7b9caa45a88c6f588ff0606925e8e59819b994840971e60c2f89c026",
		},
		{
			name:     "empty input",
			input:    []byte{},
			expected: "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		},
		{
			name:     "nil input",
			input:    nil,
			expected: "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Hash(tc.input))
		})
	}
}

func TestHashIsDeterministic(t *testing.T) {
	inputs := [][]byte{
		[]byte("proof-bytes"),
		{0x00, 0x01, 0x02, 0xff},
		make([]byte, 1024),
	}
	for _, b := range inputs {
		first := Hash(b)
		second := Hash(b)
		require.Equal(t, first, second)
		require.Len(t, first, 66)
		require.Equal(t, "0x", first[:2])
	}
}

func TestHashDistinguishesInputs(t *testing.T) {
	assert.NotEqual(t, Hash([]byte("proof-bytes")), Hash([]byte("proof-bytes-2")))
}

func TestHashToBytes32MatchesHexForm(t *testing.T) {
	b := []byte("proof-bytes")
	word := HashToBytes32(b)
	assert.Equal(t, word, CommitmentToBytes32(Hash(b)))
}
