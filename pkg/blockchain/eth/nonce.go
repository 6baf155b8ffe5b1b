package eth

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// nonceManager hands out sequential nonces per account. The first request for
// an account seeds the counter from the node's pending nonce; later requests
// increment locally under the lock, so two concurrent submissions from the
// same account never reuse a nonce.
type nonceManager struct {
	mu    sync.Mutex
	next  map[common.Address]uint64
	fetch func(ctx context.Context, account common.Address) (uint64, error)
}

func newNonceManager(fetch func(ctx context.Context, account common.Address) (uint64, error)) *nonceManager {
	return &nonceManager{
		next:  make(map[common.Address]uint64),
		fetch: fetch,
	}
}

// Next returns the next nonce for the account. Acquisition is atomic with
// the local increment.
func (m *nonceManager) Next(ctx context.Context, account common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce, seeded := m.next[account]
	if !seeded {
		fetched, err := m.fetch(ctx, account)
		if err != nil {
			return 0, err
		}
		nonce = fetched
	}
	m.next[account] = nonce + 1
	return nonce, nil
}
