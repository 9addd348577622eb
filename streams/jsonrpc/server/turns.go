package server

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/semaphore"
)

// turns queues mutating calls per pool. A pool rejects a call that overlaps a
// running one, so RPC callers wait here for their turn instead.
type turns struct {
	mu    sync.Mutex
	pools map[common.Address]*semaphore.Weighted
}

func newTurns() *turns {
	return &turns{pools: make(map[common.Address]*semaphore.Weighted)}
}

// take blocks until the pool is free for the caller or ctx is done.
func (t *turns) take(ctx context.Context, pool common.Address) (func(), error) {
	t.mu.Lock()
	sem, ok := t.pools[pool]
	if !ok {
		sem = semaphore.NewWeighted(1)
		t.pools[pool] = sem
	}
	t.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}
