package collective

import (
	"context"
	"fmt"
	"sync"
)

// barrier is a reusable, channel-based rendezvous point for exactly n
// goroutines, generalizing wlattner/rf's forest.go worker-pool channels
// from a work queue into a round-synchronous wait. Each generation is
// its own channel, closed once the last arrival checks in; callers from
// the next generation block on a freshly allocated channel.
type barrier struct {
	n     int
	mu    sync.Mutex
	count int
	ch    chan struct{}
}

func newBarrier(n int) *barrier {
	return &barrier{n: n, ch: make(chan struct{})}
}

func (b *barrier) wait(ctx context.Context) error {
	b.mu.Lock()
	ch := b.ch
	b.count++
	if b.count == b.n {
		b.count = 0
		b.ch = make(chan struct{})
		close(ch)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// hub is the shared state every rank's Group handle in one in-process
// group points to: a rendezvous barrier plus the scratch slots Broadcast
// and Gather exchange values through.
type hub struct {
	size int

	barrier *barrier

	mu           sync.Mutex
	broadcastVal any
	gatherBuf    []any
}

type inProcGroup struct {
	rank int
	hub  *hub
}

// NewInProcessGroup returns size Group handles, one per rank, sharing a
// single in-process rendezvous hub. Rank 0 is by convention the
// coordinator root used throughout package distforest.
func NewInProcessGroup(size int) []Group {
	if size < 1 {
		size = 1
	}
	h := &hub{
		size:      size,
		barrier:   newBarrier(size),
		gatherBuf: make([]any, size),
	}
	groups := make([]Group, size)
	for r := 0; r < size; r++ {
		groups[r] = &inProcGroup{rank: r, hub: h}
	}
	return groups
}

func (g *inProcGroup) Rank() int { return g.rank }
func (g *inProcGroup) Size() int { return g.hub.size }

func (g *inProcGroup) Broadcast(ctx context.Context, root int, value any) (any, error) {
	if g.rank == root {
		g.hub.mu.Lock()
		g.hub.broadcastVal = value
		g.hub.mu.Unlock()
	}

	if err := g.hub.barrier.wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: broadcast from rank %d: %v", ErrCollective, root, err)
	}

	g.hub.mu.Lock()
	v := g.hub.broadcastVal
	g.hub.mu.Unlock()

	if err := g.hub.barrier.wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: broadcast from rank %d: %v", ErrCollective, root, err)
	}
	return v, nil
}

func (g *inProcGroup) Gather(ctx context.Context, root int, value any) ([]any, error) {
	g.hub.mu.Lock()
	g.hub.gatherBuf[g.rank] = value
	g.hub.mu.Unlock()

	if err := g.hub.barrier.wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: gather to rank %d: %v", ErrCollective, root, err)
	}

	var result []any
	if g.rank == root {
		result = make([]any, g.hub.size)
		g.hub.mu.Lock()
		copy(result, g.hub.gatherBuf)
		g.hub.mu.Unlock()
	}

	if err := g.hub.barrier.wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: gather to rank %d: %v", ErrCollective, root, err)
	}
	return result, nil
}
