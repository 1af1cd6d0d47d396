package queue

import (
	"context"
	"sync"
	"time"

	"pph-connect.com/pph-connect/internal/constants"
)

// LocalClaimGuard is an in-process ClaimGuard for single-node deployments
// and tests.
type LocalClaimGuard struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewLocalClaimGuard() *LocalClaimGuard {
	return &LocalClaimGuard{held: make(map[string]time.Time)}
}

func (g *LocalClaimGuard) Acquire(ctx context.Context, workerID string, stage constants.Stage, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := workerID + ":" + string(stage)
	if expires, ok := g.held[key]; ok && time.Now().Before(expires) {
		return ErrClaimInFlight
	}
	g.held[key] = time.Now().Add(ttl)
	return nil
}

func (g *LocalClaimGuard) Release(ctx context.Context, workerID string, stage constants.Stage) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.held, workerID+":"+string(stage))
	return nil
}
