package queue

import (
	"context"
	"errors"
	"time"

	"pph-connect.com/pph-connect/internal/constants"
)

// ClaimGuard serializes claim round-trips per (worker, lane). While a claim
// request is in flight the same lane must not issue a second one; the guard
// is released once the round-trip finishes, whatever its outcome.
type ClaimGuard interface {
	Acquire(ctx context.Context, workerID string, stage constants.Stage, ttl time.Duration) error

	Release(ctx context.Context, workerID string, stage constants.Stage) error
}

var ErrClaimInFlight = errors.New("a claim is already in flight for this lane")
