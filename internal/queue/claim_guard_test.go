package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"pph-connect.com/pph-connect/internal/constants"
)

func TestLocalClaimGuard_SecondAcquireConflicts(t *testing.T) {
	guard := NewLocalClaimGuard()
	ctx := context.Background()

	if err := guard.Acquire(ctx, "worker-a", constants.StageTranscription, time.Minute); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	err := guard.Acquire(ctx, "worker-a", constants.StageTranscription, time.Minute)
	if !errors.Is(err, ErrClaimInFlight) {
		t.Errorf("expected ErrClaimInFlight, got %v", err)
	}
}

func TestLocalClaimGuard_LanesAreIndependent(t *testing.T) {
	guard := NewLocalClaimGuard()
	ctx := context.Background()

	if err := guard.Acquire(ctx, "worker-a", constants.StageTranscription, time.Minute); err != nil {
		t.Fatalf("transcription acquire failed: %v", err)
	}
	if err := guard.Acquire(ctx, "worker-a", constants.StageReview, time.Minute); err != nil {
		t.Errorf("review lane should not be blocked by the transcription lane: %v", err)
	}
	if err := guard.Acquire(ctx, "worker-b", constants.StageTranscription, time.Minute); err != nil {
		t.Errorf("another worker should not be blocked: %v", err)
	}
}

func TestLocalClaimGuard_ReleaseReopens(t *testing.T) {
	guard := NewLocalClaimGuard()
	ctx := context.Background()

	if err := guard.Acquire(ctx, "worker-a", constants.StageTranscription, time.Minute); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := guard.Release(ctx, "worker-a", constants.StageTranscription); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := guard.Acquire(ctx, "worker-a", constants.StageTranscription, time.Minute); err != nil {
		t.Errorf("acquire after release failed: %v", err)
	}
}

func TestLocalClaimGuard_TTLExpires(t *testing.T) {
	guard := NewLocalClaimGuard()
	ctx := context.Background()

	if err := guard.Acquire(ctx, "worker-a", constants.StageTranscription, 10*time.Millisecond); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if err := guard.Acquire(ctx, "worker-a", constants.StageTranscription, time.Minute); err != nil {
		t.Errorf("acquire after TTL expiry failed: %v", err)
	}
}
