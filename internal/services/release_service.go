package services

import (
	"context"
	"log"

	"pph-connect.com/pph-connect/internal/constants"
)

// ReleaseService collapses every exit path into one idempotent call. Every
// caller may invoke it unconditionally: releasing a task that is missing,
// already released or already finalized is a no-op reported as false.
type ReleaseService struct {
	lanes map[constants.Stage]LaneOperations
}

func NewReleaseService(lanes map[constants.Stage]LaneOperations) *ReleaseService {
	return &ReleaseService{lanes: lanes}
}

func (s *ReleaseService) Release(ctx context.Context, taskID string, stage constants.Stage) (bool, error) {
	lane, ok := s.lanes[stage]
	if !ok {
		lane = s.lanes[constants.StageTranscription]
	}
	return lane.Release(ctx, taskID)
}

// ReleaseWithFallback releases one task and, if that single-unit release
// fails outright, falls back to releasing everything the worker holds in
// the lane rather than leaving an orphaned reservation behind.
func (s *ReleaseService) ReleaseWithFallback(ctx context.Context, taskID, workerID string, stage constants.Stage) (bool, error) {
	released, err := s.Release(ctx, taskID, stage)
	if err == nil {
		return released, nil
	}

	log.Printf("release of task %s failed (%v), falling back to bulk release for worker %s", taskID, err, workerID)

	count, bulkErr := s.ReleaseAllForWorker(ctx, workerID, stage)
	if bulkErr != nil {
		return false, bulkErr
	}
	return count > 0, nil
}

func (s *ReleaseService) ReleaseAllForWorker(ctx context.Context, workerID string, stage constants.Stage) (int, error) {
	lane, ok := s.lanes[stage]
	if !ok {
		lane = s.lanes[constants.StageTranscription]
	}
	return lane.ReleaseAllForWorker(ctx, workerID)
}

// ReleaseEverything releases the worker's claims in every lane. Used by
// session teardown and the manager-facing bulk endpoint.
func (s *ReleaseService) ReleaseEverything(ctx context.Context, workerID string) (int, error) {
	total := 0
	for _, lane := range s.lanes {
		count, err := lane.ReleaseAllForWorker(ctx, workerID)
		total += count
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
