package services

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"pph-connect.com/pph-connect/internal/constants"
	apperrors "pph-connect.com/pph-connect/internal/errors"
	"pph-connect.com/pph-connect/internal/queue"
	repository "pph-connect.com/pph-connect/internal/repositories"
)

// claimGuardTTL caps how long a lane lock can outlive its round-trip if the
// client dies mid-claim.
const claimGuardTTL = 30 * time.Second

// ClaimService is the claim coordinator for one lane. Exclusivity lives in
// the repository's atomic step; the coordinator adds the in-flight guard,
// the resume path and the post-claim consistency check on top of it.
type ClaimService struct {
	lane      LaneOperations
	questions *repository.QuestionRepository
	guard     queue.ClaimGuard
}

func NewClaimService(lane LaneOperations, questions *repository.QuestionRepository, guard queue.ClaimGuard) *ClaimService {
	return &ClaimService{
		lane:      lane,
		questions: questions,
		guard:     guard,
	}
}

// ClaimNext reserves exactly one unit for the worker, or returns
// repository.ErrNoWorkAvailable when the project has nothing claimable.
// A worker already holding a claim in this lane resumes it instead of
// receiving a second unit, whichever project it belongs to.
func (s *ClaimService) ClaimNext(ctx context.Context, projectID, workerID string) (*Claim, error) {
	if err := s.guard.Acquire(ctx, workerID, s.lane.Stage(), claimGuardTTL); err != nil {
		if errors.Is(err, queue.ErrClaimInFlight) {
			return nil, apperrors.ErrClaimConflict
		}
		return nil, err
	}
	defer func() {
		if err := s.guard.Release(context.WithoutCancel(ctx), workerID, s.lane.Stage()); err != nil {
			log.Printf("claim guard release failed for worker %s: %v", workerID, err)
		}
	}()

	// Lane-wide, not project-wide: a worker holds at most one claim per
	// lane, so a held unit in any project is resumed before a new claim is
	// considered.
	existing, err := s.lane.ResumeHeld(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	claim, err := s.lane.ClaimNext(ctx, projectID, workerID)
	if err != nil {
		return nil, err
	}

	return s.verifyClaim(ctx, claim)
}

// verifyClaim is the post-claim consistency check: the returned task id must
// resolve to a persisted row before anyone trusts it. When it does not, the
// task is re-resolved by (question, worker, assigned) and the corrected id
// is used. Identifier mismatch is recoverable, not fatal.
func (s *ClaimService) verifyClaim(ctx context.Context, claim *Claim) (*Claim, error) {
	if claim.Stage != constants.StageTranscription {
		// Review claims are their own rows; there is no correlated id to drift.
		return claim, nil
	}

	_, err := s.questions.FindTaskByID(ctx, claim.TaskID)
	if err == nil {
		return claim, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	log.Printf("claimed task %s did not resolve, re-resolving by question %s", claim.TaskID, claim.QuestionID)

	actual, err := s.questions.FindAssignedTask(ctx, claim.QuestionID, claim.WorkerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, err
	}

	corrected := *claim
	corrected.TaskID = actual.ID
	corrected.ProjectID = actual.ProjectID
	return &corrected, nil
}
