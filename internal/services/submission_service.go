package services

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	apperrors "pph-connect.com/pph-connect/internal/errors"
	repository "pph-connect.com/pph-connect/internal/repositories"
)

type SubmissionResult struct {
	AnswerID        string `json:"answer_id"`
	AhtSeconds      int    `json:"aht_seconds"`
	IsFullyAnswered bool   `json:"is_fully_answered"`
	Skipped         bool   `json:"skipped"`
}

// SubmissionService finalizes tasks. Completion and release are mutually
// exclusive terminal transitions: a successful submission ends the
// reservation by itself and no release call follows it. Completed answers
// feed the review lane; skipped ones never do.
type SubmissionService struct {
	answers     *repository.AnswerRepository
	assignments *repository.AssignmentRepository
	reviews     *ReviewService
}

func NewSubmissionService(
	answers *repository.AnswerRepository,
	assignments *repository.AssignmentRepository,
	reviews *ReviewService,
) *SubmissionService {
	return &SubmissionService{
		answers:     answers,
		assignments: assignments,
		reviews:     reviews,
	}
}

func (s *SubmissionService) Complete(
	ctx context.Context,
	taskID, workerID string,
	answerPayload map[string]any,
	startedAt time.Time,
) (*SubmissionResult, error) {
	record, err := s.answers.SubmitCompletion(ctx, taskID, workerID, answerPayload, startedAt, time.Now().UTC(), false, nil)
	if err != nil {
		return nil, mapSubmissionError(err)
	}

	// The answer is committed; a failed enqueue must not undo the
	// submission, it only delays the review.
	if _, enqErr := s.reviews.EnqueueForReview(ctx, record.Answer, record.RowIndex); enqErr != nil {
		log.Printf("review enqueue failed for answer %s: %v", record.AnswerID, enqErr)
	}

	return &SubmissionResult{
		AnswerID:        record.AnswerID,
		AhtSeconds:      record.AhtSeconds,
		IsFullyAnswered: record.IsFullyAnswered,
	}, nil
}

// Skip finalizes the task as skipped. The reason must come from the
// project's configured list when one exists; submitting without it is a
// validation error, never a silent skip.
func (s *SubmissionService) Skip(
	ctx context.Context,
	taskID, workerID, projectID, reason string,
	startedAt time.Time,
) (*SubmissionResult, error) {
	project, err := s.assignments.FindProject(ctx, projectID)
	if err != nil {
		return nil, mapSubmissionError(err)
	}

	if !project.EnableSkipButton {
		return nil, apperrors.ErrSkipDisabled
	}
	if len(project.SkipReasons) > 0 {
		if reason == "" {
			return nil, apperrors.ErrSkipReasonRequired
		}
		if !containsReason(project.SkipReasons, reason) {
			return nil, apperrors.ErrInvalidSkipReason
		}
	}

	payload := map[string]any{"skipped": true}
	var skipReason *string
	if reason != "" {
		payload["skip_reason"] = reason
		skipReason = &reason
	}

	record, err := s.answers.SubmitCompletion(ctx, taskID, workerID, payload, startedAt, time.Now().UTC(), true, skipReason)
	if err != nil {
		return nil, mapSubmissionError(err)
	}

	return &SubmissionResult{
		AnswerID:        record.AnswerID,
		AhtSeconds:      record.AhtSeconds,
		IsFullyAnswered: record.IsFullyAnswered,
		Skipped:         true,
	}, nil
}

func containsReason(reasons []string, reason string) bool {
	for _, r := range reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// mapSubmissionError keeps the taxonomy: a task that is not assigned to the
// worker is a not-found, anything else is a backend failure that leaves the
// reservation held so the worker retries explicitly.
func mapSubmissionError(err error) error {
	switch {
	case errors.Is(err, repository.ErrTaskNotAssigned),
		errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrTaskNotFound
	case errors.Is(err, repository.ErrOptimisticLock):
		return apperrors.ErrClaimConflict
	default:
		return apperrors.ErrSubmissionBackend
	}
}
