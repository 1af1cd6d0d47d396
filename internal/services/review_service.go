package services

import (
	"context"
	"errors"

	apperrors "pph-connect.com/pph-connect/internal/errors"
	model "pph-connect.com/pph-connect/internal/models"
	repository "pph-connect.com/pph-connect/internal/repositories"
)

type SubmitReviewInput struct {
	ReviewTaskID  string
	ReviewerID    string
	RatingOverall int
	HighlightTags []string
	Feedback      *string
	InternalNotes *string
	ReviewPayload map[string]any
}

// ReviewService finalizes review-lane tasks. Claiming and releasing review
// work flows through the shared lane machinery; only the submission shape
// differs from the transcription lane.
type ReviewService struct {
	reviews *repository.ReviewRepository
}

func NewReviewService(reviews *repository.ReviewRepository) *ReviewService {
	return &ReviewService{reviews: reviews}
}

func (s *ReviewService) SubmitReview(ctx context.Context, input SubmitReviewInput) (*model.Review, error) {
	if input.RatingOverall < 1 {
		return nil, apperrors.ErrInvalidRating
	}

	review := &model.Review{
		ReviewTaskID:  input.ReviewTaskID,
		ReviewerID:    input.ReviewerID,
		RatingOverall: input.RatingOverall,
		HighlightTags: input.HighlightTags,
		Feedback:      input.Feedback,
		InternalNotes: input.InternalNotes,
		ReviewPayload: input.ReviewPayload,
	}

	submitted, err := s.reviews.SubmitReview(ctx, review)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotAssigned) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, apperrors.ErrSubmissionBackend
	}
	return submitted, nil
}

// EnqueueForReview creates a pending review task for a finished answer, so
// the review lane has work to distribute.
func (s *ReviewService) EnqueueForReview(ctx context.Context, answer *model.Answer, rowIndex int) (*model.ReviewTask, error) {
	rt := &model.ReviewTask{
		ProjectID:     answer.ProjectID,
		QuestionID:    answer.QuestionID,
		AnswerID:      answer.ID,
		TranscriberID: answer.WorkerID,
		RowIndex:      rowIndex,
	}
	if err := s.reviews.CreateReviewTask(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}
