package services

import (
	"context"
	"time"

	"pph-connect.com/pph-connect/internal/constants"
	model "pph-connect.com/pph-connect/internal/models"
	repository "pph-connect.com/pph-connect/internal/repositories"
)

// Claim is the reservation handle a worker holds for one unit of work in one
// lane. It is the only value callers pass around; nothing else refers to the
// claimed row.
type Claim struct {
	TaskID     string          `json:"task_id"`
	ProjectID  string          `json:"project_id"`
	QuestionID string          `json:"question_id"`
	WorkerID   string          `json:"worker_id"`
	Stage      constants.Stage `json:"stage"`
	RowIndex   int             `json:"row_index"`
	Data       map[string]any  `json:"data"`
	AssignedAt time.Time       `json:"assigned_at"`
	Resumed    bool            `json:"resumed"`
}

// LaneOperations is the claim/release surface each stage parameterizes its
// coordinator with. Both lanes satisfy the same contract: claims are atomic
// on the backing store and releases are idempotent.
type LaneOperations interface {
	Stage() constants.Stage

	ClaimNext(ctx context.Context, projectID, workerID string) (*Claim, error)

	// Resume returns the worker's existing claim in the project, if any.
	Resume(ctx context.Context, projectID, workerID string) (*Claim, error)

	// ResumeHeld returns the worker's existing claim in this lane across
	// all projects. A worker holds at most one claim per lane at a time.
	ResumeHeld(ctx context.Context, workerID string) (*Claim, error)

	Release(ctx context.Context, taskID string) (bool, error)

	ReleaseAllForWorker(ctx context.Context, workerID string) (int, error)

	CountClaimable(ctx context.Context, projectID, workerID string) (int, error)
}

type transcriptionLane struct {
	questions *repository.QuestionRepository
}

func NewTranscriptionLane(questions *repository.QuestionRepository) LaneOperations {
	return &transcriptionLane{questions: questions}
}

func (l *transcriptionLane) Stage() constants.Stage {
	return constants.StageTranscription
}

func (l *transcriptionLane) ClaimNext(ctx context.Context, projectID, workerID string) (*Claim, error) {
	task, question, err := l.questions.ClaimNext(ctx, projectID, workerID)
	if err != nil {
		return nil, err
	}
	return claimFromTask(task, question.ID), nil
}

func (l *transcriptionLane) Resume(ctx context.Context, projectID, workerID string) (*Claim, error) {
	task, question, err := l.questions.ResumeAssigned(ctx, projectID, workerID)
	if err != nil || task == nil {
		return nil, err
	}
	claim := claimFromTask(task, question.ID)
	claim.Resumed = true
	return claim, nil
}

func (l *transcriptionLane) ResumeHeld(ctx context.Context, workerID string) (*Claim, error) {
	task, question, err := l.questions.ResumeHeld(ctx, workerID)
	if err != nil || task == nil {
		return nil, err
	}
	claim := claimFromTask(task, question.ID)
	claim.Resumed = true
	return claim, nil
}

func (l *transcriptionLane) Release(ctx context.Context, taskID string) (bool, error) {
	return l.questions.Release(ctx, taskID)
}

func (l *transcriptionLane) ReleaseAllForWorker(ctx context.Context, workerID string) (int, error) {
	return l.questions.ReleaseAllForWorker(ctx, workerID)
}

func (l *transcriptionLane) CountClaimable(ctx context.Context, projectID, _ string) (int, error) {
	return l.questions.CountClaimable(ctx, projectID)
}

func claimFromTask(task *model.Task, questionID string) *Claim {
	return &Claim{
		TaskID:     task.ID,
		ProjectID:  task.ProjectID,
		QuestionID: questionID,
		WorkerID:   task.WorkerID,
		Stage:      task.Stage,
		RowIndex:   task.RowIndex,
		Data:       task.Data,
		AssignedAt: task.AssignedAt,
	}
}

type reviewLane struct {
	reviews *repository.ReviewRepository
}

func NewReviewLane(reviews *repository.ReviewRepository) LaneOperations {
	return &reviewLane{reviews: reviews}
}

func (l *reviewLane) Stage() constants.Stage {
	return constants.StageReview
}

func (l *reviewLane) ClaimNext(ctx context.Context, projectID, workerID string) (*Claim, error) {
	rt, err := l.reviews.ClaimNext(ctx, projectID, workerID)
	if err != nil {
		return nil, err
	}
	return claimFromReviewTask(rt), nil
}

func (l *reviewLane) Resume(ctx context.Context, projectID, workerID string) (*Claim, error) {
	rt, err := l.reviews.ResumeAssigned(ctx, projectID, workerID)
	if err != nil || rt == nil {
		return nil, err
	}
	claim := claimFromReviewTask(rt)
	claim.Resumed = true
	return claim, nil
}

func (l *reviewLane) ResumeHeld(ctx context.Context, workerID string) (*Claim, error) {
	rt, err := l.reviews.ResumeHeld(ctx, workerID)
	if err != nil || rt == nil {
		return nil, err
	}
	claim := claimFromReviewTask(rt)
	claim.Resumed = true
	return claim, nil
}

func (l *reviewLane) Release(ctx context.Context, taskID string) (bool, error) {
	return l.reviews.Release(ctx, taskID)
}

func (l *reviewLane) ReleaseAllForWorker(ctx context.Context, workerID string) (int, error) {
	return l.reviews.ReleaseAllForWorker(ctx, workerID)
}

func (l *reviewLane) CountClaimable(ctx context.Context, projectID, workerID string) (int, error) {
	return l.reviews.CountClaimable(ctx, projectID, workerID)
}

func claimFromReviewTask(rt *model.ReviewTask) *Claim {
	claim := &Claim{
		TaskID:     rt.ID,
		ProjectID:  rt.ProjectID,
		QuestionID: rt.QuestionID,
		Stage:      constants.StageReview,
		RowIndex:   rt.RowIndex,
	}
	if rt.AssignedTo != nil {
		claim.WorkerID = *rt.AssignedTo
	}
	if rt.AssignedAt != nil {
		claim.AssignedAt = *rt.AssignedAt
	}
	return claim
}
