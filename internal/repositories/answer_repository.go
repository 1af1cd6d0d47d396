package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pph-connect.com/pph-connect/internal/constants"
	model "pph-connect.com/pph-connect/internal/models"
)

var ErrTaskNotAssigned = errors.New("task is not assigned to this worker")

type AnswerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

type SubmissionRecord struct {
	AnswerID        string
	AhtSeconds      int
	IsFullyAnswered bool
	Answer          *model.Answer
	RowIndex        int
}

// SubmitCompletion finalizes an assigned task in one transaction: the answer
// row is written, replication counters advance, and the question leaves the
// assigned state. Completion and release are mutually exclusive terminal
// transitions, so no release happens here. A skipped question is terminal
// and is never offered again; a completed one returns to pending while it
// still needs more replications.
func (r *AnswerRepository) SubmitCompletion(
	ctx context.Context,
	taskID string,
	workerID string,
	answerPayload map[string]any,
	startedAt time.Time,
	completedAt time.Time,
	skipped bool,
	skipReason *string,
) (*SubmissionRecord, error) {
	record := &SubmissionRecord{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		err := tx.Where("id = ? AND worker_id = ? AND status = ?", taskID, workerID, constants.TaskAssigned).
			First(&task).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotAssigned
		}
		if err != nil {
			return err
		}

		var question model.Question
		if err := tx.First(&question, "id = ?", task.QuestionID).Error; err != nil {
			return err
		}

		ahtSeconds := int(completedAt.Sub(startedAt) / time.Second)
		if ahtSeconds < 0 {
			ahtSeconds = 0
		}

		var answerCount int64
		if err := tx.Model(&model.Answer{}).Where("question_id = ?", question.ID).Count(&answerCount).Error; err != nil {
			return err
		}

		answer := &model.Answer{
			ID:             uuid.NewString(),
			QuestionID:     question.ID,
			ProjectID:      task.ProjectID,
			AnswerID:       fmt.Sprintf("%s-A%d", question.QuestionID, answerCount+1),
			WorkerID:       workerID,
			AnswerData:     answerPayload,
			StartTime:      startedAt.UTC(),
			CompletionTime: completedAt.UTC(),
			AhtSeconds:     ahtSeconds,
			Skipped:        skipped,
			SkipReason:     skipReason,
		}
		if err := tx.Create(answer).Error; err != nil {
			return err
		}

		completedReplications := question.CompletedReplications + 1
		fullyAnswered := completedReplications >= question.RequiredReplications

		nextStatus := constants.StatusPending
		switch {
		case skipped:
			nextStatus = constants.StatusSkipped
		case fullyAnswered:
			nextStatus = constants.StatusCompleted
		}

		res := tx.Model(&model.Question{}).
			Where("id = ? AND status = ? AND assigned_to = ?", question.ID, constants.StatusAssigned, workerID).
			Updates(map[string]interface{}{
				"status":                 nextStatus,
				"assigned_to":            nil,
				"assigned_at":            nil,
				"completed_replications": completedReplications,
				"is_answered":            fullyAnswered || skipped,
				"version":                gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOptimisticLock
		}

		taskStatus := constants.TaskCompleted
		if skipped {
			taskStatus = constants.TaskSkipped
		}
		completionTime := completedAt.UTC()
		res = tx.Model(&model.Task{}).
			Where("id = ? AND status = ?", task.ID, constants.TaskAssigned).
			Updates(map[string]interface{}{
				"status":       taskStatus,
				"completed_at": completionTime,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOptimisticLock
		}

		record.AnswerID = answer.AnswerID
		record.AhtSeconds = ahtSeconds
		record.IsFullyAnswered = fullyAnswered
		record.Answer = answer
		record.RowIndex = task.RowIndex
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *AnswerRepository) CountAnswers(ctx context.Context, questionID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Answer{}).
		Where("question_id = ?", questionID).
		Count(&count).Error
	return int(count), err
}

func (r *AnswerRepository) ListByWorker(ctx context.Context, workerID string) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Order("created_at desc").
		Find(&answers).Error
	return answers, err
}
