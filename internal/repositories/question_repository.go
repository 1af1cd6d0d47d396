package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pph-connect.com/pph-connect/internal/constants"
	model "pph-connect.com/pph-connect/internal/models"
)

var ErrOptimisticLock = errors.New("optimistic locking conflict")
var ErrNoWorkAvailable = errors.New("no claimable work in project")

// claimCandidateBatch bounds how many pending rows a single claim attempt
// inspects before giving up with ErrNoWorkAvailable.
const claimCandidateBatch = 10

type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Status == "" {
		q.Status = constants.StatusPending
	}
	if q.RequiredReplications <= 0 {
		q.RequiredReplications = 1
	}
	if q.Version == 0 {
		q.Version = 1
	}
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *QuestionRepository) FindQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	var q model.Question
	if err := r.db.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) FindTaskByID(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// FindAssignedTask resolves the task row for a (question, worker) pair that
// is still assigned. Used by the claim coordinator's post-claim consistency
// check when an upstream response carries a mismatched task identifier.
func (r *QuestionRepository) FindAssignedTask(ctx context.Context, questionID, workerID string) (*model.Task, error) {
	var t model.Task
	err := r.db.WithContext(ctx).
		Where("question_id = ? AND worker_id = ? AND status = ?", questionID, workerID, constants.TaskAssigned).
		Order("assigned_at desc").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ResumeAssigned returns the worker's existing assigned task in the project,
// if any, so a claim never hands out a second unit in the same lane.
func (r *QuestionRepository) ResumeAssigned(ctx context.Context, projectID, workerID string) (*model.Task, *model.Question, error) {
	var t model.Task
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND worker_id = ? AND stage = ? AND status = ?",
			projectID, workerID, constants.StageTranscription, constants.TaskAssigned).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	q, err := r.FindQuestionByID(ctx, t.QuestionID)
	if err != nil {
		return nil, nil, err
	}
	return &t, q, nil
}

// ResumeHeld returns the worker's assigned task in this lane regardless of
// project. A worker holds at most one task per lane, so any claim attempt
// while one is held must resume it rather than assign a second unit.
func (r *QuestionRepository) ResumeHeld(ctx context.Context, workerID string) (*model.Task, *model.Question, error) {
	var t model.Task
	err := r.db.WithContext(ctx).
		Where("worker_id = ? AND stage = ? AND status = ?",
			workerID, constants.StageTranscription, constants.TaskAssigned).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	q, err := r.FindQuestionByID(ctx, t.QuestionID)
	if err != nil {
		return nil, nil, err
	}
	return &t, q, nil
}

// ClaimNext atomically assigns the lowest-index pending question of the
// project to the worker and creates its task row. The status transition and
// the version check happen in one conditional UPDATE inside one transaction,
// so two concurrent claims can never select the same question. Candidates
// that lose the version race are skipped in row_index order.
func (r *QuestionRepository) ClaimNext(ctx context.Context, projectID, workerID string) (*model.Task, *model.Question, error) {
	var claimedTask *model.Task
	var claimedQuestion *model.Question

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []model.Question
		err := tx.
			Where("project_id = ? AND status = ? AND completed_replications < required_replications",
				projectID, constants.StatusPending).
			Order("row_index asc").
			Limit(claimCandidateBatch).
			Find(&candidates).Error
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return ErrNoWorkAvailable
		}

		now := time.Now().UTC()

		for i := range candidates {
			q := candidates[i]

			res := tx.Model(&model.Question{}).
				Where("id = ? AND version = ? AND status = ?", q.ID, q.Version, constants.StatusPending).
				Updates(map[string]interface{}{
					"status":      constants.StatusAssigned,
					"assigned_to": workerID,
					"assigned_at": now,
					"version":     gorm.Expr("version + 1"),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Lost the race for this row, try the next candidate.
				continue
			}

			q.Status = constants.StatusAssigned
			q.AssignedTo = &workerID
			q.AssignedAt = &now
			q.Version++

			task := &model.Task{
				ID:         uuid.NewString(),
				ProjectID:  projectID,
				QuestionID: q.ID,
				WorkerID:   workerID,
				Stage:      constants.StageTranscription,
				RowIndex:   q.RowIndex,
				Data:       q.Data,
				Status:     constants.TaskAssigned,
				AssignedAt: now,
				CreatedAt:  now,
			}
			if err := tx.Create(task).Error; err != nil {
				return err
			}

			claimedTask = task
			claimedQuestion = &q
			return nil
		}

		return ErrNoWorkAvailable
	})
	if err != nil {
		return nil, nil, err
	}

	return claimedTask, claimedQuestion, nil
}

// Release returns an assigned question to pending and deletes its task row.
// Idempotent: a task that is missing, already released or already finalized
// yields (false, nil) with no state change.
func (r *QuestionRepository) Release(ctx context.Context, taskID string) (bool, error) {
	released := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t model.Task
		err := tx.Where("id = ? AND status = ?", taskID, constants.TaskAssigned).First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		res := tx.Model(&model.Question{}).
			Where("id = ? AND status = ? AND assigned_to = ?", t.QuestionID, constants.StatusAssigned, t.WorkerID).
			Updates(map[string]interface{}{
				"status":      constants.StatusPending,
				"assigned_to": nil,
				"assigned_at": nil,
				"version":     gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}

		if err := tx.Delete(&model.Task{}, "id = ?", t.ID).Error; err != nil {
			return err
		}

		released = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	return released, nil
}

// ReleaseAllForWorker is the bulk fallback: it releases every transcription
// task the worker currently holds and reports how many were returned.
func (r *QuestionRepository) ReleaseAllForWorker(ctx context.Context, workerID string) (int, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("worker_id = ? AND stage = ? AND status = ?", workerID, constants.StageTranscription, constants.TaskAssigned).
		Find(&tasks).Error
	if err != nil {
		return 0, err
	}

	count := 0
	for _, t := range tasks {
		ok, err := r.Release(ctx, t.ID)
		if err != nil {
			return count, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// CountClaimable reports how many units of the project are open to a claim:
// pending status with replication capacity left.
func (r *QuestionRepository) CountClaimable(ctx context.Context, projectID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Question{}).
		Where("project_id = ? AND status = ? AND completed_replications < required_replications",
			projectID, constants.StatusPending).
		Count(&count).Error
	return int(count), err
}

// ListAssignedTasks returns every in-flight transcription task, for the
// overdue-reservation sweep.
func (r *QuestionRepository) ListAssignedTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("stage = ? AND status = ?", constants.StageTranscription, constants.TaskAssigned).
		Order("assigned_at asc").
		Find(&tasks).Error
	return tasks, err
}
