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

// ReviewRepository owns the review lane's claim lifecycle. Review tasks are
// their own claim records: the row id doubles as the task identifier, so the
// lane matches the transcription lane's operations without sharing its pool.
type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) CreateReviewTask(ctx context.Context, rt *model.ReviewTask) error {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	if rt.Status == "" {
		rt.Status = constants.StatusPending
	}
	if rt.Version == 0 {
		rt.Version = 1
	}
	return r.db.WithContext(ctx).Create(rt).Error
}

func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*model.ReviewTask, error) {
	var rt model.ReviewTask
	if err := r.db.WithContext(ctx).First(&rt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *ReviewRepository) ResumeAssigned(ctx context.Context, projectID, workerID string) (*model.ReviewTask, error) {
	var rt model.ReviewTask
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND assigned_to = ? AND status = ?", projectID, workerID, constants.StatusAssigned).
		First(&rt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// ResumeHeld returns the reviewer's assigned review task in any project.
// Mirrors the transcription lane: one held task per lane at a time.
func (r *ReviewRepository) ResumeHeld(ctx context.Context, workerID string) (*model.ReviewTask, error) {
	var rt model.ReviewTask
	err := r.db.WithContext(ctx).
		Where("assigned_to = ? AND status = ?", workerID, constants.StatusAssigned).
		First(&rt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// ClaimNext assigns the lowest-index pending review task to the reviewer
// with the same conditional-update exclusivity as the transcription claim.
// A reviewer never receives their own transcription to review.
func (r *ReviewRepository) ClaimNext(ctx context.Context, projectID, workerID string) (*model.ReviewTask, error) {
	var claimed *model.ReviewTask

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []model.ReviewTask
		err := tx.
			Where("project_id = ? AND status = ? AND transcriber_id <> ?", projectID, constants.StatusPending, workerID).
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
			rt := candidates[i]

			res := tx.Model(&model.ReviewTask{}).
				Where("id = ? AND version = ? AND status = ?", rt.ID, rt.Version, constants.StatusPending).
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
				continue
			}

			rt.Status = constants.StatusAssigned
			rt.AssignedTo = &workerID
			rt.AssignedAt = &now
			rt.Version++
			claimed = &rt
			return nil
		}

		return ErrNoWorkAvailable
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

// Release returns an assigned review task to pending. Idempotent the same
// way as the transcription release.
func (r *ReviewRepository) Release(ctx context.Context, reviewTaskID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.ReviewTask{}).
		Where("id = ? AND status = ?", reviewTaskID, constants.StatusAssigned).
		Updates(map[string]interface{}{
			"status":      constants.StatusPending,
			"assigned_to": nil,
			"assigned_at": nil,
			"version":     gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ReviewRepository) ReleaseAllForWorker(ctx context.Context, workerID string) (int, error) {
	var tasks []model.ReviewTask
	err := r.db.WithContext(ctx).
		Where("assigned_to = ? AND status = ?", workerID, constants.StatusAssigned).
		Find(&tasks).Error
	if err != nil {
		return 0, err
	}

	count := 0
	for _, rt := range tasks {
		ok, err := r.Release(ctx, rt.ID)
		if err != nil {
			return count, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

func (r *ReviewRepository) CountClaimable(ctx context.Context, projectID, workerID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ReviewTask{}).
		Where("project_id = ? AND status = ? AND transcriber_id <> ?", projectID, constants.StatusPending, workerID).
		Count(&count).Error
	return int(count), err
}

// SubmitReview finalizes an assigned review task and writes the review row
// in one transaction.
func (r *ReviewRepository) SubmitReview(ctx context.Context, review *model.Review) (*model.Review, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ReviewTask{}).
			Where("id = ? AND status = ? AND assigned_to = ?", review.ReviewTaskID, constants.StatusAssigned, review.ReviewerID).
			Updates(map[string]interface{}{
				"status":      constants.StatusCompleted,
				"assigned_to": nil,
				"assigned_at": nil,
				"version":     gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTaskNotAssigned
		}

		if review.ID == "" {
			review.ID = uuid.NewString()
		}
		return tx.Create(review).Error
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// ListAssignedTasks returns every in-flight review task, for the sweep.
func (r *ReviewRepository) ListAssignedTasks(ctx context.Context) ([]model.ReviewTask, error) {
	var tasks []model.ReviewTask
	err := r.db.WithContext(ctx).
		Where("status = ?", constants.StatusAssigned).
		Order("assigned_at asc").
		Find(&tasks).Error
	return tasks, err
}
