package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	model "pph-connect.com/pph-connect/internal/models"
)

type AssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListForWorker returns the worker's project assignments. Assignments are
// managed by external tooling and read-only here.
func (r *AssignmentRepository) ListForWorker(ctx context.Context, workerID string) ([]model.ProjectAssignment, error) {
	var assignments []model.ProjectAssignment
	err := r.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Find(&assignments).Error
	return assignments, err
}

func (r *AssignmentRepository) FindProject(ctx context.Context, projectID string) (*model.Project, error) {
	var p model.Project
	if err := r.db.WithContext(ctx).First(&p, "id = ?", projectID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *AssignmentRepository) ListProjects(ctx context.Context, projectIDs []string) ([]model.Project, error) {
	var projects []model.Project
	if len(projectIDs) == 0 {
		return projects, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", projectIDs).
		Find(&projects).Error
	return projects, err
}

// HasCompletedTraining reports whether the worker finished the project's
// training module.
func (r *AssignmentRepository) HasCompletedTraining(ctx context.Context, workerID, projectID, moduleID string) (bool, error) {
	var tc model.TrainingCompletion
	err := r.db.WithContext(ctx).
		Where("worker_id = ? AND project_id = ? AND training_module_id = ? AND completed_at IS NOT NULL",
			workerID, projectID, moduleID).
		First(&tc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindWorkerQuality returns the most recent quality measurement for the
// (worker, project) pair, or nil when none has been recorded.
func (r *AssignmentRepository) FindWorkerQuality(ctx context.Context, workerID, projectID string) (*model.WorkerQuality, error) {
	var wq model.WorkerQuality
	err := r.db.WithContext(ctx).
		Where("worker_id = ? AND project_id = ?", workerID, projectID).
		Order("updated_at desc").
		First(&wq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wq, nil
}
