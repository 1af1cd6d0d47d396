package services

import (
	"context"
	"fmt"

	model "pph-connect.com/pph-connect/internal/models"
	repository "pph-connect.com/pph-connect/internal/repositories"
)

// EligibilitySnapshot is a fresh read of everything gating a claim for one
// (worker, project) pair. It is captured immediately before each decision
// and never persisted.
type EligibilitySnapshot struct {
	AssignmentActive  bool
	TrainingRequired  bool
	TrainingCompleted bool
	MinTrustRating    *float64
	TrustRating       *float64
	Suspended         bool
}

type EligibilityResult struct {
	Eligible          bool     `json:"eligible"`
	Reasons           []string `json:"reasons"`
	TrainingRequired  bool     `json:"training_required"`
	TrainingCompleted bool     `json:"training_completed"`
}

type EligibilityGate struct {
	assignments *repository.AssignmentRepository
}

func NewEligibilityGate(assignments *repository.AssignmentRepository) *EligibilityGate {
	return &EligibilityGate{assignments: assignments}
}

// IsEligible captures a snapshot for the pair and evaluates it. Failing
// checks contribute reasons instead of errors; only backend failures during
// the snapshot read surface as errors.
func (g *EligibilityGate) IsEligible(
	ctx context.Context,
	assignment model.ProjectAssignment,
	project model.Project,
) (EligibilityResult, error) {
	snapshot, err := g.Snapshot(ctx, assignment, project)
	if err != nil {
		return EligibilityResult{}, err
	}
	return Evaluate(snapshot), nil
}

func (g *EligibilityGate) Snapshot(
	ctx context.Context,
	assignment model.ProjectAssignment,
	project model.Project,
) (EligibilitySnapshot, error) {
	snapshot := EligibilitySnapshot{
		AssignmentActive: assignment.Active,
		TrainingRequired: project.TrainingRequired && project.TrainingModuleID != nil,
		MinTrustRating:   project.MinTrustRating,
	}

	if snapshot.TrainingRequired {
		completed, err := g.assignments.HasCompletedTraining(ctx, assignment.WorkerID, project.ID, *project.TrainingModuleID)
		if err != nil {
			return EligibilitySnapshot{}, err
		}
		snapshot.TrainingCompleted = completed
	} else {
		snapshot.TrainingCompleted = true
	}

	quality, err := g.assignments.FindWorkerQuality(ctx, assignment.WorkerID, project.ID)
	if err != nil {
		return EligibilitySnapshot{}, err
	}
	if quality != nil {
		snapshot.TrustRating = quality.TrustRating
		snapshot.Suspended = quality.Suspended
	}

	return snapshot, nil
}

// Evaluate is the pure gate: side-effect-free given its snapshot.
func Evaluate(s EligibilitySnapshot) EligibilityResult {
	result := EligibilityResult{
		TrainingRequired:  s.TrainingRequired,
		TrainingCompleted: s.TrainingCompleted,
	}

	if !s.AssignmentActive {
		result.Reasons = append(result.Reasons, "project assignment is not active")
	}
	if s.Suspended {
		result.Reasons = append(result.Reasons, "worker is suspended for this project")
	}
	if s.TrainingRequired && !s.TrainingCompleted {
		result.Reasons = append(result.Reasons, "required training is not completed")
	}
	if s.MinTrustRating != nil {
		// No measurement counts as not meeting a configured minimum.
		if s.TrustRating == nil {
			result.Reasons = append(result.Reasons, "no quality measurement recorded yet")
		} else if *s.TrustRating < *s.MinTrustRating {
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("quality %.2f is below the project minimum %.2f", *s.TrustRating, *s.MinTrustRating))
		}
	}

	result.Eligible = len(result.Reasons) == 0
	return result
}
