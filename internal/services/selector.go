package services

import (
	"context"
	"log"
	"sort"

	"pph-connect.com/pph-connect/internal/constants"
	model "pph-connect.com/pph-connect/internal/models"
	repository "pph-connect.com/pph-connect/internal/repositories"
)

type SelectionReason string

const (
	ReasonAvailable        SelectionReason = "available"
	ReasonTrainingRequired SelectionReason = "training_required"
)

// SelectedProject carries everything the claim path needs downstream so no
// second round-trip is required before claiming.
type SelectedProject struct {
	Project        model.Project           `json:"project"`
	Assignment     model.ProjectAssignment `json:"assignment"`
	AvailableCount int                     `json:"available_count"`
	Eligibility    EligibilityResult       `json:"eligibility"`
	Reason         SelectionReason         `json:"reason"`
}

// ProjectSelector steers a worker to the single project to pull work from
// next. It is re-invoked after every claim, release, submission and skip.
type ProjectSelector struct {
	assignments *repository.AssignmentRepository
	gate        *EligibilityGate
	lanes       map[constants.Stage]LaneOperations
}

func NewProjectSelector(
	assignments *repository.AssignmentRepository,
	gate *EligibilityGate,
	lanes map[constants.Stage]LaneOperations,
) *ProjectSelector {
	return &ProjectSelector{
		assignments: assignments,
		gate:        gate,
		lanes:       lanes,
	}
}

// SelectNext picks the active, eligible project with the lowest priority
// number for the stage that still has claimable units. A nil result means
// no work is available anywhere; that is a normal state, not an error.
func (s *ProjectSelector) SelectNext(ctx context.Context, workerID string, stage constants.Stage) (*SelectedProject, error) {
	lane, ok := s.lanes[stage]
	if !ok {
		lane = s.lanes[constants.StageTranscription]
	}

	assignments, err := s.assignments.ListForWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	candidates := filterByStage(assignments, stage)
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return stagePriority(candidates[i], stage) < stagePriority(candidates[j], stage)
	})

	projectIDs := make([]string, 0, len(candidates))
	for _, a := range candidates {
		projectIDs = append(projectIDs, a.ProjectID)
	}
	projects, err := s.assignments.ListProjects(ctx, projectIDs)
	if err != nil {
		return nil, err
	}
	projectsByID := make(map[string]model.Project, len(projects))
	for _, p := range projects {
		projectsByID[p.ID] = p
	}

	for _, assignment := range candidates {
		project, ok := projectsByID[assignment.ProjectID]
		if !ok || project.Status != constants.ProjectActive {
			continue
		}

		eligibility, err := s.gate.IsEligible(ctx, assignment, project)
		if err != nil {
			log.Printf("selector: eligibility snapshot failed for project %s: %v", project.ID, err)
			continue
		}
		if !eligibility.Eligible && !trainingIsOnlyBlocker(eligibility) {
			continue
		}

		availableCount, err := lane.CountClaimable(ctx, project.ID, workerID)
		if err != nil {
			log.Printf("selector: claimable count failed for project %s: %v", project.ID, err)
			continue
		}

		// A held reservation keeps the project selected even with nothing
		// else claimable, so a resumed tab lands back on its own unit.
		hasReservation := false
		if availableCount == 0 {
			held, err := lane.Resume(ctx, project.ID, workerID)
			if err == nil && held != nil {
				hasReservation = true
			}
		}

		if availableCount == 0 && !hasReservation {
			continue
		}

		selected := &SelectedProject{
			Project:        project,
			Assignment:     assignment,
			AvailableCount: availableCount,
			Eligibility:    eligibility,
			Reason:         ReasonAvailable,
		}
		if eligibility.TrainingRequired && !eligibility.TrainingCompleted {
			selected.Reason = ReasonTrainingRequired
		}
		return selected, nil
	}

	return nil, nil
}

func filterByStage(assignments []model.ProjectAssignment, stage constants.Stage) []model.ProjectAssignment {
	out := make([]model.ProjectAssignment, 0, len(assignments))
	for _, a := range assignments {
		if stage == constants.StageReview && a.CanReview {
			out = append(out, a)
		}
		if stage == constants.StageTranscription && a.CanTranscribe {
			out = append(out, a)
		}
	}
	return out
}

func stagePriority(a model.ProjectAssignment, stage constants.Stage) int {
	if stage == constants.StageReview {
		return a.PriorityReview
	}
	return a.PriorityTranscribe
}

// trainingIsOnlyBlocker lets a project with outstanding training still be
// selected, so the caller can route the worker to the training module. The
// claim path itself refuses until training completes.
func trainingIsOnlyBlocker(r EligibilityResult) bool {
	return r.TrainingRequired && !r.TrainingCompleted && len(r.Reasons) == 1
}
