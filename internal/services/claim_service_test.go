package services

import (
	"context"
	"errors"
	"testing"

	"pph-connect.com/pph-connect/internal/constants"
	model "pph-connect.com/pph-connect/internal/models"
	repository "pph-connect.com/pph-connect/internal/repositories"
)

func TestClaimService_ClaimAndResume(t *testing.T) {
	env := newTestEnv(t)
	project := env.seedProject(t, model.Project{ID: "p1", Name: "Transcripts"})
	env.seedQuestions(t, project.ID, 2, 1)

	ctx := context.Background()
	svc := env.claims[constants.StageTranscription]

	claim, err := svc.ClaimNext(ctx, project.ID, "worker-a")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claim.Resumed {
		t.Error("a fresh claim must not be marked resumed")
	}

	// Claiming again in the same lane and project resumes the held unit
	// instead of handing out a second one.
	again, err := svc.ClaimNext(ctx, project.ID, "worker-a")
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if again.TaskID != claim.TaskID {
		t.Errorf("second claim returned task %s, want the held %s", again.TaskID, claim.TaskID)
	}
	if !again.Resumed {
		t.Error("the held claim should be marked resumed")
	}

	count, _ := env.questions.CountClaimable(ctx, project.ID)
	if count != 1 {
		t.Errorf("claimable count %d, want 1", count)
	}
}

func TestClaimService_OneClaimPerLaneAcrossProjects(t *testing.T) {
	env := newTestEnv(t)
	first := env.seedProject(t, model.Project{ID: "p1", Name: "First"})
	second := env.seedProject(t, model.Project{ID: "p2", Name: "Second"})
	env.seedQuestions(t, first.ID, 1, 1)
	env.seedQuestions(t, second.ID, 1, 1)

	ctx := context.Background()
	svc := env.claims[constants.StageTranscription]

	held, err := svc.ClaimNext(ctx, first.ID, "worker-a")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	// A claim against another project must hand back the held unit, never
	// a second one in the same lane.
	other, err := svc.ClaimNext(ctx, second.ID, "worker-a")
	if err != nil {
		t.Fatalf("cross-project claim failed: %v", err)
	}
	if other.TaskID != held.TaskID {
		t.Errorf("got task %s, want the held %s", other.TaskID, held.TaskID)
	}
	if !other.Resumed {
		t.Error("the held claim should be marked resumed")
	}

	var assigned int64
	err = env.db.Model(&model.Task{}).
		Where("worker_id = ? AND stage = ? AND status = ?",
			"worker-a", constants.StageTranscription, constants.TaskAssigned).
		Count(&assigned).Error
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if assigned != 1 {
		t.Errorf("worker holds %d transcription tasks, want 1", assigned)
	}
}

func TestClaimService_OneReviewClaimAcrossProjects(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, model.Project{ID: "p1", Name: "First"})
	env.seedProject(t, model.Project{ID: "p2", Name: "Second"})
	env.seedReviewTasks(t, "p1", "worker-z", 1)
	env.seedReviewTasks(t, "p2", "worker-z", 1)

	ctx := context.Background()
	svc := env.claims[constants.StageReview]

	held, err := svc.ClaimNext(ctx, "p1", "worker-a")
	if err != nil {
		t.Fatalf("review claim failed: %v", err)
	}

	other, err := svc.ClaimNext(ctx, "p2", "worker-a")
	if err != nil {
		t.Fatalf("cross-project review claim failed: %v", err)
	}
	if other.TaskID != held.TaskID || !other.Resumed {
		t.Error("review lane must resume the held claim across projects")
	}

	var assigned int64
	err = env.db.Model(&model.ReviewTask{}).
		Where("assigned_to = ? AND status = ?", "worker-a", constants.StatusAssigned).
		Count(&assigned).Error
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if assigned != 1 {
		t.Errorf("worker holds %d review tasks, want 1", assigned)
	}
}

func TestClaimService_NoWorkPassesThrough(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, model.Project{ID: "p1", Name: "Empty"})

	svc := env.claims[constants.StageTranscription]
	_, err := svc.ClaimNext(context.Background(), "p1", "worker-a")
	if !errors.Is(err, repository.ErrNoWorkAvailable) {
		t.Errorf("expected ErrNoWorkAvailable, got %v", err)
	}
}

func TestClaimService_ReviewLaneClaims(t *testing.T) {
	env := newTestEnv(t)
	project := env.seedProject(t, model.Project{ID: "p1", Name: "Transcripts"})
	env.seedReviewTasks(t, project.ID, "worker-z", 1)

	ctx := context.Background()
	svc := env.claims[constants.StageReview]

	claim, err := svc.ClaimNext(ctx, project.ID, "worker-a")
	if err != nil {
		t.Fatalf("review claim failed: %v", err)
	}
	if claim.Stage != constants.StageReview {
		t.Errorf("claim stage %s, want review", claim.Stage)
	}
	if claim.WorkerID != "worker-a" {
		t.Errorf("claim held by %s, want worker-a", claim.WorkerID)
	}
}
