package services

import (
	"context"
	"testing"
	"time"

	"pph-connect.com/pph-connect/internal/constants"
	model "pph-connect.com/pph-connect/internal/models"
)

func TestSubmission_CompletedAnswerEntersReviewLane(t *testing.T) {
	env := newTestEnv(t)
	project := env.seedProject(t, model.Project{ID: "p1", Name: "Transcripts"})
	env.seedQuestions(t, project.ID, 1, 1)

	ctx := context.Background()

	claim, err := env.claims[constants.StageTranscription].ClaimNext(ctx, project.ID, "worker-a")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	result, err := env.submissions.Complete(ctx, claim.TaskID, "worker-a", map[string]any{"text": "done"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("submission failed: %v", err)
	}

	// The completed answer is now claimable in the review lane, but never
	// by its own transcriber.
	count, err := env.reviews.CountClaimable(ctx, project.ID, "worker-b")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("review lane has %d claimable tasks, want 1", count)
	}
	count, _ = env.reviews.CountClaimable(ctx, project.ID, "worker-a")
	if count != 0 {
		t.Errorf("transcriber sees %d of their own answers to review, want 0", count)
	}

	rt, err := env.reviews.ClaimNext(ctx, project.ID, "worker-b")
	if err != nil {
		t.Fatalf("review claim failed: %v", err)
	}
	if rt.TranscriberID != "worker-a" {
		t.Errorf("review task transcriber %s, want worker-a", rt.TranscriberID)
	}
	if rt.QuestionID != claim.QuestionID {
		t.Errorf("review task question %s, want %s", rt.QuestionID, claim.QuestionID)
	}

	var answer model.Answer
	if err := env.db.First(&answer, "id = ?", rt.AnswerID).Error; err != nil {
		t.Fatalf("review task does not point at a persisted answer: %v", err)
	}
	if answer.AnswerID != result.AnswerID {
		t.Errorf("review task answer %s, want %s", answer.AnswerID, result.AnswerID)
	}
}

func TestSubmission_SkippedAnswerNeverEntersReviewLane(t *testing.T) {
	env := newTestEnv(t)
	project := env.seedProject(t, model.Project{
		ID: "p1", Name: "Transcripts",
		EnableSkipButton: true,
		SkipReasons:      []string{"ambiguous"},
	})
	env.seedQuestions(t, project.ID, 1, 1)

	ctx := context.Background()

	claim, err := env.claims[constants.StageTranscription].ClaimNext(ctx, project.ID, "worker-a")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	if _, err := env.submissions.Skip(ctx, claim.TaskID, "worker-a", project.ID, "ambiguous", time.Now().UTC()); err != nil {
		t.Fatalf("skip failed: %v", err)
	}

	count, err := env.reviews.CountClaimable(ctx, project.ID, "worker-b")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("skipped answer produced %d review tasks, want 0", count)
	}
}
