package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"pph-connect.com/pph-connect/internal/constants"
	model "pph-connect.com/pph-connect/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&model.Project{},
		&model.ProjectAssignment{},
		&model.Question{},
		&model.Task{},
		&model.Answer{},
		&model.ReviewTask{},
		&model.Review{},
		&model.TrainingCompletion{},
		&model.WorkerQuality{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	return db
}

func seedQuestions(t *testing.T, repo *QuestionRepository, projectID string, count, replications int) []string {
	ctx := context.Background()
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		q := &model.Question{
			ProjectID:            projectID,
			QuestionID:           fmt.Sprintf("Q-%03d", i+1),
			RowIndex:             i + 1,
			Data:                 map[string]any{"text": fmt.Sprintf("question %d", i+1)},
			RequiredReplications: replications,
		}
		if err := repo.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("failed to seed question: %v", err)
		}
		ids = append(ids, q.ID)
	}
	return ids
}

func TestClaimNext_LowestRowIndexFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuestionRepository(db)
	seedQuestions(t, repo, "p1", 3, 1)

	ctx := context.Background()

	task, question, err := repo.ClaimNext(ctx, "p1", "worker-a")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if question.RowIndex != 1 {
		t.Errorf("expected row index 1, got %d", question.RowIndex)
	}
	if task.WorkerID != "worker-a" {
		t.Errorf("task assigned to %s, want worker-a", task.WorkerID)
	}
	if task.Status != constants.TaskAssigned {
		t.Errorf("task status %s, want assigned", task.Status)
	}

	stored, err := repo.FindQuestionByID(ctx, question.ID)
	if err != nil {
		t.Fatalf("failed to reload question: %v", err)
	}
	if stored.Status != constants.StatusAssigned {
		t.Errorf("question status %s, want assigned", stored.Status)
	}
	if stored.AssignedTo == nil || *stored.AssignedTo != "worker-a" {
		t.Error("question assigned_to not set")
	}
	if stored.AssignedAt == nil {
		t.Error("question assigned_at not set")
	}

	// The second worker must get the next index, never the same unit.
	_, second, err := repo.ClaimNext(ctx, "p1", "worker-b")
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if second.RowIndex != 2 {
		t.Errorf("expected row index 2 for second claim, got %d", second.RowIndex)
	}
}

func TestClaimNext_NoWorkAvailable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuestionRepository(db)

	_, _, err := repo.ClaimNext(context.Background(), "empty-project", "worker-a")
	if !errors.Is(err, ErrNoWorkAvailable) {
		t.Errorf("expected ErrNoWorkAvailable, got %v", err)
	}
}

func TestClaimNext_Exclusivity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuestionRepository(db)

	const pending = 3
	const workers = 10
	seedQuestions(t, repo, "p1", pending, 1)

	var wg sync.WaitGroup
	wg.Add(workers)

	type claimResult struct {
		questionID string
		err        error
	}
	results := make(chan claimResult, workers)

	for i := 0; i < workers; i++ {
		go func(idx int) {
			defer wg.Done()
			_, q, err := repo.ClaimNext(context.Background(), "p1", fmt.Sprintf("worker-%d", idx))
			if err != nil {
				results <- claimResult{err: err}
				return
			}
			results <- claimResult{questionID: q.ID}
		}(i)
	}

	wg.Wait()
	close(results)

	claimed := make(map[string]int)
	noWork := 0
	for res := range results {
		if res.err != nil {
			if !errors.Is(res.err, ErrNoWorkAvailable) {
				t.Errorf("unexpected claim error: %v", res.err)
			}
			noWork++
			continue
		}
		claimed[res.questionID]++
	}

	if len(claimed) != pending {
		t.Errorf("expected %d distinct units claimed, got %d", pending, len(claimed))
	}
	for id, count := range claimed {
		if count != 1 {
			t.Errorf("unit %s claimed %d times", id, count)
		}
	}
	if noWork != workers-pending {
		t.Errorf("expected %d no-work results, got %d", workers-pending, noWork)
	}
}

func TestClaimNext_ResumeExistingAssignment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuestionRepository(db)
	seedQuestions(t, repo, "p1", 2, 1)

	ctx := context.Background()
	task, _, err := repo.ClaimNext(ctx, "p1", "worker-a")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	resumed, _, err := repo.ResumeAssigned(ctx, "p1", "worker-a")
	if err != nil {
		t.Fatalf("resume lookup failed: %v", err)
	}
	if resumed == nil || resumed.ID != task.ID {
		t.Error("expected to resume the held task")
	}
}

func TestRelease_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuestionRepository(db)
	seedQuestions(t, repo, "p1", 1, 1)

	ctx := context.Background()
	task, question, err := repo.ClaimNext(ctx, "p1", "worker-a")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	released, err := repo.Release(ctx, task.ID)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if !released {
		t.Error("first release should report true")
	}

	stored, _ := repo.FindQuestionByID(ctx, question.ID)
	if stored.Status != constants.StatusPending {
		t.Errorf("question status %s after release, want pending", stored.Status)
	}
	if stored.AssignedTo != nil || stored.AssignedAt != nil {
		t.Error("assignment fields should be cleared after release")
	}

	released, err = repo.Release(ctx, task.ID)
	if err != nil {
		t.Fatalf("second release errored: %v", err)
	}
	if released {
		t.Error("second release should report false")
	}
}

func TestRelease_UnknownTaskIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuestionRepository(db)

	released, err := repo.Release(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("release errored: %v", err)
	}
	if released {
		t.Error("releasing an unknown task should report false")
	}
}

func TestReleaseAllForWorker(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuestionRepository(db)
	seedQuestions(t, repo, "p1", 2, 1)
	seedQuestions(t, repo, "p2", 1, 1)

	ctx := context.Background()
	if _, _, err := repo.ClaimNext(ctx, "p1", "worker-a"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, _, err := repo.ClaimNext(ctx, "p2", "worker-a"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, _, err := repo.ClaimNext(ctx, "p1", "worker-b"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	count, err := repo.ReleaseAllForWorker(ctx, "worker-a")
	if err != nil {
		t.Fatalf("bulk release failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 releases, got %d", count)
	}

	// worker-b's claim must survive the bulk release.
	resumed, _, err := repo.ResumeAssigned(ctx, "p1", "worker-b")
	if err != nil || resumed == nil {
		t.Error("worker-b's reservation should still be held")
	}
}

func TestCountClaimable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuestionRepository(db)
	seedQuestions(t, repo, "p1", 3, 1)

	ctx := context.Background()

	count, err := repo.CountClaimable(ctx, "p1")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 claimable, got %d", count)
	}

	if _, _, err := repo.ClaimNext(ctx, "p1", "worker-a"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	count, _ = repo.CountClaimable(ctx, "p1")
	if count != 2 {
		t.Errorf("expected 2 claimable after claim, got %d", count)
	}
}
