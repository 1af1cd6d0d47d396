package services

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"pph-connect.com/pph-connect/internal/constants"
	model "pph-connect.com/pph-connect/internal/models"
	"pph-connect.com/pph-connect/internal/queue"
	repository "pph-connect.com/pph-connect/internal/repositories"
)

// testEnv wires the full claim lifecycle against an in-memory database, the
// same shape the server command assembles.
type testEnv struct {
	db          *gorm.DB
	questions   *repository.QuestionRepository
	answers     *repository.AnswerRepository
	reviews     *repository.ReviewRepository
	assignments *repository.AssignmentRepository

	lanes       map[constants.Stage]LaneOperations
	selector    *ProjectSelector
	claims      map[constants.Stage]*ClaimService
	releases    *ReleaseService
	submissions *SubmissionService
	reviewSvc   *ReviewService
	manager     *SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
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

	env := &testEnv{
		db:          db,
		questions:   repository.NewQuestionRepository(db),
		answers:     repository.NewAnswerRepository(db),
		reviews:     repository.NewReviewRepository(db),
		assignments: repository.NewAssignmentRepository(db),
	}

	guard := queue.NewLocalClaimGuard()

	transcription := NewTranscriptionLane(env.questions)
	review := NewReviewLane(env.reviews)
	env.lanes = map[constants.Stage]LaneOperations{
		constants.StageTranscription: transcription,
		constants.StageReview:        review,
	}

	gate := NewEligibilityGate(env.assignments)
	env.selector = NewProjectSelector(env.assignments, gate, env.lanes)

	transcriptionClaims := NewClaimService(transcription, env.questions, guard)
	reviewClaims := NewClaimService(review, env.questions, guard)
	env.claims = map[constants.Stage]*ClaimService{
		constants.StageTranscription: transcriptionClaims,
		constants.StageReview:        reviewClaims,
	}

	env.releases = NewReleaseService(env.lanes)
	env.reviewSvc = NewReviewService(env.reviews)
	env.submissions = NewSubmissionService(env.answers, env.assignments, env.reviewSvc)
	env.manager = NewSessionManager(
		env.assignments, env.selector, transcriptionClaims, reviewClaims,
		env.releases, env.submissions, env.reviewSvc,
	)

	return env
}

func (e *testEnv) seedProject(t *testing.T, p model.Project) model.Project {
	t.Helper()
	if p.Status == "" {
		p.Status = constants.ProjectActive
	}
	if p.ReservationTimeLimitMinutes == 0 {
		p.ReservationTimeLimitMinutes = 60
	}
	if err := e.db.Create(&p).Error; err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
	return p
}

func (e *testEnv) seedAssignment(t *testing.T, a model.ProjectAssignment) model.ProjectAssignment {
	t.Helper()
	if a.ID == "" {
		a.ID = fmt.Sprintf("asg-%s-%s", a.WorkerID, a.ProjectID)
	}
	// Create substitutes the column defaults for zero-valued fields (and
	// writes them back into the struct), so a seeded Active: false or
	// CanTranscribe: false would silently become true. Capture the values
	// the test actually gave and re-write those columns after the insert.
	given := a
	if err := e.db.Create(&a).Error; err != nil {
		t.Fatalf("failed to seed assignment: %v", err)
	}
	err := e.db.Model(&model.ProjectAssignment{}).Where("id = ?", a.ID).Updates(map[string]any{
		"active":              given.Active,
		"can_transcribe":      given.CanTranscribe,
		"priority_transcribe": given.PriorityTranscribe,
		"priority_review":     given.PriorityReview,
	}).Error
	if err != nil {
		t.Fatalf("failed to seed assignment: %v", err)
	}
	return given
}

func (e *testEnv) seedQuestions(t *testing.T, projectID string, count, replications int) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		q := &model.Question{
			ProjectID:            projectID,
			QuestionID:           fmt.Sprintf("Q-%03d", i+1),
			RowIndex:             i + 1,
			Data:                 map[string]any{"text": fmt.Sprintf("unit %d", i+1)},
			RequiredReplications: replications,
		}
		if err := e.questions.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("failed to seed question: %v", err)
		}
		ids = append(ids, q.ID)
	}
	return ids
}

func (e *testEnv) seedReviewTasks(t *testing.T, projectID, transcriberID string, count int) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		rt := &model.ReviewTask{
			ProjectID:     projectID,
			QuestionID:    fmt.Sprintf("Q-%03d", i+1),
			AnswerID:      fmt.Sprintf("Q-%03d-A1", i+1),
			TranscriberID: transcriberID,
			RowIndex:      i + 1,
		}
		if err := e.reviews.CreateReviewTask(ctx, rt); err != nil {
			t.Fatalf("failed to seed review task: %v", err)
		}
		ids = append(ids, rt.ID)
	}
	return ids
}

func (e *testEnv) questionStatus(t *testing.T, id string) constants.QuestionStatus {
	t.Helper()
	q, err := e.questions.FindQuestionByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load question %s: %v", id, err)
	}
	return q.Status
}
