package services

import (
	"context"
	"log"
	"sync"
	"time"

	model "pph-connect.com/pph-connect/internal/models"
	repository "pph-connect.com/pph-connect/internal/repositories"
)

// SweepService is the operational backstop for clients that vanish while
// holding a reservation: any assigned unit past its deadline by more than
// the grace period is force-released. The client-side timer remains the
// primary release path; the sweep only catches what never came back.
type SweepService struct {
	questions   *repository.QuestionRepository
	reviews     *repository.ReviewRepository
	assignments *repository.AssignmentRepository
	grace       time.Duration

	wg   sync.WaitGroup
	stop chan struct{}
}

func NewSweepService(
	questions *repository.QuestionRepository,
	reviews *repository.ReviewRepository,
	assignments *repository.AssignmentRepository,
	grace time.Duration,
) *SweepService {
	return &SweepService{
		questions:   questions,
		reviews:     reviews,
		assignments: assignments,
		grace:       grace,
		stop:        make(chan struct{}),
	}
}

// Start launches the periodic sweep loop.
func (s *SweepService) Start(interval time.Duration) {
	s.wg.Add(1)
	go s.loop(interval)
}

func (s *SweepService) loop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if released, err := s.RunOnce(context.Background()); err != nil {
				log.Printf("sweep: failed: %v", err)
			} else if released > 0 {
				log.Printf("sweep: released %d overdue reservations", released)
			}
		case <-s.stop:
			return
		}
	}
}

func (s *SweepService) Shutdown() {
	close(s.stop)
	s.wg.Wait()
}

// RunOnce releases every reservation whose deadline passed more than the
// grace period ago, in both lanes, and reports how many were returned.
func (s *SweepService) RunOnce(ctx context.Context) (int, error) {
	released, err := s.sweepTranscription(ctx)
	if err != nil {
		return released, err
	}

	reviewReleased, err := s.sweepReview(ctx)
	return released + reviewReleased, err
}

func (s *SweepService) sweepTranscription(ctx context.Context) (int, error) {
	tasks, err := s.questions.ListAssignedTasks(ctx)
	if err != nil {
		return 0, err
	}

	limits, err := s.projectLimits(ctx, taskProjectIDs(tasks))
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	released := 0
	for _, t := range tasks {
		limit := limits[t.ProjectID]
		if limit < 1 {
			// Unknown project, same 60 minute default as the review sweep.
			limit = 60
		}
		deadline := t.Deadline(limit)
		if now.Sub(deadline) <= s.grace {
			continue
		}
		ok, err := s.questions.Release(ctx, t.ID)
		if err != nil {
			log.Printf("sweep: release of task %s failed: %v", t.ID, err)
			continue
		}
		if ok {
			released++
		}
	}
	return released, nil
}

func (s *SweepService) sweepReview(ctx context.Context) (int, error) {
	tasks, err := s.reviews.ListAssignedTasks(ctx)
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(tasks))
	for _, rt := range tasks {
		ids = append(ids, rt.ProjectID)
	}
	limits, err := s.projectLimits(ctx, ids)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	released := 0
	for _, rt := range tasks {
		if rt.AssignedAt == nil {
			continue
		}
		limit := limits[rt.ProjectID]
		if limit < 1 {
			limit = 60
		}
		deadline := rt.AssignedAt.Add(time.Duration(limit) * time.Minute)
		if now.Sub(deadline) <= s.grace {
			continue
		}
		ok, err := s.reviews.Release(ctx, rt.ID)
		if err != nil {
			log.Printf("sweep: release of review task %s failed: %v", rt.ID, err)
			continue
		}
		if ok {
			released++
		}
	}
	return released, nil
}

func (s *SweepService) projectLimits(ctx context.Context, projectIDs []string) (map[string]int, error) {
	projects, err := s.assignments.ListProjects(ctx, dedupe(projectIDs))
	if err != nil {
		return nil, err
	}

	limits := make(map[string]int, len(projects))
	for _, p := range projects {
		limit := p.ReservationTimeLimitMinutes
		if limit < 1 {
			limit = 60
		}
		limits[p.ID] = limit
	}
	return limits, nil
}

func taskProjectIDs(tasks []model.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ProjectID)
	}
	return ids
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
