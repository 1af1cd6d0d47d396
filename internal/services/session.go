package services

import (
	"context"
	"log"
	"sync"
	"time"

	"pph-connect.com/pph-connect/internal/constants"
	apperrors "pph-connect.com/pph-connect/internal/errors"
	model "pph-connect.com/pph-connect/internal/models"
)

type SessionEventType string

const (
	EventClaimed     SessionEventType = "claimed"
	EventReleased    SessionEventType = "released"
	EventCompleted   SessionEventType = "completed"
	EventExpired     SessionEventType = "expired"
	EventSoftWarning SessionEventType = "soft_warning"
)

type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	Stage     constants.Stage  `json:"stage"`
	TaskID    string           `json:"task_id"`
	ProjectID string           `json:"project_id"`
}

// laneState is one lane's reservation: Idle when nil, Reserved while a claim
// and its timer are live. Transitions happen only through the session's
// event handlers, never by direct field writes elsewhere.
type laneState struct {
	claim     *Claim
	project   *model.Project
	timer     *ReservationTimer
	startedAt time.Time
}

// WorkbenchSession drives one worker through the select → claim → work →
// finalize cycle across both lanes. All exit paths funnel into the release
// service, and an exit-in-progress guard suppresses auto-claims while any
// teardown is underway.
type WorkbenchSession struct {
	workerID    string
	selector    *ProjectSelector
	claims      map[constants.Stage]*ClaimService
	releases    *ReleaseService
	submissions *SubmissionService
	reviews     *ReviewService
	stages      *StageController

	mu             sync.Mutex
	lanes          map[constants.Stage]*laneState
	exitInProgress bool
	suspended      bool
	closed         bool
	tickInterval   time.Duration

	events chan SessionEvent
}

func NewWorkbenchSession(
	workerID string,
	assignments []model.ProjectAssignment,
	selector *ProjectSelector,
	claims map[constants.Stage]*ClaimService,
	releases *ReleaseService,
	submissions *SubmissionService,
	reviews *ReviewService,
) *WorkbenchSession {
	return &WorkbenchSession{
		workerID:     workerID,
		selector:     selector,
		claims:       claims,
		releases:     releases,
		submissions:  submissions,
		reviews:      reviews,
		stages:       NewStageController(assignments),
		lanes:        make(map[constants.Stage]*laneState),
		tickInterval: time.Second,
		events:       make(chan SessionEvent, 64),
	}
}

// SetTickInterval compresses reservation timers for tests.
func (s *WorkbenchSession) SetTickInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.tickInterval = d
	}
}

func (s *WorkbenchSession) Events() <-chan SessionEvent {
	return s.events
}

func (s *WorkbenchSession) Stage() constants.Stage {
	return s.stages.Current()
}

func (s *WorkbenchSession) HasReviewAccess() bool {
	return s.stages.HasReviewAccess()
}

// SwitchStage changes the active lane. The other lane's claim, if any,
// stays held: the lanes are independent lifecycles.
func (s *WorkbenchSession) SwitchStage(target constants.Stage) error {
	return s.stages.SwitchStage(target)
}

// Current returns the active lane's claim, or nil when the lane is idle.
func (s *WorkbenchSession) Current() *Claim {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.lanes[s.stages.Current()]; ok {
		return state.claim
	}
	return nil
}

// StartNext selects a project for the active stage and claims one unit from
// it. Returns (nil, nil, nil) when no work is available anywhere — a normal
// state the caller renders as an empty screen, never an error.
func (s *WorkbenchSession) StartNext(ctx context.Context) (*Claim, *SelectedProject, error) {
	stage := s.stages.Current()

	s.mu.Lock()
	if s.exitInProgress || s.closed {
		s.mu.Unlock()
		return nil, nil, nil
	}
	if state, ok := s.lanes[stage]; ok {
		claim := state.claim
		s.mu.Unlock()
		return claim, nil, nil
	}
	s.mu.Unlock()

	selected, err := s.selector.SelectNext(ctx, s.workerID, stage)
	if err != nil {
		return nil, nil, apperrors.ErrClaimBackend
	}
	if selected == nil {
		return nil, nil, nil
	}
	if selected.Reason == ReasonTrainingRequired {
		return nil, selected, apperrors.ErrTrainingRequired
	}

	claimSvc, ok := s.claims[stage]
	if !ok {
		return nil, selected, apperrors.ErrClaimBackend
	}

	claim, err := claimSvc.ClaimNext(ctx, selected.Project.ID, s.workerID)
	if err != nil {
		return nil, selected, err
	}

	s.mu.Lock()
	if s.exitInProgress || s.closed {
		// The screen was abandoned while the claim round-trip was pending.
		// Finalize safely: hand the unit straight back.
		s.mu.Unlock()
		if _, relErr := s.releases.Release(context.WithoutCancel(ctx), claim.TaskID, stage); relErr != nil {
			log.Printf("release after abandoned claim failed for task %s: %v", claim.TaskID, relErr)
		}
		return nil, nil, nil
	}

	project := selected.Project
	state := &laneState{
		claim:     claim,
		project:   &project,
		startedAt: time.Now().UTC(),
	}
	state.timer = s.newTimer(stage, claim, &project)
	s.lanes[stage] = state
	s.mu.Unlock()

	state.timer.Start()
	s.emit(SessionEvent{Type: EventClaimed, Stage: stage, TaskID: claim.TaskID, ProjectID: claim.ProjectID})
	return claim, selected, nil
}

func (s *WorkbenchSession) newTimer(stage constants.Stage, claim *Claim, project *model.Project) *ReservationTimer {
	limitSeconds := project.ReservationTimeLimitMinutes * 60
	if limitSeconds < 60 {
		limitSeconds = 60
	}

	// Resumed claims keep their original deadline, observed from the
	// server-recorded assignment time.
	if claim.Resumed && !claim.AssignedAt.IsZero() {
		elapsed := int(time.Since(claim.AssignedAt) / time.Second)
		limitSeconds -= elapsed
		if limitSeconds < 1 {
			limitSeconds = 1
		}
	}

	ahtSeconds := 0
	if project.AverageHandleTimeMinutes != nil && *project.AverageHandleTimeMinutes > 0 {
		ahtSeconds = *project.AverageHandleTimeMinutes * 60
	}

	timer := NewReservationTimer(limitSeconds, ahtSeconds, TimerHooks{
		OnExpire: func() {
			s.handleExpiry(stage, claim)
		},
		OnSoftWarning: func() {
			s.emit(SessionEvent{Type: EventSoftWarning, Stage: stage, TaskID: claim.TaskID, ProjectID: claim.ProjectID})
		},
	})
	timer.SetTickInterval(s.tickInterval)
	return timer
}

// handleExpiry is the timer's single authoritative expiry handler: one
// release, lane back to idle, no auto-claim.
func (s *WorkbenchSession) handleExpiry(stage constants.Stage, claim *Claim) {
	s.mu.Lock()
	state, ok := s.lanes[stage]
	if !ok || state.claim.TaskID != claim.TaskID {
		s.mu.Unlock()
		return
	}
	delete(s.lanes, stage)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.releases.ReleaseWithFallback(ctx, claim.TaskID, s.workerID, stage); err != nil {
		log.Printf("expiry release failed for task %s: %v", claim.TaskID, err)
	}
	s.emit(SessionEvent{Type: EventExpired, Stage: stage, TaskID: claim.TaskID, ProjectID: claim.ProjectID})
}

// ReleaseCurrent is the explicit release path (manual button, navigation).
func (s *WorkbenchSession) ReleaseCurrent(ctx context.Context) (bool, error) {
	stage := s.stages.Current()

	s.mu.Lock()
	state, ok := s.lanes[stage]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.lanes, stage)
	s.mu.Unlock()

	state.timer.Stop()

	released, err := s.releases.ReleaseWithFallback(ctx, state.claim.TaskID, s.workerID, stage)
	if err != nil {
		return false, err
	}
	s.emit(SessionEvent{Type: EventReleased, Stage: stage, TaskID: state.claim.TaskID, ProjectID: state.claim.ProjectID})
	return released, nil
}

// Submit finalizes the active transcription claim. On success the timer is
// stopped, no release is issued, and the next unit is claimed automatically
// unless an exit is in progress. On failure the reservation stays held so
// the worker can retry without losing the unit.
func (s *WorkbenchSession) Submit(ctx context.Context, payload map[string]any) (*SubmissionResult, *Claim, error) {
	stage := s.stages.Current()

	s.mu.Lock()
	state, ok := s.lanes[stage]
	if !ok {
		s.mu.Unlock()
		return nil, nil, apperrors.ErrTaskNotFound
	}
	claim := state.claim
	startedAt := state.startedAt
	s.mu.Unlock()

	result, err := s.submissions.Complete(ctx, claim.TaskID, s.workerID, payload, startedAt)
	if err != nil {
		return nil, nil, err
	}

	s.finalizeLane(stage, claim)
	return result, s.autoStart(ctx), nil
}

// Skip finalizes the active claim as skipped, with the project-configured
// reason validation applied before anything is written.
func (s *WorkbenchSession) Skip(ctx context.Context, reason string) (*SubmissionResult, *Claim, error) {
	stage := s.stages.Current()

	s.mu.Lock()
	state, ok := s.lanes[stage]
	if !ok {
		s.mu.Unlock()
		return nil, nil, apperrors.ErrTaskNotFound
	}
	claim := state.claim
	startedAt := state.startedAt
	s.mu.Unlock()

	result, err := s.submissions.Skip(ctx, claim.TaskID, s.workerID, claim.ProjectID, reason, startedAt)
	if err != nil {
		return nil, nil, err
	}

	s.finalizeLane(stage, claim)
	return result, s.autoStart(ctx), nil
}

// SubmitReview finalizes the active review claim.
func (s *WorkbenchSession) SubmitReview(ctx context.Context, input SubmitReviewInput) (*model.Review, *Claim, error) {
	s.mu.Lock()
	state, ok := s.lanes[constants.StageReview]
	if !ok {
		s.mu.Unlock()
		return nil, nil, apperrors.ErrTaskNotFound
	}
	claim := state.claim
	s.mu.Unlock()

	input.ReviewTaskID = claim.TaskID
	input.ReviewerID = s.workerID

	review, err := s.reviews.SubmitReview(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	s.finalizeLane(constants.StageReview, claim)
	return review, s.autoStart(ctx), nil
}

func (s *WorkbenchSession) finalizeLane(stage constants.Stage, claim *Claim) {
	s.mu.Lock()
	if state, ok := s.lanes[stage]; ok && state.claim.TaskID == claim.TaskID {
		state.timer.Stop()
		delete(s.lanes, stage)
	}
	s.mu.Unlock()

	s.emit(SessionEvent{Type: EventCompleted, Stage: stage, TaskID: claim.TaskID, ProjectID: claim.ProjectID})
}

func (s *WorkbenchSession) autoStart(ctx context.Context) *Claim {
	s.mu.Lock()
	exiting := s.exitInProgress || s.closed
	s.mu.Unlock()
	if exiting {
		return nil
	}

	next, _, err := s.StartNext(ctx)
	if err != nil {
		log.Printf("auto-start after completion failed for worker %s: %v", s.workerID, err)
		return nil
	}
	return next
}

// Suspend models a resumable backgrounding (the tab entered a suspended
// state). Reservations survive; only the local countdowns pause.
func (s *WorkbenchSession) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.suspended {
		return
	}
	s.suspended = true
	for _, state := range s.lanes {
		state.timer.Stop()
	}
}

// Resume re-observes each held reservation's deadline from the
// server-recorded assignment time and restarts countdowns; anything already
// past its deadline is released.
func (s *WorkbenchSession) Resume(ctx context.Context) {
	s.mu.Lock()
	if !s.suspended {
		s.mu.Unlock()
		return
	}
	s.suspended = false

	type expiredLane struct {
		stage constants.Stage
		claim *Claim
	}
	var expired []expiredLane

	for stage, state := range s.lanes {
		deadline := state.claim.AssignedAt.Add(time.Duration(state.project.ReservationTimeLimitMinutes) * time.Minute)
		remaining := int(time.Until(deadline) / time.Second)
		if remaining <= 0 {
			expired = append(expired, expiredLane{stage: stage, claim: state.claim})
			continue
		}

		ahtSeconds := 0
		if state.project.AverageHandleTimeMinutes != nil && *state.project.AverageHandleTimeMinutes > 0 {
			ahtSeconds = *state.project.AverageHandleTimeMinutes * 60
		}
		state.timer = NewReservationTimer(remaining, ahtSeconds, TimerHooks{
			OnExpire:      func(st constants.Stage, c *Claim) func() { return func() { s.handleExpiry(st, c) } }(stage, state.claim),
			OnSoftWarning: func(st constants.Stage, c *Claim) func() { return func() { s.emit(SessionEvent{Type: EventSoftWarning, Stage: st, TaskID: c.TaskID, ProjectID: c.ProjectID}) } }(stage, state.claim),
		})
		state.timer.SetTickInterval(s.tickInterval)
		state.timer.Start()
	}
	s.mu.Unlock()

	for _, e := range expired {
		s.handleExpiry(e.stage, e.claim)
	}
}

// Close is the teardown path shared by navigation, unmount and tab close.
// It suppresses further auto-claims, stops every timer, and releases every
// held claim. Idempotent.
func (s *WorkbenchSession) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.exitInProgress = true

	held := make(map[constants.Stage]*laneState, len(s.lanes))
	for stage, state := range s.lanes {
		state.timer.Stop()
		held[stage] = state
		delete(s.lanes, stage)
	}
	s.mu.Unlock()

	var firstErr error
	for stage, state := range held {
		if _, err := s.releases.ReleaseWithFallback(ctx, state.claim.TaskID, s.workerID, stage); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.emit(SessionEvent{Type: EventReleased, Stage: stage, TaskID: state.claim.TaskID, ProjectID: state.claim.ProjectID})
	}
	return firstErr
}

// BeginExit raises the exit-in-progress guard without closing, so a pending
// auto-claim cannot race a navigation that is about to tear the session
// down.
func (s *WorkbenchSession) BeginExit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exitInProgress = true
}

func (s *WorkbenchSession) emit(event SessionEvent) {
	select {
	case s.events <- event:
	default:
		// A full buffer drops the event rather than blocking a lifecycle
		// transition on a slow listener.
	}
}
