package services

import (
	"context"
	"sync"

	"pph-connect.com/pph-connect/internal/constants"
	repository "pph-connect.com/pph-connect/internal/repositories"
)

// SessionManager owns the live workbench sessions, one per worker.
type SessionManager struct {
	assignments *repository.AssignmentRepository
	selector    *ProjectSelector
	releases    *ReleaseService
	submissions *SubmissionService
	reviews     *ReviewService

	mu       sync.Mutex
	sessions map[string]*WorkbenchSession

	newSession func(ctx context.Context, workerID string) (*WorkbenchSession, error)
}

func NewSessionManager(
	assignments *repository.AssignmentRepository,
	selector *ProjectSelector,
	transcriptionClaims *ClaimService,
	reviewClaims *ClaimService,
	releases *ReleaseService,
	submissions *SubmissionService,
	reviews *ReviewService,
) *SessionManager {
	m := &SessionManager{
		assignments: assignments,
		selector:    selector,
		releases:    releases,
		submissions: submissions,
		reviews:     reviews,
		sessions:    make(map[string]*WorkbenchSession),
	}

	m.newSession = func(ctx context.Context, workerID string) (*WorkbenchSession, error) {
		workerAssignments, err := assignments.ListForWorker(ctx, workerID)
		if err != nil {
			return nil, err
		}
		return NewWorkbenchSession(
			workerID,
			workerAssignments,
			selector,
			claimServicesByStage(transcriptionClaims, reviewClaims),
			releases,
			submissions,
			reviews,
		), nil
	}

	return m
}

// GetOrCreate returns the worker's live session, creating it from their
// current assignments on first use.
func (m *SessionManager) GetOrCreate(ctx context.Context, workerID string) (*WorkbenchSession, error) {
	m.mu.Lock()
	if session, ok := m.sessions[workerID]; ok {
		m.mu.Unlock()
		return session, nil
	}
	m.mu.Unlock()

	session, err := m.newSession(ctx, workerID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[workerID]; ok {
		return existing, nil
	}
	m.sessions[workerID] = session
	return session, nil
}

func (m *SessionManager) Get(workerID string) *WorkbenchSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[workerID]
}

// Close tears down the worker's session, releasing everything it holds.
func (m *SessionManager) Close(ctx context.Context, workerID string) error {
	m.mu.Lock()
	session, ok := m.sessions[workerID]
	delete(m.sessions, workerID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return session.Close(ctx)
}

// Shutdown closes every live session. Called on server shutdown so no
// reservation outlives the process unobserved.
func (m *SessionManager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*WorkbenchSession, 0, len(m.sessions))
	for workerID, session := range m.sessions {
		sessions = append(sessions, session)
		delete(m.sessions, workerID)
	}
	m.mu.Unlock()

	for _, session := range sessions {
		_ = session.Close(ctx)
	}
}

func claimServicesByStage(transcription, review *ClaimService) map[constants.Stage]*ClaimService {
	return map[constants.Stage]*ClaimService{
		constants.StageTranscription: transcription,
		constants.StageReview:        review,
	}
}
