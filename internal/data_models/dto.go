package dto

import (
	model "pph-connect.com/pph-connect/internal/models"
	"pph-connect.com/pph-connect/internal/services"
)

type ClaimRequest struct {
	WorkerID string `json:"worker_id"`
}

type SubmitRequest struct {
	AnswerData map[string]any `json:"answer_data"`
}

type SkipRequest struct {
	Reason string `json:"reason"`
}

type ReviewRequest struct {
	RatingOverall int            `json:"rating_overall"`
	HighlightTags []string       `json:"highlight_tags"`
	Feedback      *string        `json:"feedback,omitempty"`
	InternalNotes *string        `json:"internal_notes,omitempty"`
	ReviewPayload map[string]any `json:"review_payload"`
}

type StageRequest struct {
	Stage string `json:"stage"`
}

type ReleaseRequest struct {
	Stage string `json:"stage"`
}

type SubmitCompletionRequest struct {
	WorkerID   string         `json:"worker_id"`
	AnswerData map[string]any `json:"answer_data"`
	StartedAt  string         `json:"started_at"`
	Skipped    bool           `json:"skipped"`
	SkipReason string         `json:"skip_reason,omitempty"`
}

// ClaimResponse is the workbench payload: either a claim plus the project
// context, or the explicit empty state (success=false, no error).
type ClaimResponse struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message,omitempty"`
	Task           *services.Claim `json:"task,omitempty"`
	Project        *model.Project  `json:"project,omitempty"`
	AvailableCount int             `json:"available_count"`
	Reason         string          `json:"reason,omitempty"`
}

type ReleaseResponse struct {
	Released bool `json:"released"`
}

type ReleaseAllResponse struct {
	ReleasedCount int `json:"released_count"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type SubmitResponse struct {
	Result *services.SubmissionResult `json:"result"`
	Next   *services.Claim            `json:"next,omitempty"`
}

type ReviewResponse struct {
	Review *model.Review   `json:"review"`
	Next   *services.Claim `json:"next,omitempty"`
}

type StageResponse struct {
	Stage string `json:"stage"`
}
