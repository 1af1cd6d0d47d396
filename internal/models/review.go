package model

import (
	"time"

	"pph-connect.com/pph-connect/internal/constants"
)

// ReviewTask is the review lane's unit of work: one transcriber answer
// waiting for a peer reviewer. Same assignment lifecycle as Question.
type ReviewTask struct {
	ID            string                   `gorm:"primaryKey;size:36" json:"id"`
	ProjectID     string                   `gorm:"size:36;not null;index" json:"project_id"`
	QuestionID    string                   `gorm:"size:36;not null" json:"question_id"`
	AnswerID      string                   `gorm:"size:36;not null" json:"answer_id"`
	TranscriberID string                   `gorm:"size:36;not null" json:"transcriber_id"`
	RowIndex      int                      `gorm:"not null;index" json:"row_index"`
	Status        constants.QuestionStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	AssignedTo    *string                  `gorm:"size:36" json:"assigned_to,omitempty"`
	AssignedAt    *time.Time               `json:"assigned_at,omitempty"`
	Version       uint                     `gorm:"not null;default:1" json:"version"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

type Review struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	ReviewTaskID  string         `gorm:"size:36;not null;index" json:"review_task_id"`
	ReviewerID    string         `gorm:"size:36;not null;index" json:"reviewer_id"`
	RatingOverall int            `gorm:"not null" json:"rating_overall"`
	HighlightTags []string       `gorm:"serializer:json" json:"highlight_tags"`
	Feedback      *string        `json:"feedback,omitempty"`
	InternalNotes *string        `json:"internal_notes,omitempty"`
	ReviewPayload map[string]any `gorm:"serializer:json" json:"review_payload"`
	CreatedAt     time.Time      `json:"created_at"`
}
