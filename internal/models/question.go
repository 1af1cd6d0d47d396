package model

import (
	"time"

	"pph-connect.com/pph-connect/internal/constants"
)

// Question is a single unit of work. Its assignment fields are written only
// by the atomic claim, release and completion steps in the repository layer.
type Question struct {
	ID                    string                   `gorm:"primaryKey;size:36" json:"id"`
	ProjectID             string                   `gorm:"size:36;not null;index" json:"project_id"`
	QuestionID            string                   `gorm:"size:64;not null" json:"question_id"`
	RowIndex              int                      `gorm:"not null;index" json:"row_index"`
	Data                  map[string]any           `gorm:"serializer:json" json:"data"`
	Status                constants.QuestionStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	AssignedTo            *string                  `gorm:"size:36" json:"assigned_to,omitempty"`
	AssignedAt            *time.Time               `json:"assigned_at,omitempty"`
	RequiredReplications  int                      `gorm:"not null;default:1" json:"required_replications"`
	CompletedReplications int                      `gorm:"not null;default:0" json:"completed_replications"`
	IsAnswered            bool                     `gorm:"not null;default:false" json:"is_answered"`
	IsGoldStandard        bool                     `gorm:"not null;default:false" json:"is_gold_standard"`
	CorrectAnswer         map[string]any           `gorm:"serializer:json" json:"correct_answer,omitempty"`
	Version               uint                     `gorm:"not null;default:1" json:"version"`
	CreatedAt             time.Time                `json:"created_at"`
	UpdatedAt             time.Time                `json:"updated_at"`
}

// Task is the worker-facing claim record. A row exists only while the worker
// holds the reservation or after it was finalized; releasing deletes it.
type Task struct {
	ID          string               `gorm:"primaryKey;size:36" json:"id"`
	ProjectID   string               `gorm:"size:36;not null;index" json:"project_id"`
	QuestionID  string               `gorm:"size:36;not null;index" json:"question_id"`
	WorkerID    string               `gorm:"size:36;not null;index" json:"worker_id"`
	Stage       constants.Stage      `gorm:"type:varchar(20);not null" json:"stage"`
	RowIndex    int                  `gorm:"not null" json:"row_index"`
	Data        map[string]any       `gorm:"serializer:json" json:"data"`
	Status      constants.TaskStatus `gorm:"type:varchar(20);not null" json:"status"`
	AssignedAt  time.Time            `gorm:"not null" json:"assigned_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Deadline is the reservation expiry for a task claimed under the given
// project limit. It is derived, never stored.
func (t *Task) Deadline(limitMinutes int) time.Time {
	if limitMinutes < 1 {
		limitMinutes = 1
	}
	return t.AssignedAt.Add(time.Duration(limitMinutes) * time.Minute)
}
