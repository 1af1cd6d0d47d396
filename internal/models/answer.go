package model

import "time"

type Answer struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	QuestionID     string         `gorm:"size:36;not null;index" json:"question_id"`
	ProjectID      string         `gorm:"size:36;not null;index" json:"project_id"`
	AnswerID       string         `gorm:"size:64;not null" json:"answer_id"`
	WorkerID       string         `gorm:"size:36;not null;index" json:"worker_id"`
	AnswerData     map[string]any `gorm:"serializer:json" json:"answer_data"`
	StartTime      time.Time      `gorm:"not null" json:"start_time"`
	CompletionTime time.Time      `gorm:"not null" json:"completion_time"`
	AhtSeconds     int            `gorm:"not null" json:"aht_seconds"`
	Skipped        bool           `gorm:"not null;default:false" json:"skipped"`
	SkipReason     *string        `json:"skip_reason,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
