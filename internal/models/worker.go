package model

import "time"

type TrainingCompletion struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	WorkerID         string     `gorm:"size:36;not null;index" json:"worker_id"`
	ProjectID        string     `gorm:"size:36;not null;index" json:"project_id"`
	TrainingModuleID string     `gorm:"size:36;not null" json:"training_module_id"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

type WorkerQuality struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	WorkerID     string    `gorm:"size:36;not null;index" json:"worker_id"`
	ProjectID    string    `gorm:"size:36;not null;index" json:"project_id"`
	TrustRating  *float64  `json:"trust_rating,omitempty"`
	GoldAccuracy *float64  `json:"gold_accuracy,omitempty"`
	Suspended    bool      `gorm:"not null;default:false" json:"suspended"`
	UpdatedAt    time.Time `json:"updated_at"`
}
