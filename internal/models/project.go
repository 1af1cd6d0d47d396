package model

import (
	"time"

	"pph-connect.com/pph-connect/internal/constants"
)

type Project struct {
	ID                          string                  `gorm:"primaryKey;size:36" json:"id"`
	Code                        string                  `gorm:"size:32" json:"code"`
	Name                        string                  `gorm:"not null" json:"name"`
	Status                      constants.ProjectStatus `gorm:"type:varchar(20);not null" json:"status"`
	ReservationTimeLimitMinutes int                     `gorm:"not null;default:60" json:"reservation_time_limit_minutes"`
	AverageHandleTimeMinutes    *int                    `json:"average_handle_time_minutes,omitempty"`
	EnableSkipButton            bool                    `gorm:"not null;default:false" json:"enable_skip_button"`
	SkipReasons                 []string                `gorm:"serializer:json" json:"skip_reasons"`
	TrainingRequired            bool                    `gorm:"not null;default:false" json:"training_required"`
	TrainingModuleID            *string                 `gorm:"size:36" json:"training_module_id,omitempty"`
	MinTrustRating              *float64                `json:"min_trust_rating,omitempty"`
	CreatedAt                   time.Time               `json:"created_at"`
	UpdatedAt                   time.Time               `json:"updated_at"`
}

type ProjectAssignment struct {
	ID                 string     `gorm:"primaryKey;size:36" json:"id"`
	WorkerID           string     `gorm:"size:36;not null;index" json:"worker_id"`
	ProjectID          string     `gorm:"size:36;not null;index" json:"project_id"`
	Active             bool       `gorm:"not null;default:true" json:"active"`
	CanTranscribe      bool       `gorm:"not null;default:true" json:"can_transcribe"`
	CanReview          bool       `gorm:"not null;default:false" json:"can_review"`
	PriorityTranscribe int        `gorm:"not null;default:100" json:"priority_transcribe"`
	PriorityReview     int        `gorm:"not null;default:100" json:"priority_review"`
	AssignedBy         string     `gorm:"size:36" json:"assigned_by"`
	AssignedAt         *time.Time `json:"assigned_at,omitempty"`
}
