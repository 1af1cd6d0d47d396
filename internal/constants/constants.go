package constants

type QuestionStatus string

const (
	StatusPending   QuestionStatus = "pending"
	StatusAssigned  QuestionStatus = "assigned"
	StatusCompleted QuestionStatus = "completed"
	StatusSkipped   QuestionStatus = "skipped"
)

type TaskStatus string

const (
	TaskAssigned  TaskStatus = "assigned"
	TaskCompleted TaskStatus = "completed"
	TaskSkipped   TaskStatus = "skipped"
)

type Stage string

const (
	StageTranscription Stage = "transcription"
	StageReview        Stage = "review"
)

type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectPaused   ProjectStatus = "paused"
	ProjectArchived ProjectStatus = "archived"
)
