package services

import (
	"errors"
	"sync"

	"pph-connect.com/pph-connect/internal/constants"
	model "pph-connect.com/pph-connect/internal/models"
)

var ErrStageNotAvailable = errors.New("worker has no assignment granting that stage")

// StageController tracks which of the two claim lifecycles is active for a
// worker. The lanes are independent: switching stages never touches the
// other lane's claim, and each lane holds at most one claim at a time.
type StageController struct {
	mu       sync.Mutex
	current  constants.Stage
	canWork  bool
	canCheck bool
}

// NewStageController derives capabilities from the worker's assignments and
// applies the initial-stage rule: review only when no transcription-capable
// assignment exists.
func NewStageController(assignments []model.ProjectAssignment) *StageController {
	c := &StageController{}
	for _, a := range assignments {
		if a.CanTranscribe {
			c.canWork = true
		}
		if a.CanReview {
			c.canCheck = true
		}
	}

	c.current = constants.StageTranscription
	if !c.canWork && c.canCheck {
		c.current = constants.StageReview
	}
	return c
}

func (c *StageController) Current() constants.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *StageController) HasReviewAccess() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canCheck
}

// SwitchStage moves the worker to the target stage. A worker without any
// review-capable assignment is forced back to transcription.
func (c *StageController) SwitchStage(target constants.Stage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch target {
	case constants.StageReview:
		if !c.canCheck {
			c.current = constants.StageTranscription
			return ErrStageNotAvailable
		}
	case constants.StageTranscription:
		if !c.canWork {
			return ErrStageNotAvailable
		}
	default:
		return ErrStageNotAvailable
	}

	c.current = target
	return nil
}
