package validators

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	dto "pph-connect.com/pph-connect/internal/data_models"
)

func ValidateSubmitRequest(r *dto.SubmitRequest) error {
	if len(r.AnswerData) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "answer_data is required")
	}
	return nil
}

func ValidateReviewRequest(r *dto.ReviewRequest) error {
	if r.RatingOverall < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "rating_overall must be at least 1")
	}
	return nil
}

func ValidateSubmitCompletionRequest(r *dto.SubmitCompletionRequest) error {
	if r.WorkerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "worker_id is required")
	}
	if !r.Skipped && len(r.AnswerData) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "answer_data is required")
	}
	if r.StartedAt != "" {
		if _, err := time.Parse(time.RFC3339, r.StartedAt); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "started_at must be RFC3339")
		}
	}
	return nil
}
