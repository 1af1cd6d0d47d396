package validators

import (
	"net/http"

	"github.com/labstack/echo/v4"

	dto "pph-connect.com/pph-connect/internal/data_models"
)

func ValidateClaimRequest(r *dto.ClaimRequest) error {
	if r.WorkerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "worker_id is required")
	}
	return nil
}

func ValidateStageRequest(r *dto.StageRequest) error {
	if r.Stage != "transcription" && r.Stage != "review" {
		return echo.NewHTTPError(http.StatusBadRequest, "stage must be transcription or review")
	}
	return nil
}
