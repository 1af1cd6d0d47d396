package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"pph-connect.com/pph-connect/internal/constants"
	dto "pph-connect.com/pph-connect/internal/data_models"
	apperrors "pph-connect.com/pph-connect/internal/errors"
	"pph-connect.com/pph-connect/internal/http/validators"
	repository "pph-connect.com/pph-connect/internal/repositories"
	"pph-connect.com/pph-connect/internal/services"
)

type Handler struct {
	sessions    *services.SessionManager
	selector    *services.ProjectSelector
	claims      map[constants.Stage]*services.ClaimService
	lanes       map[constants.Stage]services.LaneOperations
	releases    *services.ReleaseService
	submissions *services.SubmissionService
}

func NewHandler(
	sessions *services.SessionManager,
	selector *services.ProjectSelector,
	claims map[constants.Stage]*services.ClaimService,
	lanes map[constants.Stage]services.LaneOperations,
	releases *services.ReleaseService,
	submissions *services.SubmissionService,
) *Handler {
	return &Handler{
		sessions:    sessions,
		selector:    selector,
		claims:      claims,
		lanes:       lanes,
		releases:    releases,
		submissions: submissions,
	}
}

func stageParam(c echo.Context) constants.Stage {
	if c.QueryParam("stage") == string(constants.StageReview) {
		return constants.StageReview
	}
	return constants.StageTranscription
}

// noWorkResponse is the explicit empty state: an exhausted pool answers 200,
// never an error status.
func noWorkResponse() dto.ClaimResponse {
	return dto.ClaimResponse{Success: false, Message: apperrors.ErrNoWorkAvailable.Message}
}

// translate maps domain errors onto HTTP responses. No-work is not an error
// and never reaches this function.
func translate(err error) error {
	var appErr *apperrors.Exception
	if errors.As(err, &appErr) {
		return echo.NewHTTPError(appErr.StatusCode, appErr.Message)
	}
	return echo.NewHTTPError(apperrors.StatusCode(err), "internal error")
}

// StartNext claims the worker's next unit in their active stage, creating
// the session on first use.
func (h *Handler) StartNext(c echo.Context) error {
	workerID := c.Param("workerId")
	if workerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "worker id is required")
	}

	ctx := c.Request().Context()
	session, err := h.sessions.GetOrCreate(ctx, workerID)
	if err != nil {
		return translate(apperrors.ErrClaimBackend)
	}

	claim, selected, err := session.StartNext(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrTrainingRequired) {
			resp := dto.ClaimResponse{Success: false, Reason: string(services.ReasonTrainingRequired)}
			if selected != nil {
				project := selected.Project
				resp.Project = &project
			}
			return c.JSON(http.StatusOK, resp)
		}
		if errors.Is(err, repository.ErrNoWorkAvailable) {
			return c.JSON(http.StatusOK, noWorkResponse())
		}
		return translate(err)
	}

	if claim == nil {
		return c.JSON(http.StatusOK, noWorkResponse())
	}

	resp := dto.ClaimResponse{Success: true, Task: claim}
	if selected != nil {
		project := selected.Project
		resp.Project = &project
		resp.AvailableCount = selected.AvailableCount
		resp.Reason = string(selected.Reason)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Submit(c echo.Context) error {
	workerID := c.Param("workerId")
	session := h.sessions.Get(workerID)
	if session == nil {
		return translate(apperrors.ErrTaskNotFound)
	}

	var req dto.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if err := validators.ValidateSubmitRequest(&req); err != nil {
		return err
	}

	result, next, err := session.Submit(c.Request().Context(), req.AnswerData)
	if err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, dto.SubmitResponse{Result: result, Next: next})
}

func (h *Handler) Skip(c echo.Context) error {
	workerID := c.Param("workerId")
	session := h.sessions.Get(workerID)
	if session == nil {
		return translate(apperrors.ErrTaskNotFound)
	}

	var req dto.SkipRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	result, next, err := session.Skip(c.Request().Context(), req.Reason)
	if err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, dto.SubmitResponse{Result: result, Next: next})
}

func (h *Handler) SubmitReview(c echo.Context) error {
	workerID := c.Param("workerId")
	session := h.sessions.Get(workerID)
	if session == nil {
		return translate(apperrors.ErrTaskNotFound)
	}

	var req dto.ReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if err := validators.ValidateReviewRequest(&req); err != nil {
		return err
	}

	review, next, err := session.SubmitReview(c.Request().Context(), services.SubmitReviewInput{
		RatingOverall: req.RatingOverall,
		HighlightTags: req.HighlightTags,
		Feedback:      req.Feedback,
		InternalNotes: req.InternalNotes,
		ReviewPayload: req.ReviewPayload,
	})
	if err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, dto.ReviewResponse{Review: review, Next: next})
}

// ReleaseCurrent is the explicit release button.
func (h *Handler) ReleaseCurrent(c echo.Context) error {
	workerID := c.Param("workerId")
	session := h.sessions.Get(workerID)
	if session == nil {
		return c.JSON(http.StatusOK, dto.ReleaseResponse{Released: false})
	}

	released, err := session.ReleaseCurrent(c.Request().Context())
	if err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, dto.ReleaseResponse{Released: released})
}

func (h *Handler) SwitchStage(c echo.Context) error {
	workerID := c.Param("workerId")

	var req dto.StageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if err := validators.ValidateStageRequest(&req); err != nil {
		return err
	}

	session, err := h.sessions.GetOrCreate(c.Request().Context(), workerID)
	if err != nil {
		return translate(apperrors.ErrClaimBackend)
	}

	if err := session.SwitchStage(constants.Stage(req.Stage)); err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "stage not available for this worker")
	}
	return c.JSON(http.StatusOK, dto.StageResponse{Stage: string(session.Stage())})
}

// CloseSession is the teardown endpoint for tab close and navigation. It is
// safe to call repeatedly; everything held is released.
func (h *Handler) CloseSession(c echo.Context) error {
	workerID := c.Param("workerId")
	if err := h.sessions.Close(c.Request().Context(), workerID); err != nil {
		return translate(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Selection reports which project the worker would pull from next, without
// claiming.
func (h *Handler) Selection(c echo.Context) error {
	workerID := c.Param("workerId")
	if workerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "worker id is required")
	}

	selected, err := h.selector.SelectNext(c.Request().Context(), workerID, stageParam(c))
	if err != nil {
		return translate(apperrors.ErrClaimBackend)
	}
	if selected == nil {
		return c.JSON(http.StatusOK, noWorkResponse())
	}

	project := selected.Project
	return c.JSON(http.StatusOK, dto.ClaimResponse{
		Success:        true,
		Project:        &project,
		AvailableCount: selected.AvailableCount,
		Reason:         string(selected.Reason),
	})
}

// ClaimNext is the raw claim operation for a known project, bypassing the
// selector.
func (h *Handler) ClaimNext(c echo.Context) error {
	projectID := c.Param("id")

	var req dto.ClaimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if err := validators.ValidateClaimRequest(&req); err != nil {
		return err
	}

	claimSvc := h.claims[stageParam(c)]
	claim, err := claimSvc.ClaimNext(c.Request().Context(), projectID, req.WorkerID)
	if err != nil {
		if errors.Is(err, repository.ErrNoWorkAvailable) {
			return c.JSON(http.StatusOK, noWorkResponse())
		}
		return translate(err)
	}
	return c.JSON(http.StatusOK, dto.ClaimResponse{Success: true, Task: claim})
}

// ReleaseTask releases one task by id. Idempotent: releasing an already
// released or finalized task reports released=false.
func (h *Handler) ReleaseTask(c echo.Context) error {
	taskID := c.Param("id")
	if taskID == "" {
		return translate(apperrors.ErrTaskIDRequired)
	}

	var req dto.ReleaseRequest
	_ = c.Bind(&req)
	stage := constants.StageTranscription
	if req.Stage == string(constants.StageReview) {
		stage = constants.StageReview
	}

	released, err := h.releases.Release(c.Request().Context(), taskID, stage)
	if err != nil {
		return translate(apperrors.ErrClaimBackend)
	}
	return c.JSON(http.StatusOK, dto.ReleaseResponse{Released: released})
}

// ReleaseAllForWorker is the bulk fallback release across both lanes.
func (h *Handler) ReleaseAllForWorker(c echo.Context) error {
	workerID := c.Param("id")
	if workerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "worker id is required")
	}

	count, err := h.releases.ReleaseEverything(c.Request().Context(), workerID)
	if err != nil {
		return translate(apperrors.ErrClaimBackend)
	}
	return c.JSON(http.StatusOK, dto.ReleaseAllResponse{ReleasedCount: count})
}

// CountClaimable short-circuits the selector for dashboards.
func (h *Handler) CountClaimable(c echo.Context) error {
	projectID := c.Param("id")
	lane := h.lanes[stageParam(c)]

	count, err := lane.CountClaimable(c.Request().Context(), projectID, c.QueryParam("worker_id"))
	if err != nil {
		return translate(apperrors.ErrClaimBackend)
	}
	return c.JSON(http.StatusOK, dto.CountResponse{Count: count})
}

// SubmitCompletion is the stateless finalization operation for callers that
// hold a task id but no live session.
func (h *Handler) SubmitCompletion(c echo.Context) error {
	taskID := c.Param("id")
	if taskID == "" {
		return translate(apperrors.ErrTaskIDRequired)
	}

	var req dto.SubmitCompletionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if err := validators.ValidateSubmitCompletionRequest(&req); err != nil {
		return err
	}

	startedAt := time.Now().UTC()
	if req.StartedAt != "" {
		startedAt, _ = time.Parse(time.RFC3339, req.StartedAt)
	}

	ctx := c.Request().Context()
	var result *services.SubmissionResult
	var err error
	if req.Skipped {
		projectID, findErr := skipProjectID(c)
		if findErr != nil {
			return findErr
		}
		result, err = h.submissions.Skip(ctx, taskID, req.WorkerID, projectID, req.SkipReason, startedAt)
	} else {
		result, err = h.submissions.Complete(ctx, taskID, req.WorkerID, req.AnswerData, startedAt)
	}
	if err != nil {
		return translate(err)
	}
	return c.JSON(http.StatusOK, dto.SubmitResponse{Result: result})
}

func skipProjectID(c echo.Context) (string, error) {
	projectID := c.QueryParam("project_id")
	if projectID == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "project_id is required when skipping")
	}
	return projectID, nil
}
