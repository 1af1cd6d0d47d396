package http

import (
	"time"

	"github.com/labstack/echo/v4"

	middleware "pph-connect.com/pph-connect/internal/http/middlewares"
)

func Register(e *echo.Echo, h *Handler, rateLimitPerMinute int) {
	e.Use(middleware.RateLimiter(rateLimitPerMinute, time.Minute))

	// Workbench session lifecycle.
	e.POST("/workbench/:workerId/next", h.StartNext)
	e.POST("/workbench/:workerId/submit", h.Submit)
	e.POST("/workbench/:workerId/skip", h.Skip)
	e.POST("/workbench/:workerId/review", h.SubmitReview)
	e.POST("/workbench/:workerId/release", h.ReleaseCurrent)
	e.PUT("/workbench/:workerId/stage", h.SwitchStage)
	e.GET("/workbench/:workerId/selection", h.Selection)
	e.DELETE("/workbench/:workerId", h.CloseSession)

	// Raw claim lifecycle operations.
	e.POST("/projects/:id/claims", h.ClaimNext)
	e.GET("/projects/:id/claimable", h.CountClaimable)
	e.POST("/tasks/:id/release", h.ReleaseTask)
	e.POST("/tasks/:id/submit", h.SubmitCompletion)
	e.POST("/workers/:id/release-all", h.ReleaseAllForWorker)
}
