package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/trendwatch-backend/internal/http/response"
	"github.com/yungbote/trendwatch-backend/internal/jobs"
	"github.com/yungbote/trendwatch-backend/internal/pipeline"
	"github.com/yungbote/trendwatch-backend/internal/platform/apierr"
	"github.com/yungbote/trendwatch-backend/internal/platform/ctxutil"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

// CycleRunner is satisfied by *jobs.Runner.
type CycleRunner interface {
	RunOnce(ctx context.Context) (pipeline.Report, error)
	Last() (pipeline.Report, bool)
}

type CycleHandler struct {
	log    *logger.Logger
	runner CycleRunner
}

func NewCycleHandler(log *logger.Logger, runner CycleRunner) *CycleHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CycleHandler{log: log.With("handler", "CycleHandler"), runner: runner}
}

// POST /api/cycles
// Runs one cycle synchronously. Every finished cycle answers 200 with its
// report, including no_trend and dependency_unavailable outcomes.
func (h *CycleHandler) Run(c *gin.Context) {
	h.log.Info("cycle requested", "operator", ctxutil.GetOperator(c.Request.Context()))
	rep, err := h.runner.RunOnce(c.Request.Context())
	if errors.Is(err, jobs.ErrCycleInProgress) {
		response.RespondAPIError(c, apierr.Conflict("cycle_in_progress", err))
		return
	}
	if err != nil && rep.CycleID == "" {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cycle": rep})
}

// GET /api/cycles/last
func (h *CycleHandler) Last(c *gin.Context) {
	rep, ok := h.runner.Last()
	if !ok {
		response.RespondError(c, http.StatusNotFound, "no_cycle_yet", nil)
		return
	}
	response.RespondOK(c, gin.H{"cycle": rep})
}
