package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/trendwatch-backend/internal/http/response"
	"github.com/yungbote/trendwatch-backend/internal/platform/apierr"
	"github.com/yungbote/trendwatch-backend/internal/services"
)

type ResolutionHandler struct {
	incidents services.IncidentService
}

func NewResolutionHandler(incidents services.IncidentService) *ResolutionHandler {
	return &ResolutionHandler{incidents: incidents}
}

// GET /api/resolutions?category=&limit=
func (h *ResolutionHandler) List(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			response.RespondAPIError(c, apierr.BadRequest("invalid_limit", fmt.Errorf("limit must be between 1 and 100")))
			return
		}
		limit = n
	}
	rows, err := h.incidents.ListResolutions(c.Request.Context(), c.Query("category"), limit)
	if err != nil {
		response.RespondAPIError(c, storeError(err))
		return
	}
	response.RespondOK(c, gin.H{"resolutions": rows})
}

// GET /api/resolutions/:id
func (h *ResolutionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_resolution_id", err))
		return
	}
	row, err := h.incidents.GetResolution(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, storeError(err))
		return
	}
	if row == nil {
		response.RespondAPIError(c, apierr.NotFound("resolution_not_found"))
		return
	}
	response.RespondOK(c, gin.H{"resolution": row})
}

func storeError(err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return apierr.BadRequest("invalid_input", err)
	case services.IsUnavailableError(err):
		return apierr.Unavailable("store_unavailable", err)
	default:
		return err
	}
}
