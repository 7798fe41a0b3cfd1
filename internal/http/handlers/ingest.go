package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/trendwatch-backend/internal/http/response"
	"github.com/yungbote/trendwatch-backend/internal/platform/apierr"
	"github.com/yungbote/trendwatch-backend/internal/services"
)

type IngestHandler struct {
	incidents services.IncidentService
}

func NewIngestHandler(incidents services.IncidentService) *IngestHandler {
	return &IngestHandler{incidents: incidents}
}

// POST /api/events
func (h *IngestHandler) Events(c *gin.Context) {
	var req struct {
		Events []services.EventInput `json:"events"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_body", err))
		return
	}
	created, err := h.incidents.IngestEvents(c.Request.Context(), req.Events)
	if err != nil {
		response.RespondAPIError(c, storeError(err))
		return
	}
	ids := make([]string, 0, len(created))
	for _, e := range created {
		ids = append(ids, e.RefID)
	}
	c.JSON(http.StatusCreated, gin.H{"accepted": len(created), "ref_ids": ids})
}

// POST /api/articles
func (h *IngestHandler) Articles(c *gin.Context) {
	var req struct {
		Articles []services.ArticleInput `json:"articles"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_body", err))
		return
	}
	created, err := h.incidents.IngestArticles(c.Request.Context(), req.Articles)
	if err != nil {
		response.RespondAPIError(c, storeError(err))
		return
	}
	ids := make([]string, 0, len(created))
	for _, a := range created {
		ids = append(ids, a.ID.String())
	}
	c.JSON(http.StatusCreated, gin.H{"accepted": len(created), "ids": ids})
}
