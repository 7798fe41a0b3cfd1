package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/trendwatch-backend/internal/http/response"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/realtime"
)

var streamChannels = map[string]bool{
	realtime.ChannelResolutions: true,
	realtime.ChannelEscalations: true,
	realtime.ChannelCycles:      true,
	realtime.ChannelTickets:     true,
}

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/stream?channel=resolutions&channel=escalations
// Without a channel parameter the client is subscribed to every channel.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	var channels []string
	for _, raw := range c.QueryArray("channel") {
		for _, ch := range strings.Split(raw, ",") {
			ch = strings.ToLower(strings.TrimSpace(ch))
			if ch == "" {
				continue
			}
			if !streamChannels[ch] {
				response.RespondError(c, http.StatusBadRequest, "invalid_channel", nil)
				return
			}
			channels = append(channels, ch)
		}
	}
	if len(channels) == 0 {
		for ch := range streamChannels {
			channels = append(channels, ch)
		}
	}

	client := h.hub.NewClient()
	for _, ch := range channels {
		h.hub.AddChannel(client, ch)
	}
	h.log.Info("stream open", "client_id", client.ID, "channels", channels)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("stream closed", "client_id", client.ID)
}
