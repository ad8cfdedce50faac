package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/olahol/melody"
	"github.com/rs/zerolog"

	"github.com/LovationAdmin/travel-planner-api/models"
)

const planIDKey = "plan_id"

// WSHandler streams plan progress to websocket clients. Clients subscribe
// to one plan id, usually before posting the plan with the same plan_id.
type WSHandler struct {
	M   *melody.Melody
	log zerolog.Logger
}

func NewWSHandler(log zerolog.Logger) *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 4 * 1024

	// Keep-Alive Configuration (Critical for Render.com/Cloud hosting)
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	h := &WSHandler{M: m, log: log}

	m.HandleConnect(func(s *melody.Session) {
		planID, _ := s.Get(planIDKey)
		h.log.Debug().Interface(planIDKey, planID).Msg("[WS] client connected")
	})

	m.HandleDisconnect(func(s *melody.Session) {
		planID, _ := s.Get(planIDKey)
		h.log.Debug().Interface(planIDKey, planID).Msg("[WS] client disconnected")
	})

	m.HandleError(func(s *melody.Session, err error) {
		h.log.Warn().Err(err).Msg("[WS] websocket error")
	})

	return h
}

// HandleWS upgrades the request and tags the session with the plan id.
// GET /api/v1/ws/plans/:id
func (h *WSHandler) HandleWS(c *gin.Context) {
	planID := c.Param("id")
	if _, err := uuid.Parse(planID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan id"})
		return
	}

	err := h.M.HandleRequestWithKeys(c.Writer, c.Request, map[string]interface{}{planIDKey: planID})
	if err != nil {
		h.log.Warn().Err(err).Msg("[WS] failed to upgrade websocket")
	}
}

// Notify sends a progress event to every session watching its plan.
func (h *WSHandler) Notify(event models.ProgressEvent) {
	msg, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("[WS] failed to encode progress event")
		return
	}

	err = h.M.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, exists := s.Get(planIDKey)
		return exists && id == event.PlanID
	})
	if err != nil {
		h.log.Warn().Err(err).Str(planIDKey, event.PlanID).Msg("[WS] broadcast failed")
	}
}

// Close disconnects every client.
func (h *WSHandler) Close() error {
	return h.M.Close()
}
