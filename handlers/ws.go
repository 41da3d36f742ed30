package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
)

const sessionUserKey = "user_id"

// WSHandler keeps one melody hub for every connected client and implements
// services.Publisher on top of it.
type WSHandler struct {
	M      *melody.Melody
	tokens *utils.TokenManager
}

type wsMessage struct {
	Type string               `json:"type"`
	Data *models.Notification `json:"data"`
}

func NewWSHandler(tokens *utils.TokenManager) *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 64 * 1024

	// Keep-Alive (hébergement cloud)
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		userID, _ := s.Get(sessionUserKey)
		utils.SafeInfo("🔌 WebSocket connected for user %v", userID)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		userID, _ := s.Get(sessionUserKey)
		utils.SafeInfo("🔌 WebSocket disconnected for user %v", userID)
	})
	m.HandleError(func(s *melody.Session, err error) {
		utils.SafeWarn("WebSocket error: %v", err)
	})

	return &WSHandler{M: m, tokens: tokens}
}

// HandleWS upgrades the request. Browsers cannot set headers on a socket
// handshake so the JWT comes in the token query parameter.
// GET /api/ws?token=...
func (h *WSHandler) HandleWS(c *gin.Context) {
	claims, err := h.tokens.Parse(c.Query("token"))
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	keys := map[string]any{sessionUserKey: claims.UserID}
	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, keys); err != nil {
		utils.SafeWarn("Failed to upgrade websocket: %v", err)
	}
}

// Publish pushes the notification to every session of userID. Delivery is
// fire-and-forget: users without an open socket simply miss the push.
func (h *WSHandler) Publish(userID string, n *models.Notification) {
	msg, err := json.Marshal(wsMessage{Type: "notification", Data: n})
	if err != nil {
		utils.SafeWarn("Encode notification: %v", err)
		return
	}
	err = h.M.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, exists := s.Get(sessionUserKey)
		return exists && id == userID
	})
	if err != nil {
		utils.SafeWarn("Broadcast to user %s failed: %v", userID, err)
	}
}

// Close disconnects every session.
func (h *WSHandler) Close() error {
	return h.M.Close()
}
