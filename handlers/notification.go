package handlers

import (
	"github.com/LovationAdmin/trackit-api/middleware"
	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/services"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	Notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Notifications: notifications}
}

// List returns the 50 most recent notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	list, err := h.Notifications.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, list)
}

func (h *NotificationHandler) Unread(c *gin.Context) {
	count, err := h.Notifications.UnreadCount(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, gin.H{"count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.Notifications.MarkRead(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	message(c, "Notification marked as read")
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	changed, err := h.Notifications.MarkAllRead(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, gin.H{"updated": changed})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.Notifications.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	message(c, "Notification deleted successfully")
}

// Create stores a notification for the caller and pushes it to their open
// sockets.
// POST /api/notifications
func (h *NotificationHandler) Create(c *gin.Context) {
	var req models.CreateNotificationRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.Notifications.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	created(c, n)
}
