package models

import "time"

const (
	NotificationBudgetAlert = "budget_alert"
	NotificationAchievement = "achievement"
	NotificationReminder    = "reminder"
	NotificationInsight     = "insight"
	NotificationSystem      = "system"
)

type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

type CreateNotificationRequest struct {
	Type    string         `json:"type" binding:"required,max=50"`
	Title   string         `json:"title" binding:"required,max=200"`
	Message string         `json:"message" binding:"required,max=2000"`
	Data    map[string]any `json:"data"`
}

// ============================================================================
// ACHIEVEMENTS
// ============================================================================

type Achievement struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Key         string     `json:"key"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Progress    int        `json:"progress"`
	MaxProgress int        `json:"max_progress"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}
