package models

import "time"

// ============================================================================
// USER MODEL
// ============================================================================

type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Avatar       string      `json:"avatar,omitempty"`
	Preferences  Preferences `json:"preferences"`
	Level        int         `json:"level"`
	Experience   int         `json:"experience"`
	PasswordHash string      `json:"-"` // Never expose in JSON
	TOTPSecret   string      `json:"-"` // Encrypted at rest
	TOTPEnabled  bool        `json:"totp_enabled"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ============================================================================
// PREFERENCES
// ============================================================================

type Preferences struct {
	Currency      string                  `json:"currency"`
	Timezone      string                  `json:"timezone"`
	Theme         string                  `json:"theme"`
	Language      string                  `json:"language"`
	Notifications NotificationPreferences `json:"notifications"`
}

type NotificationPreferences struct {
	Push         bool `json:"push"`
	Email        bool `json:"email"`
	BudgetAlerts bool `json:"budget_alerts"`
	WeeklyReport bool `json:"weekly_report"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Currency: "USD",
		Timezone: "UTC",
		Theme:    "light",
		Language: "en",
		Notifications: NotificationPreferences{
			Push:         true,
			Email:        false,
			BudgetAlerts: true,
			WeeklyReport: true,
		},
	}
}

// ============================================================================
// AUTHENTICATION REQUESTS
// ============================================================================

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type UpdateProfileRequest struct {
	Name        *string      `json:"name" binding:"omitempty,min=2"`
	Avatar      *string      `json:"avatar" binding:"omitempty,max=2048"`
	Preferences *Preferences `json:"preferences"`
}

// ============================================================================
// 2FA
// ============================================================================

type TOTPSetupResponse struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"`
}

type VerifyTOTPRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}
