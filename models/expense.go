package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency"`
	Description      string            `json:"description"`
	CategoryID       string            `json:"category_id"`
	Category         *Category         `json:"category,omitempty"`
	Date             time.Time         `json:"date"`
	Location         *Location         `json:"location,omitempty"`
	Tags             []string          `json:"tags"`
	IsRecurring      bool              `json:"is_recurring"`
	RecurringPattern *RecurringPattern `json:"recurring_pattern,omitempty"`
	Mood             string            `json:"mood,omitempty"`
	Merchant         string            `json:"merchant,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

type Location struct {
	Latitude  float64 `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" binding:"gte=-180,lte=180"`
	Address   string  `json:"address,omitempty"`
	PlaceName string  `json:"place_name,omitempty"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
}

// Place is the label used when grouping spend by location.
func (l *Location) Place() string {
	switch {
	case l.PlaceName != "":
		return l.PlaceName
	case l.Address != "":
		return l.Address
	case l.City != "":
		return l.City
	}
	return ""
}

type RecurringPattern struct {
	Type       string     `json:"type" binding:"required,oneof=daily weekly monthly yearly"`
	Interval   int        `json:"interval" binding:"required,min=1"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	DayOfWeek  *int       `json:"day_of_week,omitempty" binding:"omitempty,min=0,max=6"`
	DayOfMonth *int       `json:"day_of_month,omitempty" binding:"omitempty,min=1,max=31"`
}

// ============================================================================
// REQUESTS
// ============================================================================

type CreateExpenseRequest struct {
	Amount           decimal.Decimal   `json:"amount" binding:"required,gt=0"`
	Currency         string            `json:"currency" binding:"omitempty,len=3,alpha"`
	Description      string            `json:"description" binding:"required,max=500"`
	CategoryID       string            `json:"category_id" binding:"required"`
	Date             time.Time         `json:"date"`
	Location         *Location         `json:"location"`
	Tags             []string          `json:"tags" binding:"omitempty,dive,max=50"`
	IsRecurring      bool              `json:"is_recurring"`
	RecurringPattern *RecurringPattern `json:"recurring_pattern"`
	Mood             string            `json:"mood" binding:"omitempty,oneof=happy neutral stressed"`
	Merchant         string            `json:"merchant" binding:"omitempty,max=200"`
}

type UpdateExpenseRequest struct {
	Amount           *decimal.Decimal  `json:"amount" binding:"omitempty,gt=0"`
	Currency         *string           `json:"currency" binding:"omitempty,len=3,alpha"`
	Description      *string           `json:"description" binding:"omitempty,min=1,max=500"`
	CategoryID       *string           `json:"category_id" binding:"omitempty,min=1"`
	Date             *time.Time        `json:"date"`
	Location         *Location         `json:"location"`
	Tags             []string          `json:"tags" binding:"omitempty,dive,max=50"`
	IsRecurring      *bool             `json:"is_recurring"`
	RecurringPattern *RecurringPattern `json:"recurring_pattern"`
	Mood             *string           `json:"mood" binding:"omitempty,oneof=happy neutral stressed"`
	Merchant         *string           `json:"merchant" binding:"omitempty,max=200"`
}

type ParseExpenseRequest struct {
	Text   string `json:"text" binding:"required,max=500"`
	Create bool   `json:"create"`
}

type CategorizeRequest struct {
	Label string `json:"label" binding:"required,max=200"`
}

type CategorizeResponse struct {
	Label    string `json:"label"`
	Category string `json:"category"`
	Source   string `json:"source"`
}

// ExpenseFilter narrows an expense listing. Zero values mean "no constraint".
type ExpenseFilter struct {
	CategoryID string
	StartDate  *time.Time
	EndDate    *time.Time
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	Page       int
	Limit      int
}

func (f ExpenseFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
