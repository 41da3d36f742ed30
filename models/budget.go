package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Name      string           `json:"name"`
	Icon      string           `json:"icon"`
	Color     string           `json:"color"`
	ParentID  *string          `json:"parent_id,omitempty"`
	Budget    *decimal.Decimal `json:"budget,omitempty"`
	Spent     decimal.Decimal  `json:"spent"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type CreateCategoryRequest struct {
	Name     string           `json:"name" binding:"required,max=50"`
	Icon     string           `json:"icon" binding:"omitempty,max=16"`
	Color    string           `json:"color" binding:"omitempty,hexcolor"`
	ParentID *string          `json:"parent_id"`
	Budget   *decimal.Decimal `json:"budget" binding:"omitempty,gte=0"`
}

type UpdateCategoryRequest struct {
	Name     *string          `json:"name" binding:"omitempty,min=1,max=50"`
	Icon     *string          `json:"icon" binding:"omitempty,max=16"`
	Color    *string          `json:"color" binding:"omitempty,hexcolor"`
	ParentID *string          `json:"parent_id"`
	Budget   *decimal.Decimal `json:"budget" binding:"omitempty,gte=0"`
}

// ============================================================================
// BUDGETS
// ============================================================================

const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

type Budget struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Period        string          `json:"period"`
	CategoryIDs   []string        `json:"category_ids"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	IsActive      bool            `json:"is_active"`
	LastAlertedAt *time.Time      `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// BudgetStatus is a budget with its spend over the current period window.
type BudgetStatus struct {
	Budget
	Spent           decimal.Decimal `json:"spent"`
	Remaining       decimal.Decimal `json:"remaining"`
	SpentPercentage float64         `json:"spent_percentage"`
	Status          string          `json:"status"`
}

type CreateBudgetRequest struct {
	Name        string          `json:"name" binding:"required,max=100"`
	Amount      decimal.Decimal `json:"amount" binding:"required,gt=0"`
	Currency    string          `json:"currency" binding:"omitempty,len=3,alpha"`
	Period      string          `json:"period" binding:"required,oneof=daily weekly monthly yearly"`
	CategoryIDs []string        `json:"category_ids"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     *time.Time      `json:"end_date"`
}

type UpdateBudgetRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=100"`
	Amount      *decimal.Decimal `json:"amount" binding:"omitempty,gt=0"`
	Period      *string          `json:"period" binding:"omitempty,oneof=daily weekly monthly yearly"`
	CategoryIDs []string         `json:"category_ids"`
	EndDate     *time.Time       `json:"end_date"`
	IsActive    *bool            `json:"is_active"`
}
