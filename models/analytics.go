package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SpendingQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	GroupBy   string
}

type CategorySpending struct {
	Category *Category       `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
}

// TrendPoint is one bucket of the spending trend. Key is a date, an ISO week,
// a month or a category name depending on the grouping.
type TrendPoint struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
}

type MonthlyComparison struct {
	CurrentMonth     decimal.Decimal `json:"current_month"`
	PreviousMonth    decimal.Decimal `json:"previous_month"`
	Change           decimal.Decimal `json:"change"`
	ChangePercentage float64         `json:"change_percentage"`
}

type SpendingAnalytics struct {
	TotalSpent        decimal.Decimal    `json:"total_spent"`
	AverageDaily      decimal.Decimal    `json:"average_daily"`
	CategorySpending  []CategorySpending `json:"category_spending"`
	SpendingTrend     []TrendPoint       `json:"spending_trend"`
	MonthlyComparison MonthlyComparison  `json:"monthly_comparison"`
}

type LocationInsight struct {
	Place   string          `json:"place"`
	Total   decimal.Decimal `json:"total"`
	Visits  int             `json:"visits"`
	Average decimal.Decimal `json:"average"`
}

type Prediction struct {
	Date       time.Time       `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	Confidence float64         `json:"confidence"`
}
