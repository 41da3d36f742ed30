package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/LovationAdmin/trackit-api/insights"
	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/parser"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/shopspring/decimal"
)

const (
	GroupByDay      = "day"
	GroupByWeek     = "week"
	GroupByMonth    = "month"
	GroupByCategory = "category"

	averageDays      = 30
	predictionDays   = 30
	predictionWindow = 90
	insightWindow    = 90
	locationLimit    = 10

	defaultMonthlyBudget = 2000
)

var farFuture = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Converter converts an amount between currency codes; ok is false when the
// pair is unknown.
type Converter interface {
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, bool)
}

// InsightReport bundles the derived insights and the savings tree.
type InsightReport struct {
	Insights []insights.Insight `json:"insights"`
	Tree     insights.Tree      `json:"tree"`
}

type AnalyticsService struct {
	expenses  repository.ExpenseRepository
	users     repository.UserRepository
	budgets   *BudgetService
	converter Converter
	now       func() time.Time
}

func NewAnalyticsService(store *repository.Store, budgets *BudgetService, converter Converter) *AnalyticsService {
	return &AnalyticsService{
		expenses:  store.Expenses,
		users:     store.Users,
		budgets:   budgets,
		converter: converter,
		now:       time.Now,
	}
}

// baseCurrency is the user's preferred reporting currency.
func (s *AnalyticsService) baseCurrency(ctx context.Context, userID string) string {
	if u, err := s.users.GetByID(ctx, userID); err == nil && u.Preferences.Currency != "" {
		return strings.ToUpper(u.Preferences.Currency)
	}
	return defaultCurrency
}

// amount normalises e into the base currency. Without a converter, or for an
// unknown pair, the stored amount is used as is.
func (s *AnalyticsService) amount(e models.Expense, base string) decimal.Decimal {
	if s.converter == nil || e.Currency == "" || strings.EqualFold(e.Currency, base) {
		return e.Amount
	}
	if v, ok := s.converter.Convert(e.Amount, e.Currency, base); ok {
		return v
	}
	return e.Amount
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func trendKey(e models.Expense, groupBy string) string {
	switch groupBy {
	case GroupByWeek:
		y, w := e.Date.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case GroupByMonth:
		return e.Date.Format("2006-01")
	case GroupByCategory:
		if e.Category != nil {
			return e.Category.Name
		}
		return parser.CategoryOther
	}
	return e.Date.Format("2006-01-02")
}

// Spending aggregates the expenses in the query range. End dates are
// inclusive.
func (s *AnalyticsService) Spending(ctx context.Context, userID string, q models.SpendingQuery) (*models.SpendingAnalytics, error) {
	from, to := time.Time{}, farFuture
	if q.StartDate != nil {
		from = *q.StartDate
	}
	if q.EndDate != nil {
		to = q.EndDate.Add(time.Nanosecond)
	}
	groupBy := q.GroupBy
	if groupBy == "" {
		groupBy = GroupByDay
	}

	expenses, err := s.expenses.Between(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	base := s.baseCurrency(ctx, userID)

	total := decimal.Zero
	byCategory := map[string]*models.CategorySpending{}
	var categoryOrder []string
	trend := map[string]decimal.Decimal{}
	for _, e := range expenses {
		amt := s.amount(e, base)
		total = total.Add(amt)

		cs, ok := byCategory[e.CategoryID]
		if !ok {
			cs = &models.CategorySpending{Category: e.Category, Amount: decimal.Zero}
			byCategory[e.CategoryID] = cs
			categoryOrder = append(categoryOrder, e.CategoryID)
		}
		cs.Amount = cs.Amount.Add(amt)
		cs.Count++

		key := trendKey(e, groupBy)
		trend[key] = trend[key].Add(amt)
	}

	out := &models.SpendingAnalytics{
		TotalSpent:       total,
		AverageDaily:     total.DivRound(decimal.NewFromInt(averageDays), 2),
		CategorySpending: make([]models.CategorySpending, 0, len(byCategory)),
		SpendingTrend:    make([]models.TrendPoint, 0, len(trend)),
	}
	for _, id := range categoryOrder {
		out.CategorySpending = append(out.CategorySpending, *byCategory[id])
	}
	sort.SliceStable(out.CategorySpending, func(i, j int) bool {
		return out.CategorySpending[i].Amount.GreaterThan(out.CategorySpending[j].Amount)
	})

	for key, amt := range trend {
		out.SpendingTrend = append(out.SpendingTrend, models.TrendPoint{Key: key, Amount: amt})
	}
	sort.Slice(out.SpendingTrend, func(i, j int) bool {
		a, b := out.SpendingTrend[i], out.SpendingTrend[j]
		if groupBy == GroupByCategory && !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Key < b.Key
	})

	out.MonthlyComparison, err = s.monthlyComparison(ctx, userID, base)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AnalyticsService) sumBetween(ctx context.Context, userID, base string, from, to time.Time) (decimal.Decimal, error) {
	list, err := s.expenses.Between(ctx, userID, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range list {
		total = total.Add(s.amount(e, base))
	}
	return total, nil
}

func (s *AnalyticsService) monthlyComparison(ctx context.Context, userID, base string) (models.MonthlyComparison, error) {
	start := monthStart(s.now())
	current, err := s.sumBetween(ctx, userID, base, start, start.AddDate(0, 1, 0))
	if err != nil {
		return models.MonthlyComparison{}, err
	}
	previous, err := s.sumBetween(ctx, userID, base, start.AddDate(0, -1, 0), start)
	if err != nil {
		return models.MonthlyComparison{}, err
	}

	mc := models.MonthlyComparison{
		CurrentMonth:  current,
		PreviousMonth: previous,
		Change:        current.Sub(previous),
	}
	if previous.IsPositive() {
		mc.ChangePercentage = mc.Change.Mul(hundred).DivRound(previous, 2).InexactFloat64()
	}
	return mc, nil
}

// Budgets lists the user's active budgets with their current status.
func (s *AnalyticsService) Budgets(ctx context.Context, userID string) ([]models.BudgetStatus, error) {
	return s.budgets.Active(ctx, userID)
}

// Locations ranks the places the user spends the most at.
func (s *AnalyticsService) Locations(ctx context.Context, userID string) ([]models.LocationInsight, error) {
	expenses, err := s.expenses.Between(ctx, userID, time.Time{}, farFuture)
	if err != nil {
		return nil, err
	}
	base := s.baseCurrency(ctx, userID)

	byPlace := map[string]*models.LocationInsight{}
	for _, e := range expenses {
		if e.Location == nil {
			continue
		}
		place := e.Location.Place()
		if place == "" {
			continue
		}
		li, ok := byPlace[place]
		if !ok {
			li = &models.LocationInsight{Place: place, Total: decimal.Zero}
			byPlace[place] = li
		}
		li.Total = li.Total.Add(s.amount(e, base))
		li.Visits++
	}

	out := make([]models.LocationInsight, 0, len(byPlace))
	for _, li := range byPlace {
		li.Average = li.Total.DivRound(decimal.NewFromInt(int64(li.Visits)), 2)
		out = append(out, *li)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Place < out[j].Place
	})
	if len(out) > locationLimit {
		out = out[:locationLimit]
	}
	return out, nil
}

// Predictions projects the trailing 90-day daily average over the next 30
// days with decreasing confidence.
func (s *AnalyticsService) Predictions(ctx context.Context, userID string) ([]models.Prediction, error) {
	now := s.now()
	total, err := s.sumBetween(ctx, userID, s.baseCurrency(ctx, userID),
		now.AddDate(0, 0, -predictionWindow), now.Add(time.Nanosecond))
	if err != nil {
		return nil, err
	}
	daily := total.DivRound(decimal.NewFromInt(predictionWindow), 2)

	today := dayStart(now)
	out := make([]models.Prediction, predictionDays)
	for i := range out {
		confidence := math.Max(0.5, 1-0.02*float64(i))
		out[i] = models.Prediction{
			Date:       today.AddDate(0, 0, i+1),
			Amount:     daily,
			Confidence: math.Round(confidence*100) / 100,
		}
	}
	return out, nil
}

// monthlyBudget is the sum of the user's active monthly budgets, or the
// default allowance when none exist.
func (s *AnalyticsService) monthlyBudget(ctx context.Context, userID string) (float64, error) {
	active, err := s.budgets.Active(ctx, userID)
	if err != nil {
		return 0, err
	}
	total := decimal.Zero
	for _, b := range active {
		if b.Period == models.PeriodMonthly {
			total = total.Add(b.Amount)
		}
	}
	if total.IsZero() {
		return defaultMonthlyBudget, nil
	}
	return total.InexactFloat64(), nil
}

// Insights derives observations from the last 90 days of expenses.
func (s *AnalyticsService) Insights(ctx context.Context, userID string) (*InsightReport, error) {
	now := s.now()
	expenses, err := s.expenses.Between(ctx, userID, now.AddDate(0, 0, -insightWindow), now.Add(time.Nanosecond))
	if err != nil {
		return nil, err
	}
	base := s.baseCurrency(ctx, userID)

	entries := make([]insights.Entry, 0, len(expenses))
	for _, e := range expenses {
		category := parser.CategoryOther
		if e.Category != nil {
			category = strings.ToLower(e.Category.Name)
		}
		entries = append(entries, insights.Entry{
			Amount:      s.amount(e, base).InexactFloat64(),
			Category:    category,
			Mood:        e.Mood,
			Merchant:    e.Merchant,
			Description: e.Description,
			Time:        e.Date,
		})
	}

	budget, err := s.monthlyBudget(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &InsightReport{
		Insights: insights.Generate(entries, insights.Options{Now: now, MonthlyBudget: budget, Currency: base}),
		Tree:     insights.SavingsTree(entries, now, budget),
	}, nil
}
