package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusGood     = "good"
	StatusWarning  = "warning"
	StatusCritical = "critical"

	warningThreshold  = 75.0
	criticalThreshold = 90.0
)

var hundred = decimal.NewFromInt(100)

// PeriodWindow returns the [from, to) window of period that contains now.
// Weeks start on Sunday.
func PeriodWindow(period string, now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	loc := now.Location()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch period {
	case models.PeriodDaily:
		return day, day.AddDate(0, 0, 1)
	case models.PeriodWeekly:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return start, start.AddDate(0, 0, 7)
	case models.PeriodYearly:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	default:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	}
}

// StatusFor classifies a spent percentage.
func StatusFor(percentage float64) string {
	switch {
	case percentage >= criticalThreshold:
		return StatusCritical
	case percentage >= warningThreshold:
		return StatusWarning
	}
	return StatusGood
}

type BudgetService struct {
	budgets       repository.BudgetRepository
	categories    repository.CategoryRepository
	expenses      repository.ExpenseRepository
	users         repository.UserRepository
	notifications *NotificationService
	mailer        *EmailService
	now           func() time.Time
}

func NewBudgetService(store *repository.Store, notifications *NotificationService, mailer *EmailService) *BudgetService {
	return &BudgetService{
		budgets:       store.Budgets,
		categories:    store.Categories,
		expenses:      store.Expenses,
		users:         store.Users,
		notifications: notifications,
		mailer:        mailer,
		now:           time.Now,
	}
}

func (s *BudgetService) checkCategories(ctx context.Context, userID string, ids []string) error {
	for _, id := range ids {
		if _, err := s.categories.Get(ctx, userID, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCategoryNotFound
			}
			return err
		}
	}
	return nil
}

// Status computes spend over the budget's current period window.
func (s *BudgetService) Status(ctx context.Context, b models.Budget) (*models.BudgetStatus, error) {
	from, to := PeriodWindow(b.Period, s.now())
	if b.StartDate.After(from) {
		from = b.StartDate
	}

	expenses, err := s.expenses.Between(ctx, b.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("budget %s spend: %w", b.ID, err)
	}

	inScope := make(map[string]bool, len(b.CategoryIDs))
	for _, id := range b.CategoryIDs {
		inScope[id] = true
	}
	spent := decimal.Zero
	for _, e := range expenses {
		if len(inScope) == 0 || inScope[e.CategoryID] {
			spent = spent.Add(e.Amount)
		}
	}

	pct := 0.0
	if b.Amount.IsPositive() {
		pct = spent.Mul(hundred).Div(b.Amount).Round(2).InexactFloat64()
	}
	return &models.BudgetStatus{
		Budget:          b,
		Spent:           spent,
		Remaining:       b.Amount.Sub(spent),
		SpentPercentage: pct,
		Status:          StatusFor(pct),
	}, nil
}

func (s *BudgetService) statuses(ctx context.Context, budgets []models.Budget, activeOnly bool) ([]models.BudgetStatus, error) {
	out := make([]models.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		if activeOnly && !b.IsActive {
			continue
		}
		st, err := s.Status(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, nil
}

func (s *BudgetService) List(ctx context.Context, userID string) ([]models.BudgetStatus, error) {
	list, err := s.budgets.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.statuses(ctx, list, false)
}

// Active lists the user's active budgets with their current status.
func (s *BudgetService) Active(ctx context.Context, userID string) ([]models.BudgetStatus, error) {
	list, err := s.budgets.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.statuses(ctx, list, true)
}

func (s *BudgetService) Get(ctx context.Context, userID, id string) (*models.BudgetStatus, error) {
	b, err := s.budgets.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Status(ctx, *b)
}

func (s *BudgetService) Create(ctx context.Context, userID string, req models.CreateBudgetRequest) (*models.BudgetStatus, error) {
	if err := s.checkCategories(ctx, userID, req.CategoryIDs); err != nil {
		return nil, err
	}
	b := models.Budget{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		Amount:      req.Amount,
		Currency:    normalizeCurrency(req.Currency),
		Period:      req.Period,
		CategoryIDs: req.CategoryIDs,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsActive:    true,
	}
	if b.StartDate.IsZero() {
		b.StartDate, _ = PeriodWindow(b.Period, s.now())
	}
	if b.CategoryIDs == nil {
		b.CategoryIDs = []string{}
	}
	if err := s.budgets.Create(ctx, &b); err != nil {
		return nil, err
	}
	return s.Status(ctx, b)
}

func (s *BudgetService) Update(ctx context.Context, userID, id string, req models.UpdateBudgetRequest) (*models.BudgetStatus, error) {
	b, err := s.budgets.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if req.Name != nil {
		b.Name = strings.TrimSpace(*req.Name)
	}
	if req.Amount != nil {
		b.Amount = *req.Amount
	}
	if req.Period != nil {
		b.Period = *req.Period
	}
	if req.CategoryIDs != nil {
		if err := s.checkCategories(ctx, userID, req.CategoryIDs); err != nil {
			return nil, err
		}
		b.CategoryIDs = req.CategoryIDs
	}
	if req.EndDate != nil {
		b.EndDate = req.EndDate
	}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}
	if err := s.budgets.Update(ctx, b); err != nil {
		return nil, err
	}
	return s.Status(ctx, *b)
}

func (s *BudgetService) Delete(ctx context.Context, userID, id string) error {
	if err := s.budgets.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// SweepAlerts notifies the owner of every active budget that reached the
// critical threshold, at most once per period window. It returns the number
// of alerts sent.
func (s *BudgetService) SweepAlerts(ctx context.Context) (int64, error) {
	active, err := s.budgets.ListActive(ctx)
	if err != nil {
		utils.LogJob("budget_alerts", 0, err)
		return 0, err
	}

	now := s.now()
	var sent int64
	for _, b := range active {
		if b.EndDate != nil && b.EndDate.Before(now) {
			continue
		}
		from, _ := PeriodWindow(b.Period, now)
		if b.LastAlertedAt != nil && !b.LastAlertedAt.Before(from) {
			continue
		}

		st, err := s.Status(ctx, b)
		if err != nil {
			utils.SafeWarn("Budget status failed: %v", err)
			continue
		}
		if st.SpentPercentage < criticalThreshold {
			continue
		}

		user, err := s.users.GetByID(ctx, b.UserID)
		if err != nil {
			utils.SafeWarn("Budget owner lookup failed: %v", err)
			continue
		}
		if !user.Preferences.Notifications.BudgetAlerts {
			continue
		}

		if err := s.alert(ctx, user, st); err != nil {
			utils.SafeWarn("Budget alert failed: %v", err)
			continue
		}
		if err := s.budgets.MarkAlerted(ctx, b.ID, now); err != nil {
			utils.SafeWarn("Budget alert bookkeeping failed: %v", err)
			continue
		}
		sent++
	}
	utils.LogJob("budget_alerts", sent, nil)
	return sent, nil
}

func (s *BudgetService) alert(ctx context.Context, user *models.User, st *models.BudgetStatus) error {
	title := "⚠️ Budget alert"
	message := fmt.Sprintf("You have used %.0f%% of your %s budget (%s of %s %s).",
		st.SpentPercentage, st.Name, st.Spent.StringFixed(2), st.Amount.StringFixed(2), st.Currency)
	data := map[string]any{
		"budget_id":        st.ID,
		"spent_percentage": st.SpentPercentage,
	}
	if s.notifications != nil {
		if _, err := s.notifications.Notify(ctx, user.ID, models.NotificationBudgetAlert, title, message, data); err != nil {
			return err
		}
	}

	if s.mailer != nil && s.mailer.Enabled() && user.Preferences.Notifications.Email {
		if err := s.mailer.SendBudgetAlert(user.Email, user.Name, st); err != nil {
			utils.SafeWarn("Budget alert email failed: %v", err)
		}
	}
	return nil
}
