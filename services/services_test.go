package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/LovationAdmin/trackit-api/repository/memory"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Saturday 14 March 2026, 09:30 UTC.
var fixedNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

const testKey = "0123456789abcdef0123456789abcdef"

type recorder struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recorder) Publish(_ string, n *models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, *n)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Type)
	}
	return out
}

type fixture struct {
	ctx           context.Context
	store         *repository.Store
	pub           *recorder
	auth          *AuthService
	notifications *NotificationService
	gamification  *GamificationService
	expenses      *ExpenseService
	budgets       *BudgetService
	analytics     *AnalyticsService
	user          models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	cipher, err := utils.NewCipher(testKey)
	require.NoError(t, err)

	f := &fixture{ctx: context.Background(), store: store, pub: &recorder{}}
	f.auth = NewAuthService(store, utils.NewTokenManager("test-secret", time.Hour), cipher)
	f.auth.now = clock
	f.notifications = NewNotificationService(store.Notifications, f.pub)
	f.notifications.now = clock
	f.gamification = NewGamificationService(store, f.notifications)
	f.gamification.now = clock
	f.expenses = NewExpenseService(store, f.gamification)
	f.expenses.now = clock
	f.budgets = NewBudgetService(store, f.notifications, nil)
	f.budgets.now = clock
	f.analytics = NewAnalyticsService(store, f.budgets, nil)
	f.analytics.now = clock

	resp, err := f.auth.Register(f.ctx, models.RegisterRequest{
		Name: "Ada Lovelace", Email: "Ada@Example.com", Password: "secret123",
	})
	require.NoError(t, err)
	f.user = resp.User
	return f
}

func (f *fixture) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := f.store.Categories.GetByName(f.ctx, f.user.ID, name)
	require.NoError(t, err)
	return c
}

func (f *fixture) spent(t *testing.T, name string) string {
	return f.category(t, name).Spent.StringFixed(2)
}

func (f *fixture) add(t *testing.T, category, amount string, date time.Time) *models.Expense {
	t.Helper()
	e, err := f.expenses.Create(f.ctx, f.user.ID, models.CreateExpenseRequest{
		Amount:      decimal.RequireFromString(amount),
		Description: category + " expense",
		CategoryID:  f.category(t, category).ID,
		Date:        date,
	})
	require.NoError(t, err)
	return e
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
