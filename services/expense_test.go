package services

import (
	"testing"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseLifecycleKeepsSpentInSync(t *testing.T) {
	f := newFixture(t)

	e := f.add(t, "coffee", "4.50", fixedNow)
	assert.Equal(t, "4.50", f.spent(t, "coffee"))
	require.NotNil(t, e.Category)
	assert.Equal(t, "coffee", e.Category.Name)
	assert.Equal(t, "USD", e.Currency)

	amount := dec("6.00")
	_, err := f.expenses.Update(f.ctx, f.user.ID, e.ID, models.UpdateExpenseRequest{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, "6.00", f.spent(t, "coffee"))

	food := f.category(t, "food").ID
	updated, err := f.expenses.Update(f.ctx, f.user.ID, e.ID, models.UpdateExpenseRequest{CategoryID: &food})
	require.NoError(t, err)
	assert.Equal(t, food, updated.CategoryID)
	assert.Equal(t, "0.00", f.spent(t, "coffee"))
	assert.Equal(t, "6.00", f.spent(t, "food"))

	require.NoError(t, f.expenses.Delete(f.ctx, f.user.ID, e.ID))
	assert.Equal(t, "0.00", f.spent(t, "food"))

	_, err = f.expenses.Get(f.ctx, f.user.ID, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpenseCreateDefaultsDateToNow(t *testing.T) {
	f := newFixture(t)
	e := f.add(t, "food", "12", time.Time{})
	assert.True(t, e.Date.Equal(fixedNow))
	assert.NotNil(t, e.Tags)
}

func TestExpenseRejectsForeignCategory(t *testing.T) {
	f := newFixture(t)

	_, err := f.expenses.Create(f.ctx, f.user.ID, models.CreateExpenseRequest{
		Amount: dec("3"), Description: "x", CategoryID: "missing",
	})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	n, err := f.store.Expenses.Count(f.ctx, f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExpenseUpdateRollsBackOnUnknownCategory(t *testing.T) {
	f := newFixture(t)
	e := f.add(t, "coffee", "5", fixedNow)

	amount, missing := dec("50"), "missing"
	_, err := f.expenses.Update(f.ctx, f.user.ID, e.ID, models.UpdateExpenseRequest{
		Amount: &amount, CategoryID: &missing,
	})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	stored, err := f.expenses.Get(f.ctx, f.user.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "5.00", stored.Amount.StringFixed(2))
	assert.Equal(t, "5.00", f.spent(t, "coffee"))
}

func TestExpenseScopedToOwner(t *testing.T) {
	f := newFixture(t)
	e := f.add(t, "coffee", "5", fixedNow)

	_, err := f.expenses.Get(f.ctx, "someone-else", e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.expenses.Delete(f.ctx, "someone-else", e.ID), ErrNotFound)
}

func TestExpenseListPagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.add(t, "food", "10", fixedNow.AddDate(0, 0, -i))
	}

	list, page, err := f.expenses.List(f.ctx, f.user.ID, models.ExpenseFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, &models.Pagination{Page: 2, Limit: 2, Total: 5, TotalPages: 3}, page)
	assert.True(t, list[0].Date.Equal(fixedNow.AddDate(0, 0, -2)))
}

func TestParseWithoutCreate(t *testing.T) {
	f := newFixture(t)

	res, err := f.expenses.Parse(f.ctx, f.user.ID, "just spent $12.50 on lunch downtown, feeling great", false)
	require.NoError(t, err)
	assert.Nil(t, res.Expense)
	assert.Equal(t, "12.5", res.Parsed.Amount.String())
	assert.Equal(t, parser.CategoryFood, res.Parsed.Category)
	assert.Equal(t, parser.MoodHappy, res.Parsed.Mood)
	assert.True(t, res.Parsed.Timestamp.Equal(fixedNow))
}

func TestParseAndCreate(t *testing.T) {
	f := newFixture(t)

	res, err := f.expenses.Parse(f.ctx, f.user.ID, "latte 4.75 at starbucks", true)
	require.NoError(t, err)
	require.NotNil(t, res.Expense)
	assert.Equal(t, f.category(t, "coffee").ID, res.Expense.CategoryID)
	assert.Equal(t, "4.75", f.spent(t, "coffee"))
}

func TestParseFallsBackToOther(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Categories.Delete(f.ctx, f.user.ID, f.category(t, "health").ID))

	res, err := f.expenses.Parse(f.ctx, f.user.ID, "pharmacy 20", true)
	require.NoError(t, err)
	assert.Equal(t, parser.CategoryHealth, res.Parsed.Category)
	assert.Equal(t, f.category(t, "other").ID, res.Expense.CategoryID)
}

func TestParseUsesPreferredCurrency(t *testing.T) {
	f := newFixture(t)
	prefs := f.user.Preferences
	prefs.Currency = "eur"
	_, err := f.auth.UpdateProfile(f.ctx, f.user.ID, models.UpdateProfileRequest{Preferences: &prefs})
	require.NoError(t, err)

	res, err := f.expenses.Parse(f.ctx, f.user.ID, "bus ticket 3", false)
	require.NoError(t, err)
	assert.Equal(t, "EUR", res.Parsed.Currency)
}

func TestParseRejectsMissingAmount(t *testing.T) {
	f := newFixture(t)
	_, err := f.expenses.Parse(f.ctx, f.user.ID, "coffee with friends", true)
	assert.ErrorIs(t, err, parser.ErrNoAmount)
}

func TestGamificationMilestones(t *testing.T) {
	f := newFixture(t)

	f.add(t, "coffee", "3", fixedNow)
	u, err := f.auth.Me(f.ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, ExperiencePerExpense, u.Experience)
	assert.Equal(t, 1, u.Level)

	list, err := f.gamification.Achievements(f.ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "first_expense", list[0].Key)
	assert.Equal(t, []string{models.NotificationAchievement}, f.pub.types())

	for i := 0; i < 9; i++ {
		f.add(t, "coffee", "3", fixedNow)
	}
	u, err = f.auth.Me(f.ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, u.Experience)
	assert.Equal(t, 2, u.Level)

	list, err = f.gamification.Achievements(f.ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Len(t, f.pub.types(), 2, "each milestone notifies once")
}
