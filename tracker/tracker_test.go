package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/LovationAdmin/trackit-api/parser"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Saturday.
var fixedNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

func newTracker(t *testing.T, store Store) *Tracker {
	t.Helper()
	tr, err := New(store, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	n := 0
	tr.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return tr
}

// withoutGoals seeds an empty goal list so the starter goals stay out of the way.
func withoutGoals(t *testing.T) *MemoryStore {
	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyGoals, []Goal{}))
	return store
}

func add(t *testing.T, tr *Tracker, category, amount string, at time.Time) {
	t.Helper()
	_, err := tr.AddExpense(Expense{
		Amount:    decimal.RequireFromString(amount),
		Category:  category,
		Timestamp: at,
	})
	require.NoError(t, err)
}

// ============================================================================
// STORES
// ============================================================================

type record struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestStoreContract(t *testing.T) {
	sqlite, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	for name, store := range map[string]Store{"memory": NewMemoryStore(), "sqlite": sqlite} {
		t.Run(name, func(t *testing.T) {
			var got record
			found, err := store.Get("missing", &got)
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, store.Set("k", record{Name: "first", Items: []string{"a"}}))
			require.NoError(t, store.Set("k", record{Name: "second", Items: []string{"b", "c"}}))

			found, err = store.Get("k", &got)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, record{Name: "second", Items: []string{"b", "c"}}, got)

			require.NoError(t, store.Remove("k"))
			require.NoError(t, store.Remove("k"))
			found, err = store.Get("k", &got)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestSQLiteStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trackit.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	tr := newTracker(t, store)
	_, err = tr.AddText("lunch 8")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()
	reopened := newTracker(t, store)
	list := reopened.List(ListFilter{})
	require.Len(t, list, 1)
	assert.Equal(t, parser.CategoryFood, list[0].Category)
}

func TestMemoryStoreReportsUndecodableValues(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyExpenses, "not a list"))
	_, err := New(store)
	assert.Error(t, err)
}

// failingStore refuses writes to one key.
type failingStore struct {
	*MemoryStore
	failKey string
}

func (s *failingStore) Set(key string, value any) error {
	if key == s.failKey {
		return errors.New("disk full")
	}
	return s.MemoryStore.Set(key, value)
}

func TestFailedWritesLeaveStateUntouched(t *testing.T) {
	store := &failingStore{MemoryStore: withoutGoals(t)}
	tr := newTracker(t, store)
	_, err := tr.AddText("lunch 8")
	require.NoError(t, err)

	store.failKey = KeyExpenses
	_, err = tr.AddText("dinner 20")
	require.Error(t, err)
	_, err = tr.QuickAdd("coffee")
	require.Error(t, err)
	assert.Len(t, tr.List(ListFilter{}), 1)

	store.failKey = KeySettings
	require.Error(t, tr.UpdateSettings(Settings{MonthlyBudget: 50, Currency: "eur"}))
	assert.Equal(t, DefaultSettings(), tr.Settings())

	store.failKey = ""
	assert.Len(t, newTracker(t, store).List(ListFilter{}), 1)
}

func TestArchiveFailureKeepsActiveHistory(t *testing.T) {
	store := &failingStore{MemoryStore: withoutGoals(t)}
	seedArchivable(t, store)
	tr := newTracker(t, store)

	store.failKey = KeyExpenses
	_, err := tr.Archive()
	require.Error(t, err)
	assert.Equal(t, 1001, tr.Export().Metadata.TotalExpenses)

	archived, err := tr.Archived()
	require.NoError(t, err)
	assert.Empty(t, archived)
}

// ============================================================================
// CAPTURE & QUERIES
// ============================================================================

func TestNewUsesDefaults(t *testing.T) {
	tr := newTracker(t, NewMemoryStore())
	assert.Equal(t, DefaultSettings(), tr.Settings())
	assert.Empty(t, tr.List(ListFilter{}))

	goals := tr.Goals()
	require.Len(t, goals, 2)
	assert.Equal(t, GoalSavings, goals[0].Type)
	assert.Equal(t, "coffee", goals[1].Category)
}

func TestAddTextKeepsNewestFirstAndPersists(t *testing.T) {
	store := withoutGoals(t)
	tr := newTracker(t, store)

	first, err := tr.AddText("Spent $12.50 on coffee this morning")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.5").Equal(first.Amount))
	assert.Equal(t, parser.CategoryCoffee, first.Category)
	assert.Equal(t, "USD", first.Currency)
	assert.Equal(t, fixedNow, first.Timestamp)
	assert.True(t, first.AIProcessed)

	_, err = tr.AddText("taxi home 18")
	require.NoError(t, err)

	_, err = tr.AddText("no numbers here")
	assert.ErrorIs(t, err, parser.ErrNoAmount)

	reloaded := newTracker(t, store)
	list := reloaded.List(ListFilter{})
	require.Len(t, list, 2)
	assert.Equal(t, parser.CategoryTransport, list[0].Category)
	assert.Equal(t, parser.CategoryCoffee, list[1].Category)
}

func TestQuickAdd(t *testing.T) {
	tr := newTracker(t, withoutGoals(t))

	e, err := tr.QuickAdd("coffee")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("5.99").Equal(e.Amount))
	assert.Equal(t, "Quick Coffee expense", e.Description)
	assert.Equal(t, parser.MoodNeutral, e.Mood)
	assert.False(t, e.AIProcessed)

	e, err = tr.QuickAdd("Books")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(e.Amount))
	assert.Equal(t, "books", e.Category)
}

func TestQuickAddCapitalisesMultiByteCategories(t *testing.T) {
	tr := newTracker(t, withoutGoals(t))
	e, err := tr.QuickAdd("épicerie")
	require.NoError(t, err)
	assert.Equal(t, "Quick Épicerie expense", e.Description)
	assert.Equal(t, "épicerie", e.Category)
}

func TestAddExpenseRejectsNonPositiveAmounts(t *testing.T) {
	tr := newTracker(t, withoutGoals(t))
	_, err := tr.AddExpense(Expense{Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	e, err := tr.AddExpense(Expense{Amount: decimal.NewFromInt(3)})
	require.NoError(t, err)
	assert.Equal(t, parser.CategoryOther, e.Category)
	assert.Equal(t, "General expense", e.Description)
	assert.Equal(t, "id-1", e.ID)
}

func TestListFilters(t *testing.T) {
	tr := newTracker(t, withoutGoals(t))
	for _, text := range []string{"coffee 4", "latte 5", "dinner 30", "espresso 3"} {
		_, err := tr.AddText(text)
		require.NoError(t, err)
	}

	assert.Len(t, tr.List(ListFilter{Search: "COFFEE"}), 3, "search matches category too")
	assert.Len(t, tr.List(ListFilter{Category: parser.CategoryFood}), 1)

	limited := tr.List(ListFilter{Category: parser.CategoryCoffee, Limit: 2})
	require.Len(t, limited, 2)
	assert.True(t, decimal.NewFromInt(3).Equal(limited[0].Amount), "newest first")
}

func TestDashboardAndTotals(t *testing.T) {
	tr := newTracker(t, withoutGoals(t))
	add(t, tr, "coffee", "10", fixedNow)
	add(t, tr, "food", "30", time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	add(t, tr, "food", "100", time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC))

	assert.Equal(t, Dashboard{
		TotalSpent:        140,
		TodaySpent:        10,
		MonthlySpent:      40,
		AverageDaily:      2.86,
		BudgetLeft:        1960,
		BudgetUsedPercent: 2,
	}, tr.Dashboard())

	week, err := tr.PeriodTotals("week")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"coffee": 10}, week)

	month, err := tr.PeriodTotals("month")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"coffee": 10, "food": 30}, month)

	year, err := tr.PeriodTotals("year")
	require.NoError(t, err)
	assert.Equal(t, 130.0, year["food"])

	_, err = tr.PeriodTotals("decade")
	assert.Error(t, err)

	assert.Equal(t, 98, tr.Tree().Health)
}

func TestInsightsCanBeSwitchedOff(t *testing.T) {
	tr := newTracker(t, withoutGoals(t))
	add(t, tr, "coffee", "10", fixedNow)
	assert.NotEmpty(t, tr.Insights())

	s := tr.Settings()
	s.AIInsights = false
	require.NoError(t, tr.UpdateSettings(s))
	assert.Empty(t, tr.Insights())
}

// ============================================================================
// GOALS
// ============================================================================

func TestGoalProgressAwardsAchievements(t *testing.T) {
	tr := newTracker(t, withoutGoals(t))
	add(t, tr, "coffee", "15", fixedNow)

	coffee, err := tr.CreateGoal(GoalInput{Title: "Coffee under 20", Target: 20, Type: GoalCategory, Category: "coffee"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, coffee.Current)
	assert.False(t, coffee.Completed)

	tomorrow := fixedNow.Add(24 * time.Hour)
	total, err := tr.CreateGoal(GoalInput{Title: "Log 25", Target: 25, Type: GoalTotal, Deadline: &tomorrow})
	require.NoError(t, err)
	assert.Equal(t, 15.0, total.Current)

	_, err = tr.CreateGoal(GoalInput{Title: "Keep 1990", Target: 1990, Type: GoalSavings})
	require.NoError(t, err)

	add(t, tr, "food", "12", fixedNow)
	awarded, err := tr.UpdateGoalProgress()
	require.NoError(t, err)
	require.Len(t, awarded, 1)
	assert.Equal(t, "Goal Master: Log 25", awarded[0].Title)
	assert.Equal(t, 150, awarded[0].Points)

	goals := tr.Goals()
	require.Len(t, goals, 3)
	assert.False(t, goals[0].Completed)
	assert.True(t, goals[1].Completed)
	assert.Equal(t, 1973.0, goals[2].Current)

	again, err := tr.UpdateGoalProgress()
	require.NoError(t, err)
	assert.Empty(t, again, "completed goals are not awarded twice")
	assert.Len(t, tr.Achievements(), 1)
}

func TestStarterGoalsComplete(t *testing.T) {
	tr := newTracker(t, NewMemoryStore())
	awarded, err := tr.UpdateGoalProgress()
	require.NoError(t, err)
	require.Len(t, awarded, 2)
	assert.Equal(t, 300, awarded[0].Points)
	assert.Equal(t, 225, awarded[1].Points)
}

func TestCreateGoalValidation(t *testing.T) {
	tr := newTracker(t, withoutGoals(t))
	for _, in := range []GoalInput{
		{Title: "", Target: 10, Type: GoalTotal},
		{Title: "zero", Target: 0, Type: GoalTotal},
		{Title: "weird", Target: 10, Type: "streak"},
		{Title: "no category", Target: 10, Type: GoalCategory},
	} {
		_, err := tr.CreateGoal(in)
		assert.ErrorIs(t, err, ErrInvalidGoal, in.Title)
	}
	assert.Empty(t, tr.Goals())
}

func TestGoalPoints(t *testing.T) {
	future := fixedNow.Add(time.Hour)
	past := fixedNow.Add(-time.Hour)
	tests := []struct {
		goal Goal
		want int
	}{
		{Goal{Type: GoalSavings}, 200},
		{Goal{Type: GoalSavings, Deadline: &future}, 300},
		{Goal{Type: GoalCategory, Deadline: &past}, 150},
		{Goal{Type: GoalTotal, Deadline: &future}, 150},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GoalPoints(tt.goal, fixedNow))
	}
}

// ============================================================================
// ARCHIVE, EXPORT, IMPORT
// ============================================================================

// seedArchivable stores 600 recent and 401 two-year-old expenses.
func seedArchivable(t *testing.T, store Store) {
	t.Helper()
	var seed []Expense
	for i := 0; i < 600; i++ {
		seed = append(seed, Expense{ID: fmt.Sprintf("new-%d", i), Amount: decimal.NewFromInt(1), Category: "food", Timestamp: fixedNow.Add(-time.Duration(i) * time.Hour)})
	}
	for i := 0; i < 401; i++ {
		seed = append(seed, Expense{ID: fmt.Sprintf("old-%d", i), Amount: decimal.NewFromInt(1), Category: "food", Timestamp: fixedNow.AddDate(-2, 0, 0).Add(-time.Duration(i) * time.Hour)})
	}
	require.NoError(t, store.Set(KeyExpenses, seed))
}

func TestArchiveMovesOldExpensesPastThreshold(t *testing.T) {
	store := withoutGoals(t)
	seedArchivable(t, store)

	tr := newTracker(t, store)
	moved, err := tr.Archive()
	require.NoError(t, err)
	assert.Equal(t, 401, moved)
	assert.Equal(t, 600, tr.Export().Metadata.TotalExpenses)

	archived, err := tr.Archived()
	require.NoError(t, err)
	assert.Len(t, archived, 401)

	moved, err = tr.Archive()
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestExportDocument(t *testing.T) {
	tr := newTracker(t, withoutGoals(t))
	oldest := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	add(t, tr, "food", "30", oldest)
	add(t, tr, "coffee", "10", fixedNow)

	doc := tr.Export()
	assert.Equal(t, ExportVersion, doc.Metadata.Version)
	assert.Equal(t, 2, doc.Metadata.TotalExpenses)
	require.NotNil(t, doc.Metadata.DateRange.Oldest)
	assert.Equal(t, oldest, *doc.Metadata.DateRange.Oldest)
	assert.Equal(t, fixedNow, *doc.Metadata.DateRange.Newest)
	assert.Equal(t, 40.0, doc.Analytics.MonthlySpent)
	assert.Equal(t, map[string]float64{"coffee": 10, "food": 30}, doc.Analytics.CategoryBreakdown)
	assert.Equal(t, 98, doc.Analytics.TreeHealth)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"version":"2.0"`)

	empty := newTracker(t, NewMemoryStore()).Export()
	assert.Nil(t, empty.Metadata.DateRange.Oldest)
	assert.NotNil(t, empty.Expenses)
}

func TestImportRoundTrip(t *testing.T) {
	src := newTracker(t, withoutGoals(t))
	add(t, src, "food", "30", fixedNow)
	_, err := src.CreateGoal(GoalInput{Title: "Log 100", Target: 100, Type: GoalTotal})
	require.NoError(t, err)
	raw, err := json.Marshal(src.Export())
	require.NoError(t, err)

	dst := newTracker(t, NewMemoryStore())
	require.NoError(t, dst.Import(raw))
	assert.Len(t, dst.List(ListFilter{}), 1)
	require.Len(t, dst.Goals(), 1)
	assert.Equal(t, "Log 100", dst.Goals()[0].Title)
	assert.Equal(t, DefaultSettings(), dst.Settings())
}

func TestImportMergesSettingsOverDefaults(t *testing.T) {
	tr := newTracker(t, withoutGoals(t))
	add(t, tr, "food", "30", fixedNow)

	require.NoError(t, tr.Import([]byte(`{"settings":{"monthly_budget":500,"currency":"EUR"}}`)))
	s := tr.Settings()
	assert.Equal(t, 500.0, s.MonthlyBudget)
	assert.Equal(t, "EUR", s.Currency)
	assert.True(t, s.AIInsights)
	assert.Len(t, tr.List(ListFilter{}), 1, "absent expenses are left alone")

	require.NoError(t, tr.Import([]byte(`{"settings":null}`)))
	assert.Equal(t, 500.0, tr.Settings().MonthlyBudget)
}

func TestImportRejectsBadDocuments(t *testing.T) {
	tr := newTracker(t, withoutGoals(t))
	add(t, tr, "food", "30", fixedNow)

	for _, raw := range []string{
		`{not json`,
		`{"expenses":[{"amount":"-4","category":"food"}]}`,
		`{"settings":{"monthly_budget":"lots"}}`,
	} {
		assert.ErrorIs(t, tr.Import([]byte(raw)), ErrInvalidImport, raw)
	}
	assert.Len(t, tr.List(ListFilter{}), 1)
}
