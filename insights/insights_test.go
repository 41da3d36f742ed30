package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Saturday; the week started on Sunday 8 March.
var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func at(day, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
}

func TestWeekOverWeek(t *testing.T) {
	entries := []Entry{
		{Amount: 60, Time: at(2, 10)},
		{Amount: 40, Time: at(7, 23)},
		{Amount: 50, Time: at(8, 0)},
	}

	assert.InDelta(t, 50, WeeklySpent(entries, now, 0), 0.001)
	assert.InDelta(t, 100, WeeklySpent(entries, now, 1), 0.001)
	assert.InDelta(t, -50, WeekOverWeek(entries, now), 0.001)
}

func TestWeekOverWeekWithoutLastWeek(t *testing.T) {
	entries := []Entry{{Amount: 50, Time: at(9, 12)}}
	assert.Zero(t, WeekOverWeek(entries, now))
}

func TestPeakHour(t *testing.T) {
	assert.Equal(t, 12, PeakHour(nil))

	entries := []Entry{
		{Amount: 1, Time: at(1, 18)},
		{Amount: 1, Time: at(2, 8)},
		{Amount: 1, Time: at(3, 18)},
		{Amount: 1, Time: at(4, 8)},
	}
	assert.Equal(t, 8, PeakHour(entries), "ties go to the earliest hour")

	entries = append(entries, Entry{Amount: 1, Time: at(5, 18)})
	assert.Equal(t, 18, PeakHour(entries))
}

func TestTopCategory(t *testing.T) {
	name, amount := TopCategory(nil, now)
	assert.Equal(t, "food", name)
	assert.Zero(t, amount)

	entries := []Entry{
		{Amount: 30, Category: "coffee", Time: at(3, 9)},
		{Amount: 25, Category: "transport", Time: at(4, 9)},
		{Amount: 20, Category: "coffee", Time: at(5, 9)},
		{Amount: 500, Category: "bills", Time: time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)},
	}
	name, amount = TopCategory(entries, now)
	assert.Equal(t, "coffee", name)
	assert.InDelta(t, 50, amount, 0.001)
}

func TestRecurringMerchants(t *testing.T) {
	entries := []Entry{
		{Amount: 5, Merchant: "Starbucks", Time: at(1, 8)},
		{Amount: 6, Merchant: "Starbucks", Time: at(2, 8)},
		{Amount: 7, Merchant: "Starbucks", Time: at(3, 8)},
		{Amount: 40, Merchant: "Shell", Time: at(4, 8)},
		{Amount: 40, Merchant: "Shell", Time: at(5, 8)},
		{Amount: 3, Time: at(6, 8)},
	}

	got := RecurringMerchants(entries)
	require.Len(t, got, 1)
	assert.Equal(t, "Starbucks", got[0].Merchant)
	assert.Equal(t, 3, got[0].Visits)
	assert.InDelta(t, 6, got[0].Average, 0.001)
}

func TestAnomalies(t *testing.T) {
	var entries []Entry
	for i := 0; i < 4; i++ {
		entries = append(entries, Entry{Amount: 10, Time: at(i+1, 9)})
	}
	assert.Nil(t, Anomalies(entries), "fewer than five entries")

	for i := 4; i < 9; i++ {
		entries = append(entries, Entry{Amount: 10, Time: at(i+1, 9)})
	}
	entries = append(entries, Entry{Amount: 100, Description: "Concert", Time: at(12, 20)})

	got := Anomalies(entries)
	require.Len(t, got, 1)
	assert.Equal(t, "Concert", got[0].Description)
}

func TestAnomaliesOnlyLooksAtTenMostRecent(t *testing.T) {
	entries := []Entry{{Amount: 1000, Time: at(1, 9)}}
	for i := 0; i < 10; i++ {
		entries = append(entries, Entry{Amount: 10, Time: at(i+2, 9)})
	}
	assert.Empty(t, Anomalies(entries))
}

func TestMoodPattern(t *testing.T) {
	entries := []Entry{
		{Amount: 10, Mood: "neutral"},
		{Amount: 10, Mood: "neutral"},
		{Amount: 15, Mood: "stressed"},
		{Amount: 11, Mood: "happy"},
	}
	mood, pct, ok := MoodPattern(entries)
	require.True(t, ok)
	assert.Equal(t, "stressed", mood)
	assert.Equal(t, 50, pct)

	_, _, ok = MoodPattern([]Entry{{Amount: 0, Mood: "neutral"}, {Amount: 20, Mood: "happy"}})
	assert.False(t, ok, "zero neutral average")

	_, _, ok = MoodPattern([]Entry{{Amount: 20, Mood: "happy"}})
	assert.False(t, ok, "no neutral baseline")
}

func TestDayPattern(t *testing.T) {
	entries := []Entry{
		{Amount: 10, Time: at(9, 9)},  // Monday
		{Amount: 30, Time: at(13, 9)}, // Friday
		{Amount: 50, Time: at(13, 9)},
	}
	day, avg, ok := DayPattern(entries)
	require.True(t, ok)
	assert.Equal(t, time.Friday, day)
	assert.InDelta(t, 40, avg, 0.001)
}

func TestProjection(t *testing.T) {
	entries := []Entry{{Amount: 100, Time: at(1, 9)}, {Amount: 50, Time: at(2, 9)}}
	projected, risk, ok := Projection(entries, 2000)
	require.True(t, ok)
	assert.InDelta(t, 2250, projected, 0.001)
	assert.Equal(t, "high", risk)

	_, risk, _ = Projection(entries, 3000)
	assert.Equal(t, "low", risk)

	_, _, ok = Projection(nil, 2000)
	assert.False(t, ok)
}

func TestSavingsOpportunities(t *testing.T) {
	entries := []Entry{
		{Amount: 100, Category: "food", Time: at(3, 12)},
		{Amount: 40, Category: "coffee", Time: at(4, 8)},
	}
	got := SavingsOpportunities(entries, now, "$")
	require.Len(t, got, 1)
	assert.Equal(t, "optimization", got[0].Type)
	assert.Contains(t, got[0].Description, "$20.00/month")
}

func TestGenerateOnEmptyHistory(t *testing.T) {
	got := Generate(nil, Options{Now: now, MonthlyBudget: 2000})
	require.Len(t, got, 3)
	assert.Equal(t, "Spending Trend", got[0].Title)
	assert.Equal(t, "Peak Spending Time", got[1].Title)
	assert.Equal(t, "Top Category", got[2].Title)
	assert.Contains(t, got[2].Description, "$0.00")
}

func TestGenerateIncludesProjectionAndCurrency(t *testing.T) {
	entries := []Entry{
		{Amount: 90, Category: "food", Description: "Dinner", Time: at(3, 19)},
		{Amount: 30, Category: "food", Description: "Lunch", Time: at(10, 12)},
	}
	got := Generate(entries, Options{Now: now, MonthlyBudget: 1000, Currency: "EUR"})

	var titles []string
	for _, in := range got {
		titles = append(titles, in.Title)
	}
	assert.Contains(t, titles, "Monthly Projection")
	assert.Contains(t, titles, "Savings Opportunity")
	assert.Contains(t, got[2].Description, "€120.00")
	assert.Equal(t, "low", got[0].Priority, "this week is below last week")
}

func TestSavingsTree(t *testing.T) {
	entries := []Entry{{Amount: 500, Time: at(10, 12)}}
	tree := SavingsTree(entries, now, 2000)

	assert.Equal(t, 75, tree.Health)
	assert.Equal(t, 8, tree.GrowthLevel)
	assert.Equal(t, 4, tree.Streak)
	assert.Equal(t, "🌲", tree.Stage)
	assert.Equal(t, "✨🍃✨", tree.Leaves)
}

func TestSavingsTreeOverBudget(t *testing.T) {
	entries := []Entry{{Amount: 2500, Time: at(14, 8)}}
	tree := SavingsTree(entries, now, 2000)

	assert.Zero(t, tree.Health)
	assert.Equal(t, 1, tree.GrowthLevel)
	assert.Zero(t, tree.Streak)
	assert.Equal(t, "🌱", tree.Stage)
	assert.Empty(t, tree.Leaves)

	assert.Zero(t, SavingsTree(nil, now, 0).Health)
}
