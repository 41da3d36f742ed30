package insights

import (
	"math"
	"time"
)

const streakHorizon = 30

// Tree is the savings tree summary: how much of the monthly budget is left.
type Tree struct {
	Health      int    `json:"health"`
	GrowthLevel int    `json:"growth_level"`
	Streak      int    `json:"streak_days"`
	Stage       string `json:"stage"`
	Leaves      string `json:"leaves"`
}

var treeStages = []string{"🌱", "🌿", "🌳", "🌲"}

// SavingsTree computes the tree for now's month against monthlyBudget.
func SavingsTree(entries []Entry, now time.Time, monthlyBudget float64) Tree {
	health := 0
	if monthlyBudget > 0 {
		rate := math.Max(0, (monthlyBudget-MonthlySpent(entries, now))/monthlyBudget)
		health = int(math.Round(rate * 100))
	}

	t := Tree{
		Health:      health,
		GrowthLevel: min(10, health/10+1),
		Streak:      SavingsStreak(entries, now, monthlyBudget),
		Stage:       treeStages[min(len(treeStages)-1, health/25)],
	}
	switch {
	case health > 70:
		t.Leaves = "✨🍃✨"
	case health > 40:
		t.Leaves = "🍃"
	}
	return t
}

// SavingsStreak counts consecutive days, today first, whose spend stayed
// within a thirtieth of the monthly budget. It looks back at most 30 days.
func SavingsStreak(entries []Entry, now time.Time, monthlyBudget float64) int {
	daily := monthlyBudget / 30
	today := startOfDay(now)
	streak := 0
	for i := 0; i < streakHorizon; i++ {
		day := today.AddDate(0, 0, -i)
		if Sum(Between(entries, day, day.AddDate(0, 0, 1))) > daily {
			break
		}
		streak++
	}
	return streak
}
