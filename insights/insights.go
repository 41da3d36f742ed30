// Package insights derives human-readable observations from an expense
// history. Every function recomputes from the slice it is given.
package insights

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Entry is the minimal view of an expense the analysis needs.
type Entry struct {
	Amount      float64
	Category    string
	Mood        string
	Merchant    string
	Description string
	Time        time.Time
}

// Insight is one observation ready for display.
type Insight struct {
	Type        string `json:"type"`
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// MerchantPattern describes a merchant visited repeatedly.
type MerchantPattern struct {
	Merchant string  `json:"merchant"`
	Visits   int     `json:"visits"`
	Average  float64 `json:"average"`
}

const (
	recentWindow    = 30
	anomalyWindow   = 10
	anomalyMinimum  = 5
	recurringVisits = 3
)

// newestFirst returns a copy of entries sorted by time, most recent first.
func newestFirst(entries []Entry) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.After(sorted[j].Time) })
	return sorted
}

func recent(entries []Entry, n int) []Entry {
	sorted := newestFirst(entries)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Sum totals the amounts of entries.
func Sum(entries []Entry) float64 {
	total := 0.0
	for _, e := range entries {
		total += e.Amount
	}
	return total
}

// Between keeps entries with from <= Time < to.
func Between(entries []Entry, from, to time.Time) []Entry {
	var out []Entry
	for _, e := range entries {
		if !e.Time.Before(from) && e.Time.Before(to) {
			out = append(out, e)
		}
	}
	return out
}

// WeeklySpent totals the calendar week (starting Sunday) weeksAgo weeks before now's week.
func WeeklySpent(entries []Entry, now time.Time, weeksAgo int) float64 {
	start := startOfDay(now).AddDate(0, 0, -int(now.Weekday())-7*weeksAgo)
	return Sum(Between(entries, start, start.AddDate(0, 0, 7)))
}

// WeekOverWeek returns the percentage change of this week against last week.
// It is zero when nothing was spent last week.
func WeekOverWeek(entries []Entry, now time.Time) float64 {
	this := WeeklySpent(entries, now, 0)
	last := WeeklySpent(entries, now, 1)
	if last <= 0 {
		return 0
	}
	return (this - last) / last * 100
}

// MonthlySpent totals now's calendar month.
func MonthlySpent(entries []Entry, now time.Time) float64 {
	start := startOfMonth(now)
	return Sum(Between(entries, start, start.AddDate(0, 1, 0)))
}

// PeakHour is the most frequent hour of day; ties go to the earliest hour, 12 when empty.
func PeakHour(entries []Entry) int {
	if len(entries) == 0 {
		return 12
	}
	var counts [24]int
	for _, e := range entries {
		counts[e.Time.Hour()]++
	}
	peak := 0
	for h := 1; h < 24; h++ {
		if counts[h] > counts[peak] {
			peak = h
		}
	}
	return peak
}

// ByCategory totals amounts per category.
func ByCategory(entries []Entry) map[string]float64 {
	totals := make(map[string]float64)
	for _, e := range entries {
		totals[e.Category] += e.Amount
	}
	return totals
}

// PeriodTotals totals per category since the start of the named period
// ("week" means the trailing seven days, "month" and "year" are calendar based).
func PeriodTotals(entries []Entry, now time.Time, period string) map[string]float64 {
	var start time.Time
	switch period {
	case "month":
		start = startOfMonth(now)
	case "year":
		start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	default:
		start = now.AddDate(0, 0, -7)
	}
	var in []Entry
	for _, e := range entries {
		if !e.Time.Before(start) {
			in = append(in, e)
		}
	}
	return ByCategory(in)
}

// TopCategory returns the category with the largest sum this month. On an empty
// month it reports "food" with a zero amount.
func TopCategory(entries []Entry, now time.Time) (string, float64) {
	totals := PeriodTotals(entries, now, "month")
	top, amount := "food", 0.0
	for _, name := range sortedKeys(totals) {
		if totals[name] > amount {
			top, amount = name, totals[name]
		}
	}
	return top, amount
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RecurringMerchants reports merchants seen at least three times among the 30 most recent entries.
func RecurringMerchants(entries []Entry) []MerchantPattern {
	totals := map[string]float64{}
	counts := map[string]int{}
	for _, e := range recent(entries, recentWindow) {
		if e.Merchant == "" {
			continue
		}
		totals[e.Merchant] += e.Amount
		counts[e.Merchant]++
	}

	var out []MerchantPattern
	for _, m := range sortedKeys(totals) {
		if counts[m] >= recurringVisits {
			out = append(out, MerchantPattern{Merchant: m, Visits: counts[m], Average: totals[m] / float64(counts[m])})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Visits > out[j].Visits })
	return out
}

// PeakSpendingHour is the hour with the largest total amount among the 30 most recent entries.
func PeakSpendingHour(entries []Entry) (hour int, total float64, ok bool) {
	var sums [24]float64
	for _, e := range recent(entries, recentWindow) {
		sums[e.Time.Hour()] += e.Amount
	}
	for h := 0; h < 24; h++ {
		if sums[h] > total {
			hour, total = h, sums[h]
		}
	}
	return hour, total, total > 0
}

// DayPattern finds the weekday with the highest average amount.
func DayPattern(entries []Entry) (day time.Weekday, average float64, ok bool) {
	var totals [7]float64
	var counts [7]int
	for _, e := range entries {
		d := e.Time.Weekday()
		totals[d] += e.Amount
		counts[d]++
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if counts[d] == 0 {
			continue
		}
		avg := totals[d] / float64(counts[d])
		if !ok || avg > average {
			day, average, ok = d, avg, true
		}
	}
	return day, average, ok
}

// MoodPattern reports the mood whose average spend beats the neutral average
// by more than 20%, with the percentage difference.
func MoodPattern(entries []Entry) (mood string, percent int, ok bool) {
	totals := map[string]float64{}
	counts := map[string]int{}
	for _, e := range entries {
		if e.Mood == "" {
			continue
		}
		totals[e.Mood] += e.Amount
		counts[e.Mood]++
	}
	if counts["neutral"] == 0 {
		return "", 0, false
	}
	neutral := totals["neutral"] / float64(counts["neutral"])
	if neutral <= 0 {
		return "", 0, false
	}

	best, bestAvg := "", 0.0
	for _, m := range sortedKeys(totals) {
		avg := totals[m] / float64(counts[m])
		if avg > bestAvg {
			best, bestAvg = m, avg
		}
	}
	if best == "neutral" || bestAvg <= neutral*1.2 {
		return "", 0, false
	}
	return best, int(math.Round((bestAvg - neutral) / neutral * 100)), true
}

// Anomalies returns, among the 10 most recent entries, those further than two
// standard deviations from their mean. Fewer than five entries yield nothing.
func Anomalies(entries []Entry) []Entry {
	window := recent(entries, anomalyWindow)
	if len(window) < anomalyMinimum {
		return nil
	}
	mean := Sum(window) / float64(len(window))
	variance := 0.0
	for _, e := range window {
		variance += (e.Amount - mean) * (e.Amount - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(window)))

	var out []Entry
	for _, e := range window {
		if math.Abs(e.Amount-mean) > 2*stdDev {
			out = append(out, e)
		}
	}
	return out
}

// Projection extrapolates the average of the 10 most recent entries to 30 days.
func Projection(entries []Entry, monthlyBudget float64) (projected float64, risk string, ok bool) {
	window := recent(entries, anomalyWindow)
	if len(window) == 0 {
		return 0, "", false
	}
	projected = Sum(window) / float64(len(window)) * 30
	if projected <= 0 {
		return 0, "", false
	}
	risk = "low"
	if projected > monthlyBudget {
		risk = "high"
	}
	return projected, risk, true
}

// Options tunes Generate.
type Options struct {
	Now           time.Time
	MonthlyBudget float64
	Currency      string
}

func money(symbol string, v float64) string {
	return fmt.Sprintf("%s%.2f", symbol, v)
}

func currencySymbol(code string) string {
	switch code {
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	case "", "USD":
		return "$"
	}
	return code + " "
}

// Generate builds the full ordered insight list: trend, peak time, top
// category, projection, mood and weekday patterns, recurring merchants, peak
// spending hour, savings opportunities and anomalies.
func Generate(entries []Entry, opts Options) []Insight {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	sym := currencySymbol(opts.Currency)
	var out []Insight

	trend := math.Round(WeekOverWeek(entries, now))
	if trend < 0 {
		out = append(out, Insight{"trend", "📈", "Spending Trend",
			fmt.Sprintf("You're spending %.0f%% less this week. Great progress!", -trend), "low"})
	} else {
		out = append(out, Insight{"trend", "📉", "Spending Trend",
			fmt.Sprintf("Spending up %.0f%% from last week. Consider reviewing your budget.", trend), "medium"})
	}

	out = append(out, Insight{"temporal", "⏰", "Peak Spending Time",
		fmt.Sprintf("Most expenses occur around %d:00. Plan purchases mindfully during this time.", PeakHour(entries)), "low"})

	top, amount := TopCategory(entries, now)
	out = append(out, Insight{"category", "📊", "Top Category",
		fmt.Sprintf("%s is your biggest expense this month at %s.", CategoryLabel(top), money(sym, amount)), "medium"})

	if projected, risk, ok := Projection(entries, opts.MonthlyBudget); ok {
		icon, priority := "✅", "medium"
		if risk == "high" {
			icon, priority = "⚠️", "high"
		}
		out = append(out, Insight{"prediction", icon, "Monthly Projection",
			fmt.Sprintf("Based on recent patterns, you're projected to spend %s this month", money(sym, projected)), priority})
	}

	if mood, pct, ok := MoodPattern(entries); ok {
		out = append(out, Insight{"behavioral", "🧠", "Mood Pattern Alert",
			fmt.Sprintf("You spend %d%% more when feeling %s", pct, mood), "medium"})
	}

	if day, avg, ok := DayPattern(entries); ok {
		out = append(out, Insight{"temporal", "📅", "Weekly Pattern",
			fmt.Sprintf("%ss are your highest spending days (avg: %s)", day, money(sym, avg)), "low"})
	}

	for _, m := range RecurringMerchants(entries) {
		out = append(out, Insight{"pattern", "🔄", "Recurring Pattern",
			fmt.Sprintf("You visit %s frequently (%d times) - avg %s", m.Merchant, m.Visits, money(sym, m.Average)), "medium"})
	}

	if hour, total, ok := PeakSpendingHour(entries); ok {
		out = append(out, Insight{"temporal", "⏰", "Peak Spending Hour",
			fmt.Sprintf("You spend most around %d:00 (%s total)", hour, money(sym, total)), "low"})
	}

	out = append(out, SavingsOpportunities(entries, now, sym)...)

	anomalies := Anomalies(entries)
	mean := 0.0
	if len(anomalies) > 0 {
		window := recent(entries, anomalyWindow)
		mean = Sum(window) / float64(len(window))
	}
	for _, e := range anomalies {
		icon, direction, priority := "📉", "much lower", "low"
		if e.Amount > mean {
			icon, direction, priority = "📈", "much higher", "high"
		}
		out = append(out, Insight{"anomaly", icon, "Unusual Spending",
			fmt.Sprintf("%s for %s is %s than usual", money(sym, e.Amount), e.Description, direction), priority})
	}

	return out
}

// SavingsOpportunities suggests a 20% cut for every category of the month
// where that cut exceeds 10 units of currency.
func SavingsOpportunities(entries []Entry, now time.Time, symbol string) []Insight {
	totals := PeriodTotals(entries, now, "month")
	var out []Insight
	for _, category := range sortedKeys(totals) {
		saving := totals[category] * 0.2
		if saving > 10 {
			out = append(out, Insight{"optimization", "💰", "Savings Opportunity",
				fmt.Sprintf("Reduce %s by 20%% to save %s/month", CategoryLabel(category), money(symbol, saving)), "high"})
		}
	}
	return out
}

var categoryLabels = map[string]string{
	"coffee":        "☕ Coffee",
	"food":          "🍽️ Food",
	"transport":     "🚗 Transport",
	"shopping":      "🛍️ Shopping",
	"entertainment": "🎬 Entertainment",
	"bills":         "📋 Bills",
	"health":        "🏥 Health",
	"groceries":     "🛒 Groceries",
	"other":         "📝 Other",
}

// CategoryLabel decorates a category name for display.
func CategoryLabel(category string) string {
	if l, ok := categoryLabels[category]; ok {
		return l
	}
	return "📝 Other"
}
