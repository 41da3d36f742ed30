package parser

import (
	"regexp"
	"strings"
)

// Rule pairs a label with the pattern that selects it. Rules are evaluated
// in slice order and the first match wins.
type Rule struct {
	Label   string
	Pattern *regexp.Regexp
}

func words(list ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(list, "|") + `)\b`)
}

// Category labels produced by the default rules.
const (
	CategoryCoffee        = "coffee"
	CategoryFood          = "food"
	CategoryTransport     = "transport"
	CategoryShopping      = "shopping"
	CategoryEntertainment = "entertainment"
	CategoryBills         = "bills"
	CategoryHealth        = "health"
	CategoryGroceries     = "groceries"
	CategoryOther         = "other"
)

// Mood labels produced by the default rules.
const (
	MoodHappy    = "happy"
	MoodNeutral  = "neutral"
	MoodStressed = "stressed"
)

// DefaultCategoryRules is the ordered keyword table used to classify free text.
var DefaultCategoryRules = []Rule{
	// \b is ASCII-only in RE2, so "café" cannot carry a trailing boundary.
	{CategoryCoffee, regexp.MustCompile(`(?i)\b(?:coffees?|starbucks|lattes?|espresso|cappuccino|cafe)\b|\bcafé`)},
	{CategoryFood, words("food", "lunch", "dinner", "breakfast", "brunch", "restaurant", "meal", "meals", "eat", "ate", "eating", "pizza", "burger", "burgers")},
	{CategoryTransport, words("uber", "lyft", "taxi", "cab", "bus", "train", "gas", "fuel", "transport", "parking", "metro")},
	{CategoryShopping, words("shop", "shops", "shopping", "store", "stores", "buy", "bought", "purchase", "purchased", "amazon", "target", "mall", "clothes")},
	{CategoryEntertainment, words("movie", "movies", "cinema", "game", "games", "concert", "show", "entertainment", "theater", "theatre")},
	{CategoryBills, words("bill", "bills", "electric", "electricity", "water", "internet", "phone", "rent", "utilities")},
	{CategoryHealth, words("doctor", "medicine", "pharmacy", "hospital", "health", "medical", "dentist")},
	{CategoryGroceries, words("grocery", "groceries", "supermarket", "walmart", "costco", "market")},
}

// DefaultMoodRules is the ordered sentiment table.
var DefaultMoodRules = []Rule{
	{MoodHappy, words("happy", "excited", "great", "awesome", "amazing", "love", "loved", "wonderful")},
	{MoodNeutral, words("okay", "ok", "fine", "normal", "usual", "regular")},
	{MoodStressed, words("stressed", "worried", "anxious", "frustrated", "upset", "angry", "bad")},
}

// Categories lists every label the default rules can return, "other" last.
func Categories() []string {
	labels := make([]string, 0, len(DefaultCategoryRules)+1)
	for _, r := range DefaultCategoryRules {
		labels = append(labels, r.Label)
	}
	return append(labels, CategoryOther)
}

var cannedDescriptions = map[string]string{
	CategoryCoffee:        "Coffee purchase",
	CategoryFood:          "Food & dining",
	CategoryTransport:     "Transportation",
	CategoryShopping:      "Shopping",
	CategoryEntertainment: "Entertainment",
	CategoryBills:         "Bill payment",
	CategoryHealth:        "Health & medical",
	CategoryGroceries:     "Groceries",
}

// CannedDescription returns the fallback description for a category.
func CannedDescription(category string) string {
	if d, ok := cannedDescriptions[category]; ok {
		return d
	}
	return "General expense"
}

var merchantRules = []struct {
	needle   string
	category string
}{
	{"starbucks", CategoryCoffee},
	{"target", CategoryShopping},
	{"walmart", CategoryGroceries},
	{"whole foods", CategoryGroceries},
	{"shell", CategoryTransport},
	{"exxon", CategoryTransport},
	{"amazon", CategoryShopping},
	{"mcdonalds", CategoryFood},
	{"subway", CategoryFood},
	{"uber eats", CategoryFood},
	{"deliveroo", CategoryFood},
	{"uber", CategoryTransport},
	{"bolt", CategoryTransport},
	{"sncf", CategoryTransport},
	{"ratp", CategoryTransport},
	{"total access", CategoryTransport},
	{"carrefour", CategoryGroceries},
	{"leclerc", CategoryGroceries},
	{"lidl", CategoryGroceries},
	{"aldi", CategoryGroceries},
	{"monoprix", CategoryGroceries},
	{"netflix", CategoryEntertainment},
	{"spotify", CategoryEntertainment},
	{"disney", CategoryEntertainment},
	{"edf", CategoryBills},
	{"engie", CategoryBills},
	{"orange", CategoryBills},
	{"sfr", CategoryBills},
	{"bouygues", CategoryBills},
	{"axa", CategoryBills},
	{"pharmacie", CategoryHealth},
}

// CategorizeMerchant maps a merchant name to a category by substring lookup.
func CategorizeMerchant(merchant string) string {
	lower := strings.ToLower(merchant)
	for _, r := range merchantRules {
		if strings.Contains(lower, r.needle) {
			return r.category
		}
	}
	return CategoryOther
}
