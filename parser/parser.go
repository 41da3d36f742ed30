// Package parser turns free-text spending notes such as
// "spent $12 on coffee this morning" into structured expenses.
//
// The extraction is rule based: an amount pattern, an ordered category table,
// an ordered mood table and a location keyword pattern. Parsing is pure and
// deterministic for a given clock.
package parser

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ErrNoAmount is returned when the input carries no usable amount.
var ErrNoAmount = errors.New("could not detect expense amount")

var (
	amountPattern   = regexp.MustCompile(`([$€£])?\s?(\d+(?:\.\d{1,2})?)`)
	currencyCode    = regexp.MustCompile(`(?i)\b(usd|eur|gbp)\b`)
	locationPattern = words("at", "in", "near", "downtown", "mall", "store", "restaurant", "home", "work", "airport")
	stopwords       = words("just", "spent", "on", "at", "in", "for", "the", "a", "an")
	spaces          = regexp.MustCompile(`\s+`)
)

var symbolCurrency = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
}

// ParsedExpense is the structured result of parsing one line of text.
type ParsedExpense struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Mood        string          `json:"mood"`
	Location    string          `json:"location,omitempty"`
	RawInput    string          `json:"raw_input"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Parser holds the rule tables and defaults used by Parse.
type Parser struct {
	categories      []Rule
	moods           []Rule
	defaultCurrency string
	now             func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock overrides the clock used to stamp parsed expenses.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithDefaultCurrency sets the currency used when the text names none.
func WithDefaultCurrency(code string) Option {
	return func(p *Parser) { p.defaultCurrency = strings.ToUpper(code) }
}

// WithCategoryRules replaces the category table.
func WithCategoryRules(rules []Rule) Option {
	return func(p *Parser) { p.categories = rules }
}

// WithMoodRules replaces the mood table.
func WithMoodRules(rules []Rule) Option {
	return func(p *Parser) { p.moods = rules }
}

// New builds a Parser with the default rule tables.
func New(opts ...Option) *Parser {
	p := &Parser{
		categories:      DefaultCategoryRules,
		moods:           DefaultMoodRules,
		defaultCurrency: "USD",
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts amount, category, mood, location hint and description from input.
func (p *Parser) Parse(input string) (*ParsedExpense, error) {
	input = strings.TrimSpace(input)

	loc := amountPattern.FindStringSubmatchIndex(input)
	if loc == nil {
		return nil, ErrNoAmount
	}
	amount, err := decimal.NewFromString(input[loc[4]:loc[5]])
	if err != nil || amount.IsZero() {
		return nil, ErrNoAmount
	}

	symbol := ""
	if loc[2] >= 0 {
		symbol = input[loc[2]:loc[3]]
	}

	category := classify(p.categories, input, CategoryOther)

	return &ParsedExpense{
		Amount:      amount,
		Currency:    p.currency(symbol, input),
		Description: describe(input[:loc[0]]+" "+input[loc[1]:], category),
		Category:    category,
		Mood:        classify(p.moods, input, MoodNeutral),
		Location:    strings.ToLower(locationPattern.FindString(input)),
		RawInput:    input,
		Timestamp:   p.now(),
	}, nil
}

// Label sources reported by Categorize.
const (
	SourceMerchant = "merchant"
	SourceKeyword  = "keyword"
	SourceFallback = "fallback"
)

// Categorize classifies a bank or receipt label: the merchant table first,
// then the keyword rules.
func (p *Parser) Categorize(label string) (category, source string) {
	label = strings.TrimSpace(label)
	if c := CategorizeMerchant(label); c != CategoryOther {
		return c, SourceMerchant
	}
	if c := classify(p.categories, label, CategoryOther); c != CategoryOther {
		return c, SourceKeyword
	}
	return CategoryOther, SourceFallback
}

func (p *Parser) currency(symbol, input string) string {
	if code, ok := symbolCurrency[symbol]; ok {
		return code
	}
	if m := currencyCode.FindString(input); m != "" {
		return strings.ToUpper(m)
	}
	return p.defaultCurrency
}

func classify(rules []Rule, input, fallback string) string {
	for _, r := range rules {
		if r.Pattern.MatchString(input) {
			return r.Label
		}
	}
	return fallback
}

func describe(residual, category string) string {
	residual = currencyCode.ReplaceAllString(residual, "")
	residual = stopwords.ReplaceAllString(residual, "")
	residual = spaces.ReplaceAllString(residual, " ")
	residual = strings.Trim(residual, " ,.;:-!?")

	if utf8.RuneCountInString(residual) < 3 {
		residual = CannedDescription(category)
	}

	r, size := utf8.DecodeRuneInString(residual)
	return string(unicode.ToUpper(r)) + residual[size:]
}
