// Package rates fetches the euro foreign exchange reference rates published
// daily by the European Central Bank and converts amounts between currencies.
package rates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// DefaultURL is the ECB daily reference rates feed.
const DefaultURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

const base = "EUR"

var ErrNoRates = errors.New("no exchange rates found in feed")

// Rates holds units of each currency per euro on a given day.
type Rates struct {
	Date  time.Time
	units map[string]decimal.Decimal
}

// Rate returns the units of code per euro.
func (r *Rates) Rate(code string) (decimal.Decimal, bool) {
	code = strings.ToUpper(code)
	if code == base {
		return decimal.NewFromInt(1), true
	}
	v, ok := r.units[code]
	return v, ok
}

// Convert moves amount from one currency to another through the euro.
// ok is false when either currency is unknown.
func (r *Rates) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, bool) {
	if strings.EqualFold(from, to) {
		return amount, true
	}
	fromRate, ok := r.Rate(from)
	if !ok || fromRate.IsZero() {
		return decimal.Zero, false
	}
	toRate, ok := r.Rate(to)
	if !ok {
		return decimal.Zero, false
	}
	return amount.DivRound(fromRate, 10).Mul(toRate).Round(2), true
}

// Parse reads the ECB eurofxref XML document.
func Parse(raw []byte) (*Rates, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	r := &Rates{units: make(map[string]decimal.Decimal)}
	if day := doc.FindElement("//Cube[@time]"); day != nil {
		if t, err := time.Parse("2006-01-02", day.SelectAttrValue("time", "")); err == nil {
			r.Date = t
		}
	}

	for _, el := range doc.FindElements("//Cube[@currency]") {
		code := strings.ToUpper(el.SelectAttrValue("currency", ""))
		rate, err := decimal.NewFromString(el.SelectAttrValue("rate", ""))
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", code, err)
		}
		r.units[code] = rate
	}
	if len(r.units) == 0 {
		return nil, ErrNoRates
	}
	return r, nil
}

// Client downloads the feed.
type Client struct {
	url    string
	client *http.Client
}

func NewClient(url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Fetch(ctx context.Context) (*Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return Parse(body)
}

// Cache keeps the latest successfully fetched rates.
type Cache struct {
	client *Client
	mu     sync.RWMutex
	latest *Rates
}

func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// Refresh fetches new rates; on failure the previous rates stay in use.
func (c *Cache) Refresh(ctx context.Context) error {
	r, err := c.client.Fetch(ctx)
	if err != nil {
		utils.SafeWarn("Exchange rate refresh failed: %v", err)
		return err
	}
	c.mu.Lock()
	c.latest = r
	c.mu.Unlock()
	utils.SafeInfo("Exchange rates refreshed (%d currencies, %s)", len(r.units), r.Date.Format("2006-01-02"))
	return nil
}

func (c *Cache) Latest() *Rates {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Convert uses the latest rates; ok is false until the first refresh succeeds.
func (c *Cache) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, bool) {
	r := c.Latest()
	if r == nil {
		if strings.EqualFold(from, to) {
			return amount, true
		}
		return decimal.Zero, false
	}
	return r.Convert(amount, from, to)
}
