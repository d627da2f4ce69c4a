// Package exchangerate is the forex data service, backed by the
// exchangerate-api.com open endpoint.
package exchangerate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/arxtrus/bootes/config"
	"github.com/arxtrus/bootes/internal/cache"
	"github.com/arxtrus/bootes/internal/httpx"
	"github.com/arxtrus/bootes/types"
)

const (
	defaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

	cacheMaxItems = 256
)

var codePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Quote currencies for the USD major-pairs snapshot, in display order.
var majorCurrencies = []string{"EUR", "GBP", "JPY", "CHF", "CAD", "AUD", "NZD", "KRW"}

// Served when the currency list cannot be fetched. Kept deliberately small:
// a stale-but-plausible answer beats an error for this endpoint.
var fallbackCurrencies = []string{
	"USD", "EUR", "GBP", "JPY", "CHF", "CAD", "AUD", "NZD", "KRW", "CNY",
	"INR", "BRL", "RUB", "ZAR", "SGD", "HKD", "NOK", "SEK", "DKK",
}

// ValidCode reports whether code is an ISO-4217 style currency code:
// exactly three letters after trimming and uppercasing.
func ValidCode(code string) bool {
	return codePattern.MatchString(strings.ToUpper(strings.TrimSpace(code)))
}

// Service fetches exchange rate tables and derives single-pair and
// major-pair views from them.
type Service struct {
	cfg     config.Config
	client  httpx.Doer
	baseURL string

	rates *cache.Store[*types.ExchangeRates]
}

type Option func(*Service)

func WithBaseURL(u string) Option { return func(s *Service) { s.baseURL = u } }

func New(cfg config.Config, client httpx.Doer, opts ...Option) *Service {
	s := &Service{cfg: cfg, client: client, baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.CacheEnabled {
		s.rates = cache.New[*types.ExchangeRates](cfg.CacheExpiry(), cacheMaxItems)
	}
	return s
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// Rates fetches the full rate table for a base currency. An empty base
// defaults to USD.
func (s *Service) Rates(ctx context.Context, base string) (*types.ExchangeRates, error) {
	if base == "" {
		base = "USD"
	}
	if !ValidCode(base) {
		return nil, types.Validation(fmt.Sprintf("Invalid currency code: %s", base), "base_currency")
	}
	code := strings.ToUpper(strings.TrimSpace(base))

	if table, ok := s.rates.Get(code); ok {
		return table, nil
	}

	resp, err := s.get(ctx, s.baseURL+"/"+url.PathEscape(code))
	if err != nil {
		return nil, types.Network(fmt.Sprintf("Failed to fetch forex data for %s: %v", base, err), err)
	}
	defer resp.Body.Close()
	if err := httpx.StatusError(resp); err != nil {
		var terr *types.Error
		if errors.As(err, &terr) {
			return nil, terr
		}
		return nil, types.Network(fmt.Sprintf("Failed to fetch forex data for %s: %v", base, err), err)
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.API(fmt.Sprintf("Unexpected API response format: %v", err))
	}
	if payload.Rates == nil {
		return nil, types.NotFound(fmt.Sprintf("No exchange rate data found for: %s", base), "")
	}

	table := &types.ExchangeRates{
		Base:      payload.Base,
		Date:      payload.Date,
		Rates:     payload.Rates,
		Timestamp: time.Now(),
	}
	s.rates.Set(code, table)
	return table, nil
}

// Rate looks one conversion pair up in the base currency's table.
func (s *Service) Rate(ctx context.Context, from, to string) (*types.ExchangeRate, error) {
	if !ValidCode(from) {
		return nil, types.Validation(fmt.Sprintf("Invalid currency code: %s", from), "from_currency")
	}
	if !ValidCode(to) {
		return nil, types.Validation(fmt.Sprintf("Invalid currency code: %s", to), "to_currency")
	}

	table, err := s.Rates(ctx, from)
	if err != nil {
		return nil, err
	}

	toCode := strings.ToUpper(strings.TrimSpace(to))
	rate, ok := table.Rates[toCode]
	if !ok {
		return nil, types.NotFound(fmt.Sprintf("Exchange rate not found for %s to %s", from, to), "")
	}
	return &types.ExchangeRate{
		From:      strings.ToUpper(strings.TrimSpace(from)),
		To:        toCode,
		Rate:      rate,
		Date:      table.Date,
		Timestamp: table.Timestamp,
	}, nil
}

// MajorPairs derives the USD/{major} snapshot from the USD table. Pairs
// missing upstream are omitted rather than zero-filled. Every underlying
// failure, whatever its kind, surfaces as a single API_ERROR here.
func (s *Service) MajorPairs(ctx context.Context) (*types.MajorPairs, error) {
	table, err := s.Rates(ctx, "USD")
	if err != nil {
		return nil, types.API(fmt.Sprintf("Failed to fetch major currency pairs: %v", err))
	}

	pairs := make(map[string]float64, len(majorCurrencies))
	for _, c := range majorCurrencies {
		if rate, ok := table.Rates[c]; ok {
			pairs["USD/"+c] = rate
		}
	}
	return &types.MajorPairs{
		Base:      "USD",
		Rates:     pairs,
		Date:      table.Date,
		Timestamp: table.Timestamp,
	}, nil
}

// SupportedCurrencies lists the codes the upstream currently serves, sorted,
// with the base USD included. On any failure it degrades to the static
// fallback list instead of returning an error.
func (s *Service) SupportedCurrencies(ctx context.Context) []string {
	table, err := s.Rates(ctx, "USD")
	if err != nil {
		out := make([]string, len(fallbackCurrencies))
		copy(out, fallbackCurrencies)
		return out
	}

	out := make([]string, 0, len(table.Rates)+1)
	for code := range table.Rates {
		out = append(out, code)
	}
	if _, ok := table.Rates["USD"]; !ok {
		out = append(out, "USD")
	}
	sort.Strings(out)
	return out
}

func (s *Service) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return s.client.Do(ctx, req)
}
