// Package yahoo is the stock data service, backed by the Yahoo Finance
// public chart and quote endpoints.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arxtrus/bootes/config"
	"github.com/arxtrus/bootes/internal/cache"
	"github.com/arxtrus/bootes/internal/httpx"
	"github.com/arxtrus/bootes/types"
)

const (
	defaultChartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultQuoteBaseURL = "https://query1.finance.yahoo.com/v6/finance/quote"

	cacheMaxItems = 1024
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.-]+$`)

// ValidSymbol reports whether symbol looks like a stock ticker: non-empty
// after trimming, at most 10 characters, alphanumerics plus dot and hyphen
// (so BRK.B and BTC-USD pass, AAPL$ does not).
func ValidSymbol(symbol string) bool {
	s := strings.TrimSpace(symbol)
	if len(s) == 0 || len(s) > 10 {
		return false
	}
	return symbolPattern.MatchString(s)
}

// Service fetches and normalizes stock data. Safe for concurrent use; the
// only instance state is read-only after construction plus the optional
// internally synchronized cache.
type Service struct {
	cfg      config.Config
	client   httpx.Doer
	chartURL string
	quoteURL string

	history *cache.Store[[]types.Candle]
	quotes  *cache.Store[*types.StockQuote]
}

// Option is a construction-time override, used by tests to point the
// service at a fixture server.
type Option func(*Service)

func WithChartBaseURL(u string) Option { return func(s *Service) { s.chartURL = u } }
func WithQuoteBaseURL(u string) Option { return func(s *Service) { s.quoteURL = u } }

func New(cfg config.Config, client httpx.Doer, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		client:   client,
		chartURL: defaultChartBaseURL,
		quoteURL: defaultQuoteBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.CacheEnabled {
		s.history = cache.New[[]types.Candle](cfg.CacheExpiry(), cacheMaxItems)
		s.quotes = cache.New[*types.StockQuote](cfg.CacheExpiry(), cacheMaxItems)
	}
	return s
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  any           `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
		Adjclose []struct {
			Adjclose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// History fetches OHLCV rows for symbol. Empty interval/period fall back to
// the configured defaults. Rows are returned in provider order; any row
// with a null component is dropped entirely.
func (s *Service) History(ctx context.Context, symbol, interval, period string) ([]types.Candle, error) {
	if !ValidSymbol(symbol) {
		return nil, types.Validation(fmt.Sprintf("Invalid stock symbol: %s", symbol), "symbol")
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if interval == "" {
		interval = s.cfg.DefaultStockInterval
	}
	if period == "" {
		period = s.cfg.DefaultStockPeriod
	}

	key := sym + "|" + interval + "|" + period
	if rows, ok := s.history.Get(key); ok {
		return rows, nil
	}

	params := url.Values{}
	params.Set("interval", interval)
	params.Set("period", period)
	params.Set("includePrePost", "false")
	params.Set("events", "div,splits")

	resp, err := s.get(ctx, fmt.Sprintf("%s/%s?%s", s.chartURL, url.PathEscape(sym), params.Encode()))
	if err != nil {
		return nil, types.Network(fmt.Sprintf("Failed to fetch data for %s: %v", symbol, err), err)
	}
	defer resp.Body.Close()
	if err := httpx.StatusError(resp); err != nil {
		var terr *types.Error
		if errors.As(err, &terr) {
			return nil, terr
		}
		return nil, types.Network(fmt.Sprintf("Failed to fetch data for %s: %v", symbol, err), err)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.API(fmt.Sprintf("Unexpected API response format: %v", err))
	}
	if len(payload.Chart.Result) == 0 {
		return nil, types.NotFound(fmt.Sprintf("No data found for symbol: %s", symbol), symbol)
	}
	result := payload.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		return nil, types.NotFound(fmt.Sprintf("No timestamp data for symbol: %s", symbol), symbol)
	}
	if len(result.Indicators.Quote) == 0 {
		return nil, types.API("Unexpected API response format: missing quote indicators")
	}

	rows := normalizeCandles(result, sym)
	s.history.Set(key, rows)
	return rows, nil
}

func normalizeCandles(result chartResult, symbol string) []types.Candle {
	quote := result.Indicators.Quote[0]
	hasAdj := len(result.Indicators.Adjclose) > 0
	var adj []*float64
	if hasAdj {
		adj = result.Indicators.Adjclose[0].Adjclose
	}

	rows := make([]types.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		open := at(quote.Open, i)
		high := at(quote.High, i)
		low := at(quote.Low, i)
		closePrice := at(quote.Close, i)
		volume := atInt(quote.Volume, i)
		if open == nil || high == nil || low == nil || closePrice == nil || volume == nil {
			continue // a row is either fully populated or excluded
		}
		var adjClose *float64
		if hasAdj {
			if adjClose = at(adj, i); adjClose == nil {
				continue
			}
		}
		rows = append(rows, types.Candle{
			Timestamp: time.Unix(ts, 0),
			Open:      *open,
			High:      *high,
			Low:       *low,
			Close:     *closePrice,
			Volume:    *volume,
			AdjClose:  adjClose,
			Symbol:    symbol,
		})
	}
	return rows
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

func atInt(vals []*int64, i int) *int64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol                     *string  `json:"symbol"`
			ShortName                  *string  `json:"shortName"`
			LongName                   *string  `json:"longName"`
			RegularMarketPrice         *float64 `json:"regularMarketPrice"`
			RegularMarketChange        *float64 `json:"regularMarketChange"`
			RegularMarketChangePercent *float64 `json:"regularMarketChangePercent"`
			RegularMarketVolume        *int64   `json:"regularMarketVolume"`
			MarketCap                  *float64 `json:"marketCap"`
			Currency                   *string  `json:"currency"`
			FullExchangeName           *string  `json:"fullExchangeName"`
			MarketState                *string  `json:"marketState"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// Quote fetches a single real-time quote. Missing upstream fields stay
// null; a quote is one record, not a table, so nothing is dropped.
func (s *Service) Quote(ctx context.Context, symbol string) (*types.StockQuote, error) {
	if !ValidSymbol(symbol) {
		return nil, types.Validation(fmt.Sprintf("Invalid stock symbol: %s", symbol), "symbol")
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))

	if q, ok := s.quotes.Get(sym); ok {
		return q, nil
	}

	params := url.Values{}
	params.Set("symbols", sym)

	resp, err := s.get(ctx, s.quoteURL+"?"+params.Encode())
	if err != nil {
		return nil, types.Network(fmt.Sprintf("Failed to fetch quote for %s: %v", symbol, err), err)
	}
	defer resp.Body.Close()
	if err := httpx.StatusError(resp); err != nil {
		var terr *types.Error
		if errors.As(err, &terr) {
			return nil, terr
		}
		return nil, types.Network(fmt.Sprintf("Failed to fetch quote for %s: %v", symbol, err), err)
	}

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.API(fmt.Sprintf("Unexpected API response format: %v", err))
	}
	if len(payload.QuoteResponse.Result) == 0 {
		return nil, types.NotFound(fmt.Sprintf("No quote data found for symbol: %s", symbol), symbol)
	}

	r := payload.QuoteResponse.Result[0]
	q := &types.StockQuote{
		Symbol:                     r.Symbol,
		ShortName:                  r.ShortName,
		LongName:                   r.LongName,
		RegularMarketPrice:         r.RegularMarketPrice,
		RegularMarketChange:        r.RegularMarketChange,
		RegularMarketChangePercent: r.RegularMarketChangePercent,
		RegularMarketVolume:        r.RegularMarketVolume,
		MarketCap:                  r.MarketCap,
		Currency:                   r.Currency,
		ExchangeName:               r.FullExchangeName,
		MarketState:                r.MarketState,
		Timestamp:                  time.Now(),
	}
	s.quotes.Set(sym, q)
	return q, nil
}

func (s *Service) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	// Yahoo throttles repeated User-Agents aggressively; rotate per request.
	req.Header.Set("User-Agent", uuid.NewString())
	req.Header.Set("Accept", "application/json")
	return s.client.Do(ctx, req)
}
