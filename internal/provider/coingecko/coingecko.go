// Package coingecko is the crypto data service, backed by the CoinGecko v3
// public API. Coin identifiers are CoinGecko ids ("bitcoin", "matic-network"),
// not exchange tickers.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/arxtrus/bootes/config"
	"github.com/arxtrus/bootes/internal/cache"
	"github.com/arxtrus/bootes/internal/httpx"
	"github.com/arxtrus/bootes/types"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"

	// Upstream caps per_page at 250; requests for more are clamped, not
	// rejected. Non-positive limits take the default instead.
	maxTopLimit     = 250
	defaultTopLimit = 10

	defaultVsCurrency = "usd"

	cacheMaxItems = 1024
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// ValidSymbol reports whether symbol looks like a CoinGecko coin id:
// non-empty after trimming, at most 50 characters, alphanumerics and
// hyphens.
func ValidSymbol(symbol string) bool {
	s := strings.TrimSpace(symbol)
	if len(s) == 0 || len(s) > 50 {
		return false
	}
	return idPattern.MatchString(s)
}

// Service fetches and normalizes crypto market data.
type Service struct {
	cfg     config.Config
	client  httpx.Doer
	baseURL string

	prices   *cache.Store[*types.CryptoPrice]
	markets  *cache.Store[*types.CryptoMarket]
	listings *cache.Store[[]types.CryptoListing]
}

type Option func(*Service)

func WithBaseURL(u string) Option { return func(s *Service) { s.baseURL = u } }

func New(cfg config.Config, client httpx.Doer, opts ...Option) *Service {
	s := &Service{cfg: cfg, client: client, baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.CacheEnabled {
		s.prices = cache.New[*types.CryptoPrice](cfg.CacheExpiry(), cacheMaxItems)
		s.markets = cache.New[*types.CryptoMarket](cfg.CacheExpiry(), cacheMaxItems)
		s.listings = cache.New[[]types.CryptoListing](cfg.CacheExpiry(), cacheMaxItems)
	}
	return s
}

// Price fetches the spot price of one coin in one quote currency, with
// market cap, 24h volume and 24h change when the upstream provides them.
func (s *Service) Price(ctx context.Context, symbol, vsCurrency string) (*types.CryptoPrice, error) {
	if !ValidSymbol(symbol) {
		return nil, types.Validation(fmt.Sprintf("Invalid crypto symbol: %s", symbol), "symbol")
	}
	id := strings.ToLower(strings.TrimSpace(symbol))
	vs := normalizeVs(vsCurrency)

	key := id + "|" + vs
	if p, ok := s.prices.Get(key); ok {
		return p, nil
	}

	params := url.Values{}
	params.Set("ids", id)
	params.Set("vs_currencies", vs)
	params.Set("include_market_cap", "true")
	params.Set("include_24hr_vol", "true")
	params.Set("include_24hr_change", "true")
	params.Set("include_last_updated_at", "true")

	resp, err := s.get(ctx, s.baseURL+"/simple/price?"+params.Encode())
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

	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.API(fmt.Sprintf("Unexpected API response format: %v", err))
	}
	coin, ok := payload[id]
	if !ok {
		return nil, types.NotFound(fmt.Sprintf("No data found for symbol: %s", symbol), symbol)
	}

	price := &types.CryptoPrice{
		Symbol:     id,
		Price:      field(coin, vs),
		MarketCap:  field(coin, vs+"_market_cap"),
		Volume24h:  field(coin, vs+"_24h_vol"),
		Change24h:  field(coin, vs+"_24h_change"),
		VsCurrency: vs,
		Timestamp:  time.Now(),
	}
	if v, ok := coin["last_updated_at"]; ok {
		updated := time.Unix(int64(v), 0)
		price.LastUpdated = &updated
	}
	s.prices.Set(key, price)
	return price, nil
}

type coinResponse struct {
	ID          *string     `json:"id"`
	Symbol      *string     `json:"symbol"`
	Name        *string     `json:"name"`
	MarketData  *marketData `json:"market_data"`
	LastUpdated *string     `json:"last_updated"`
}

type marketData struct {
	CurrentPrice             map[string]float64 `json:"current_price"`
	MarketCap                map[string]float64 `json:"market_cap"`
	MarketCapRank            *int               `json:"market_cap_rank"`
	TotalVolume              map[string]float64 `json:"total_volume"`
	High24h                  map[string]float64 `json:"high_24h"`
	Low24h                   map[string]float64 `json:"low_24h"`
	PriceChange24h           *float64           `json:"price_change_24h"`
	PriceChangePercentage24h *float64           `json:"price_change_percentage_24h"`
	CirculatingSupply        *float64           `json:"circulating_supply"`
	TotalSupply              *float64           `json:"total_supply"`
	MaxSupply                *float64           `json:"max_supply"`
	ATH                      map[string]float64 `json:"ath"`
	ATL                      map[string]float64 `json:"atl"`
}

// MarketData fetches the detailed market record for one coin.
func (s *Service) MarketData(ctx context.Context, symbol, vsCurrency string) (*types.CryptoMarket, error) {
	if !ValidSymbol(symbol) {
		return nil, types.Validation(fmt.Sprintf("Invalid crypto symbol: %s", symbol), "symbol")
	}
	id := strings.ToLower(strings.TrimSpace(symbol))
	vs := normalizeVs(vsCurrency)

	key := id + "|" + vs
	if m, ok := s.markets.Get(key); ok {
		return m, nil
	}

	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("market_data", "true")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")
	params.Set("sparkline", "false")

	resp, err := s.get(ctx, s.baseURL+"/coins/"+url.PathEscape(id)+"?"+params.Encode())
	if err != nil {
		return nil, types.Network(fmt.Sprintf("Failed to fetch market data for %s: %v", symbol, err), err)
	}
	defer resp.Body.Close()
	if err := httpx.StatusError(resp); err != nil {
		var terr *types.Error
		if errors.As(err, &terr) {
			return nil, terr
		}
		return nil, types.Network(fmt.Sprintf("Failed to fetch market data for %s: %v", symbol, err), err)
	}

	var payload coinResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.API(fmt.Sprintf("Unexpected API response format: %v", err))
	}
	if payload.MarketData == nil {
		return nil, types.NotFound(fmt.Sprintf("No market data found for symbol: %s", symbol), symbol)
	}

	md := payload.MarketData
	market := &types.CryptoMarket{
		ID:                       payload.ID,
		Symbol:                   payload.Symbol,
		Name:                     payload.Name,
		CurrentPrice:             field(md.CurrentPrice, vs),
		MarketCap:                field(md.MarketCap, vs),
		MarketCapRank:            md.MarketCapRank,
		TotalVolume:              field(md.TotalVolume, vs),
		High24h:                  field(md.High24h, vs),
		Low24h:                   field(md.Low24h, vs),
		PriceChange24h:           md.PriceChange24h,
		PriceChangePercentage24h: md.PriceChangePercentage24h,
		CirculatingSupply:        md.CirculatingSupply,
		TotalSupply:              md.TotalSupply,
		MaxSupply:                md.MaxSupply,
		ATH:                      field(md.ATH, vs),
		ATL:                      field(md.ATL, vs),
		VsCurrency:               vs,
		LastUpdated:              payload.LastUpdated,
		Timestamp:                time.Now(),
	}
	s.markets.Set(key, market)
	return market, nil
}

type listingResponse struct {
	ID                       *string  `json:"id"`
	Symbol                   *string  `json:"symbol"`
	Name                     *string  `json:"name"`
	CurrentPrice             *float64 `json:"current_price"`
	MarketCap                *float64 `json:"market_cap"`
	MarketCapRank            *int     `json:"market_cap_rank"`
	TotalVolume              *float64 `json:"total_volume"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
}

// TopCryptos lists coins ranked by market cap, descending. Limits above 250
// are clamped to 250; limits below 1 take the default of 10.
func (s *Service) TopCryptos(ctx context.Context, limit int, vsCurrency string) ([]types.CryptoListing, error) {
	vs := normalizeVs(vsCurrency)
	if limit > maxTopLimit {
		limit = maxTopLimit
	} else if limit < 1 {
		limit = defaultTopLimit
	}

	key := vs + "|" + strconv.Itoa(limit)
	if rows, ok := s.listings.Get(key); ok {
		return rows, nil
	}

	params := url.Values{}
	params.Set("vs_currency", vs)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(limit))
	params.Set("page", "1")
	params.Set("sparkline", "false")

	resp, err := s.get(ctx, s.baseURL+"/coins/markets?"+params.Encode())
	if err != nil {
		return nil, types.Network(fmt.Sprintf("Failed to fetch top cryptos: %v", err), err)
	}
	defer resp.Body.Close()
	if err := httpx.StatusError(resp); err != nil {
		var terr *types.Error
		if errors.As(err, &terr) {
			return nil, terr
		}
		return nil, types.Network(fmt.Sprintf("Failed to fetch top cryptos: %v", err), err)
	}

	var payload []listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.API(fmt.Sprintf("Unexpected API response format: %v", err))
	}
	if len(payload) == 0 {
		return nil, types.NotFound("No top crypto data available", "")
	}

	rows := make([]types.CryptoListing, 0, len(payload))
	for _, coin := range payload {
		rows = append(rows, types.CryptoListing{
			ID:                       coin.ID,
			Symbol:                   coin.Symbol,
			Name:                     coin.Name,
			CurrentPrice:             coin.CurrentPrice,
			MarketCap:                coin.MarketCap,
			MarketCapRank:            coin.MarketCapRank,
			TotalVolume:              coin.TotalVolume,
			PriceChangePercentage24h: coin.PriceChangePercentage24h,
			VsCurrency:               vs,
		})
	}
	s.listings.Set(key, rows)
	return rows, nil
}

type searchResponse struct {
	Coins []struct {
		ID            *string `json:"id"`
		Name          *string `json:"name"`
		Symbol        *string `json:"symbol"`
		MarketCapRank *int    `json:"market_cap_rank"`
		Thumb         *string `json:"thumb"`
		Large         *string `json:"large"`
	} `json:"coins"`
}

// Search finds coins matching a free-text query. A response without a coins
// section is an empty result, not an error.
func (s *Service) Search(ctx context.Context, query string) ([]types.CoinMatch, error) {
	q := strings.TrimSpace(query)
	if len(q) < 2 {
		return nil, types.Validation("Query must be at least 2 characters", "query")
	}

	params := url.Values{}
	params.Set("query", q)

	resp, err := s.get(ctx, s.baseURL+"/search?"+params.Encode())
	if err != nil {
		return nil, types.Network(fmt.Sprintf("Failed to search crypto: %v", err), err)
	}
	defer resp.Body.Close()
	if err := httpx.StatusError(resp); err != nil {
		var terr *types.Error
		if errors.As(err, &terr) {
			return nil, terr
		}
		return nil, types.Network(fmt.Sprintf("Failed to search crypto: %v", err), err)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.API(fmt.Sprintf("Unexpected API response format: %v", err))
	}

	matches := make([]types.CoinMatch, 0, len(payload.Coins))
	for _, coin := range payload.Coins {
		matches = append(matches, types.CoinMatch{
			ID:            coin.ID,
			Name:          coin.Name,
			Symbol:        coin.Symbol,
			MarketCapRank: coin.MarketCapRank,
			Thumb:         coin.Thumb,
			Large:         coin.Large,
		})
	}
	return matches, nil
}

func normalizeVs(vsCurrency string) string {
	vs := strings.ToLower(strings.TrimSpace(vsCurrency))
	if vs == "" {
		return defaultVsCurrency
	}
	return vs
}

func field(m map[string]float64, key string) *float64 {
	if v, ok := m[key]; ok {
		return &v
	}
	return nil
}

func (s *Service) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return s.client.Do(ctx, req)
}
