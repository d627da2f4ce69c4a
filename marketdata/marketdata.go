// Package marketdata is the public entry point of the SDK. A Client exposes
// stock, forex and crypto data behind one flat surface; the per-domain
// services underneath are created lazily and reused for the lifetime of the
// Client.
package marketdata

import (
	"context"
	"sync"

	"github.com/arxtrus/bootes/config"
	"github.com/arxtrus/bootes/internal/httpx"
	"github.com/arxtrus/bootes/internal/provider/coingecko"
	"github.com/arxtrus/bootes/internal/provider/exchangerate"
	"github.com/arxtrus/bootes/internal/provider/yahoo"
	"github.com/arxtrus/bootes/types"
)

// Client is safe for concurrent use. All methods return errors from the
// shared taxonomy in the types package.
type Client struct {
	cfg  config.Config
	http *httpx.Client

	stockOpts  []yahoo.Option
	forexOpts  []exchangerate.Option
	cryptoOpts []coingecko.Option

	stocksOnce sync.Once
	stocks     *yahoo.Service

	forexOnce sync.Once
	forex     *exchangerate.Service

	cryptoOnce sync.Once
	crypto     *coingecko.Service
}

// Option customizes a Client at construction time.
type Option func(*Client)

// WithStockEndpoints overrides the Yahoo Finance chart and quote base URLs.
func WithStockEndpoints(chartURL, quoteURL string) Option {
	return func(c *Client) {
		c.stockOpts = append(c.stockOpts, yahoo.WithChartBaseURL(chartURL), yahoo.WithQuoteBaseURL(quoteURL))
	}
}

// WithForexEndpoint overrides the exchange rate base URL.
func WithForexEndpoint(u string) Option {
	return func(c *Client) {
		c.forexOpts = append(c.forexOpts, exchangerate.WithBaseURL(u))
	}
}

// WithCryptoEndpoint overrides the CoinGecko base URL.
func WithCryptoEndpoint(u string) Option {
	return func(c *Client) {
		c.cryptoOpts = append(c.cryptoOpts, coingecko.WithBaseURL(u))
	}
}

// New builds a Client from an explicit configuration.
func New(cfg config.Config, opts ...Option) *Client {
	c := &Client{cfg: cfg, http: httpx.New(cfg)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromEnv builds a Client from BOOTES_* environment variables, falling
// back to defaults for anything unset.
func NewFromEnv(opts ...Option) (*Client, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...), nil
}

func (c *Client) stockService() *yahoo.Service {
	c.stocksOnce.Do(func() {
		c.stocks = yahoo.New(c.cfg, c.http, c.stockOpts...)
	})
	return c.stocks
}

func (c *Client) forexService() *exchangerate.Service {
	c.forexOnce.Do(func() {
		c.forex = exchangerate.New(c.cfg, c.http, c.forexOpts...)
	})
	return c.forex
}

func (c *Client) cryptoService() *coingecko.Service {
	c.cryptoOnce.Do(func() {
		c.crypto = coingecko.New(c.cfg, c.http, c.cryptoOpts...)
	})
	return c.crypto
}

// StockHistory fetches OHLCV rows for a stock symbol. Empty interval and
// period take the configured defaults.
func (c *Client) StockHistory(ctx context.Context, symbol, interval, period string) ([]types.Candle, error) {
	return c.stockService().History(ctx, symbol, interval, period)
}

// StockQuote fetches a real-time quote for a stock symbol.
func (c *Client) StockQuote(ctx context.Context, symbol string) (*types.StockQuote, error) {
	return c.stockService().Quote(ctx, symbol)
}

// ForexRates fetches the full rate table for a base currency. An empty base
// defaults to USD.
func (c *Client) ForexRates(ctx context.Context, base string) (*types.ExchangeRates, error) {
	return c.forexService().Rates(ctx, base)
}

// ForexRate resolves a single currency pair.
func (c *Client) ForexRate(ctx context.Context, from, to string) (*types.ExchangeRate, error) {
	return c.forexService().Rate(ctx, from, to)
}

// MajorPairs fetches the USD major-pairs snapshot.
func (c *Client) MajorPairs(ctx context.Context) (*types.MajorPairs, error) {
	return c.forexService().MajorPairs(ctx)
}

// SupportedCurrencies lists the currency codes the forex upstream serves,
// degrading to a static list when the upstream is unavailable.
func (c *Client) SupportedCurrencies(ctx context.Context) []string {
	return c.forexService().SupportedCurrencies(ctx)
}

// CryptoPrice fetches the spot price of a coin in one quote currency. An
// empty vsCurrency defaults to usd.
func (c *Client) CryptoPrice(ctx context.Context, symbol, vsCurrency string) (*types.CryptoPrice, error) {
	return c.cryptoService().Price(ctx, symbol, vsCurrency)
}

// CryptoMarket fetches the detailed market record for a coin.
func (c *Client) CryptoMarket(ctx context.Context, symbol, vsCurrency string) (*types.CryptoMarket, error) {
	return c.cryptoService().MarketData(ctx, symbol, vsCurrency)
}

// TopCryptos lists coins by market cap, descending. Limits above 250 are
// clamped; limits below 1 take the default of 10.
func (c *Client) TopCryptos(ctx context.Context, limit int, vsCurrency string) ([]types.CryptoListing, error) {
	return c.cryptoService().TopCryptos(ctx, limit, vsCurrency)
}

// SearchCrypto finds coins matching a free-text query of at least two
// characters.
func (c *Client) SearchCrypto(ctx context.Context, query string) ([]types.CoinMatch, error) {
	return c.cryptoService().Search(ctx, query)
}
