// Package types holds the canonical record shapes returned by every data
// service, plus the shared error taxonomy. Optional upstream fields are
// pointers so that a null in the provider response stays a null in ours.
package types

import "time"

// Candle is one fully populated OHLCV row. Rows with any missing component
// are dropped during normalization, so a Candle never carries partial data.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	AdjClose  *float64  `json:"adj_close,omitempty"`
	Symbol    string    `json:"symbol"`
}

// StockQuote is a single real-time quote snapshot. Unlike Candle, missing
// upstream fields are preserved as null instead of invalidating the record.
type StockQuote struct {
	Symbol                     *string   `json:"symbol"`
	ShortName                  *string   `json:"shortName"`
	LongName                   *string   `json:"longName"`
	RegularMarketPrice         *float64  `json:"regularMarketPrice"`
	RegularMarketChange        *float64  `json:"regularMarketChange"`
	RegularMarketChangePercent *float64  `json:"regularMarketChangePercent"`
	RegularMarketVolume        *int64    `json:"regularMarketVolume"`
	MarketCap                  *float64  `json:"marketCap"`
	Currency                   *string   `json:"currency"`
	ExchangeName               *string   `json:"exchangeName"`
	MarketState                *string   `json:"marketState"`
	Timestamp                  time.Time `json:"timestamp"`
}

// ExchangeRates is a full base-currency quote set, rates passed through
// verbatim from the upstream.
type ExchangeRates struct {
	Base      string             `json:"base"`
	Date      string             `json:"date"`
	Rates     map[string]float64 `json:"rates"`
	Timestamp time.Time          `json:"timestamp"`
}

// ExchangeRate is one resolved currency pair. Timestamp is inherited from
// the ExchangeRates fetch it was derived from, not regenerated.
type ExchangeRate struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Rate      float64   `json:"rate"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

// MajorPairs holds USD/{code} rates for the fixed major-currency set.
type MajorPairs struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	Date      string             `json:"date"`
	Timestamp time.Time          `json:"timestamp"`
}

// CryptoPrice is the flat price record from the simple-price endpoint.
type CryptoPrice struct {
	Symbol      string     `json:"symbol"`
	Price       *float64   `json:"price"`
	MarketCap   *float64   `json:"market_cap"`
	Volume24h   *float64   `json:"volume_24h"`
	Change24h   *float64   `json:"change_24h"`
	VsCurrency  string     `json:"vs_currency"`
	LastUpdated *time.Time `json:"last_updated"`
	Timestamp   time.Time  `json:"timestamp"`
}

// CryptoMarket is the richer per-coin market record. Every per-currency
// figure is null when the upstream does not quote it in the requested
// vs_currency.
type CryptoMarket struct {
	ID                       *string   `json:"id"`
	Symbol                   *string   `json:"symbol"`
	Name                     *string   `json:"name"`
	CurrentPrice             *float64  `json:"current_price"`
	MarketCap                *float64  `json:"market_cap"`
	MarketCapRank            *int      `json:"market_cap_rank"`
	TotalVolume              *float64  `json:"total_volume"`
	High24h                  *float64  `json:"high_24h"`
	Low24h                   *float64  `json:"low_24h"`
	PriceChange24h           *float64  `json:"price_change_24h"`
	PriceChangePercentage24h *float64  `json:"price_change_percentage_24h"`
	CirculatingSupply        *float64  `json:"circulating_supply"`
	TotalSupply              *float64  `json:"total_supply"`
	MaxSupply                *float64  `json:"max_supply"`
	ATH                      *float64  `json:"ath"`
	ATL                      *float64  `json:"atl"`
	VsCurrency               string    `json:"vs_currency"`
	LastUpdated              *string   `json:"last_updated"`
	Timestamp                time.Time `json:"timestamp"`
}

// CryptoListing is one row of the market-cap-ordered coin listing.
type CryptoListing struct {
	ID                       *string  `json:"id"`
	Symbol                   *string  `json:"symbol"`
	Name                     *string  `json:"name"`
	CurrentPrice             *float64 `json:"current_price"`
	MarketCap                *float64 `json:"market_cap"`
	MarketCapRank            *int     `json:"market_cap_rank"`
	TotalVolume              *float64 `json:"total_volume"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
	VsCurrency               string   `json:"vs_currency"`
}

// CoinMatch is one coin search hit.
type CoinMatch struct {
	ID            *string `json:"id"`
	Name          *string `json:"name"`
	Symbol        *string `json:"symbol"`
	MarketCapRank *int    `json:"market_cap_rank"`
	Thumb         *string `json:"thumb"`
	Large         *string `json:"large"`
}
