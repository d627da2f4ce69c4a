package coingecko_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/arxtrus/bootes/config"
	"github.com/arxtrus/bootes/internal/httpx"
	"github.com/arxtrus/bootes/internal/httpx/httpxmock"
	"github.com/arxtrus/bootes/internal/provider/coingecko"
	"github.com/arxtrus/bootes/types"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.MaxRetries = 0
	cfg.RetryDelay = 0.001
	cfg.RequestsPerMinute = 0
	return cfg
}

func newService(t *testing.T, handler http.HandlerFunc) *coingecko.Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return coingecko.New(testConfig(), httpx.New(testConfig()), coingecko.WithBaseURL(srv.URL))
}

func TestValidSymbol(t *testing.T) {
	t.Parallel()

	assert.True(t, coingecko.ValidSymbol("bitcoin"))
	assert.True(t, coingecko.ValidSymbol("BITCOIN"))
	assert.True(t, coingecko.ValidSymbol("matic-network"))
	assert.True(t, coingecko.ValidSymbol(" ethereum "))
	assert.False(t, coingecko.ValidSymbol(""))
	assert.False(t, coingecko.ValidSymbol("bit coin"))
	assert.False(t, coingecko.ValidSymbol("bitcoin!"))
	assert.False(t, coingecko.ValidSymbol("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")) // 51 chars
}

func TestPrice(t *testing.T) {
	t.Parallel()

	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/simple/price", r.URL.Path)
		require.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		require.Equal(t, "krw", r.URL.Query().Get("vs_currencies"))
		w.Write([]byte(`{
		  "bitcoin": {
		    "krw": 55000000.0,
		    "krw_market_cap": 1.1e15,
		    "krw_24h_vol": 3.2e13,
		    "krw_24h_change": -2.1,
		    "last_updated_at": 1700000000
		  }
		}`))
	})

	p, err := svc.Price(t.Context(), " Bitcoin ", "KRW")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", p.Symbol)
	assert.Equal(t, "krw", p.VsCurrency)
	require.NotNil(t, p.Price)
	assert.Equal(t, 55000000.0, *p.Price)
	require.NotNil(t, p.Change24h)
	assert.Equal(t, -2.1, *p.Change24h)
	require.NotNil(t, p.LastUpdated)
	assert.Equal(t, int64(1700000000), p.LastUpdated.Unix())
}

func TestPriceMissingOptionalFieldsStayNull(t *testing.T) {
	t.Parallel()

	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin": {"usd": 65000.0}}`))
	})

	p, err := svc.Price(t.Context(), "bitcoin", "")
	require.NoError(t, err)
	assert.Equal(t, "usd", p.VsCurrency)
	require.NotNil(t, p.Price)
	assert.Nil(t, p.MarketCap)
	assert.Nil(t, p.Volume24h)
	assert.Nil(t, p.LastUpdated)
}

func TestPriceUnknownCoinIsNotFound(t *testing.T) {
	t.Parallel()

	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := svc.Price(t.Context(), "no-such-coin", "usd")
	require.True(t, types.IsNotFound(err))
	require.EqualError(t, err, "[DATA_NOT_FOUND] No data found for symbol: no-such-coin")
}

func TestPriceInvalidSymbolSkipsNetwork(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	doer := httpxmock.NewMockDoer(ctrl)

	svc := coingecko.New(testConfig(), doer)
	_, err := svc.Price(t.Context(), "bit coin", "usd")
	require.True(t, types.IsValidation(err))
	require.EqualError(t, err, "[VALIDATION_ERROR] Invalid crypto symbol: bit coin")
}

func TestMarketData(t *testing.T) {
	t.Parallel()

	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/coins/ethereum", r.URL.Path)
		require.Equal(t, "false", r.URL.Query().Get("localization"))
		require.Equal(t, "true", r.URL.Query().Get("market_data"))
		w.Write([]byte(`{
		  "id": "ethereum",
		  "symbol": "eth",
		  "name": "Ethereum",
		  "last_updated": "2026-08-20T10:00:00.000Z",
		  "market_data": {
		    "current_price": {"usd": 3200.5, "krw": 4300000.0},
		    "market_cap": {"usd": 3.8e11},
		    "market_cap_rank": 2,
		    "total_volume": {"usd": 1.5e10},
		    "high_24h": {"usd": 3300.0},
		    "low_24h": {"usd": 3100.0},
		    "price_change_24h": -50.5,
		    "price_change_percentage_24h": -1.55,
		    "circulating_supply": 120000000.0,
		    "total_supply": 120000000.0,
		    "ath": {"usd": 4878.26},
		    "atl": {"usd": 0.43}
		  }
		}`))
	})

	m, err := svc.MarketData(t.Context(), "ETHEREUM", "")
	require.NoError(t, err)
	require.NotNil(t, m.ID)
	assert.Equal(t, "ethereum", *m.ID)
	require.NotNil(t, m.CurrentPrice)
	assert.Equal(t, 3200.5, *m.CurrentPrice)
	require.NotNil(t, m.MarketCapRank)
	assert.Equal(t, 2, *m.MarketCapRank)
	require.NotNil(t, m.ATH)
	assert.Equal(t, 4878.26, *m.ATH)
	assert.Nil(t, m.MaxSupply) // absent upstream
	assert.Equal(t, "usd", m.VsCurrency)
}

func TestMarketDataMissingSectionIsNotFound(t *testing.T) {
	t.Parallel()

	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "ethereum", "symbol": "eth", "name": "Ethereum"}`))
	})

	_, err := svc.MarketData(t.Context(), "ethereum", "usd")
	require.True(t, types.IsNotFound(err))
	assert.Contains(t, err.Error(), "No market data found for symbol: ethereum")
}

func TestTopCryptosClampsLimit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		limit   int
		wantPer string
	}{
		{"above cap", 300, "250"},
		{"zero takes default", 0, "10"},
		{"negative takes default", -5, "10"},
		{"in range", 25, "25"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var gotPerPage string
			svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
				gotPerPage = r.URL.Query().Get("per_page")
				require.Equal(t, "market_cap_desc", r.URL.Query().Get("order"))
				require.Equal(t, "1", r.URL.Query().Get("page"))
				w.Write([]byte(`[{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":65000.0,"market_cap_rank":1}]`))
			})

			rows, err := svc.TopCryptos(t.Context(), tc.limit, "usd")
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, tc.wantPer, gotPerPage)
		})
	}
}

func TestTopCryptosEmptyIsNotFound(t *testing.T) {
	t.Parallel()

	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := svc.TopCryptos(t.Context(), 10, "usd")
	require.True(t, types.IsNotFound(err))
	require.EqualError(t, err, "[DATA_NOT_FOUND] No top crypto data available")
}

func TestSearch(t *testing.T) {
	t.Parallel()

	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "bitcoin", r.URL.Query().Get("query"))
		w.Write([]byte(`{
		  "coins": [
		    {"id": "bitcoin", "name": "Bitcoin", "symbol": "BTC", "market_cap_rank": 1},
		    {"id": "bitcoin-cash", "name": "Bitcoin Cash", "symbol": "BCH", "market_cap_rank": 20}
		  ]
		}`))
	})

	matches, err := svc.Search(t.Context(), " bitcoin ")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.NotNil(t, matches[0].ID)
	assert.Equal(t, "bitcoin", *matches[0].ID)
	require.NotNil(t, matches[1].MarketCapRank)
	assert.Equal(t, 20, *matches[1].MarketCapRank)
}

func TestSearchMissingCoinsKeyIsEmptyResult(t *testing.T) {
	t.Parallel()

	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"exchanges": []}`))
	})

	matches, err := svc.Search(t.Context(), "bitcoin")
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.NotNil(t, matches)
}

func TestSearchShortQueryIsValidationError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	doer := httpxmock.NewMockDoer(ctrl)
	svc := coingecko.New(testConfig(), doer)

	for _, q := range []string{"", "b", " b "} {
		_, err := svc.Search(t.Context(), q)
		require.True(t, types.IsValidation(err))
		require.EqualError(t, err, "[VALIDATION_ERROR] Query must be at least 2 characters")
	}
}

func TestPriceRateLimitPropagates(t *testing.T) {
	t.Parallel()

	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := svc.Price(t.Context(), "bitcoin", "usd")
	require.True(t, types.IsRateLimit(err))
}

func TestPriceCaching(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"bitcoin": {"usd": 65000.0}}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.CacheEnabled = true
	cfg.CacheTTL = 300

	svc := coingecko.New(cfg, httpx.New(cfg), coingecko.WithBaseURL(srv.URL))
	first, err := svc.Price(t.Context(), "bitcoin", "usd")
	require.NoError(t, err)
	second, err := svc.Price(t.Context(), "bitcoin", "usd")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}
