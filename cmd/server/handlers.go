package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arxtrus/bootes/types"
)

// dataAPI is the slice of the SDK the gateway uses; *marketdata.Client
// satisfies it, test fakes stand in for it.
type dataAPI interface {
	StockHistory(ctx context.Context, symbol, interval, period string) ([]types.Candle, error)
	StockQuote(ctx context.Context, symbol string) (*types.StockQuote, error)
	ForexRates(ctx context.Context, base string) (*types.ExchangeRates, error)
	ForexRate(ctx context.Context, from, to string) (*types.ExchangeRate, error)
	MajorPairs(ctx context.Context) (*types.MajorPairs, error)
	SupportedCurrencies(ctx context.Context) []string
	CryptoPrice(ctx context.Context, symbol, vsCurrency string) (*types.CryptoPrice, error)
	CryptoMarket(ctx context.Context, symbol, vsCurrency string) (*types.CryptoMarket, error)
	TopCryptos(ctx context.Context, limit int, vsCurrency string) ([]types.CryptoListing, error)
	SearchCrypto(ctx context.Context, query string) ([]types.CoinMatch, error)
}

type apiMetrics struct {
	requests metrics.Counter
	duration metrics.Histogram
}

var (
	metricsOnce   sync.Once
	sharedMetrics *apiMetrics
)

// newAPIMetrics registers with the default prometheus registry, which
// allows each collector exactly once per process.
func newAPIMetrics() *apiMetrics {
	metricsOnce.Do(func() {
		labels := []string{"route", "code"}
		sharedMetrics = &apiMetrics{
			requests: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "bootes",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Gateway requests by route and status code.",
			}, labels),
			duration: kitprometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
				Namespace: "bootes",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Gateway request latency by route and status code.",
			}, labels),
		}
	})
	return sharedMetrics
}

type server struct {
	data    dataAPI
	logger  log.Logger
	metrics *apiMetrics
}

func newServer(data dataAPI, logger log.Logger) *server {
	return &server{data: data, logger: logger, metrics: newAPIMetrics()}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /stocks/{symbol}/price", s.instrument("stock_price", s.handleStockPrice))
	mux.HandleFunc("GET /stocks/{symbol}/info", s.instrument("stock_info", s.handleStockInfo))

	mux.HandleFunc("GET /forex/major-pairs", s.instrument("forex_major_pairs", s.handleMajorPairs))
	mux.HandleFunc("GET /forex/supported-currencies", s.instrument("forex_supported", s.handleSupportedCurrencies))
	mux.HandleFunc("GET /forex/{pair}/rate", s.instrument("forex_rate", s.handleForexPairRate))
	mux.HandleFunc("GET /forex/{from}/{to}/rate", s.instrument("forex_rate", s.handleForexRate))

	mux.HandleFunc("GET /crypto/top", s.instrument("crypto_top", s.handleTopCryptos))
	mux.HandleFunc("GET /crypto/search", s.instrument("crypto_search", s.handleCryptoSearch))
	mux.HandleFunc("GET /crypto/{symbol}/price", s.instrument("crypto_price", s.handleCryptoPrice))
	mux.HandleFunc("GET /crypto/{symbol}/market", s.instrument("crypto_market", s.handleCryptoMarket))

	return mux
}

// instrument records the request count, latency and a request log line for
// one route.
func (s *server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)

		code := strconv.Itoa(sw.code)
		s.metrics.requests.With("route", route, "code", code).Add(1)
		s.metrics.duration.With("route", route, "code", code).Observe(time.Since(start).Seconds())
		level.Debug(s.logger).Log(
			"route", route,
			"path", r.URL.Path,
			"code", sw.code,
			"took", time.Since(start),
		)
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *server) handleStockPrice(w http.ResponseWriter, r *http.Request) {
	rows, err := s.data.StockHistory(r.Context(),
		r.PathValue("symbol"),
		r.URL.Query().Get("interval"),
		r.URL.Query().Get("period"),
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (s *server) handleStockInfo(w http.ResponseWriter, r *http.Request) {
	q, err := s.data.StockQuote(r.Context(), r.PathValue("symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// handleForexPairRate serves the FROM-TO single-segment pair form.
func (s *server) handleForexPairRate(w http.ResponseWriter, r *http.Request) {
	from, to, ok := splitPair(r.PathValue("pair"))
	if !ok {
		s.writeError(w, types.Validation("Invalid currency pair format. Use FROM-TO", "pair"))
		return
	}
	s.serveForexRate(w, r, from, to)
}

func (s *server) handleForexRate(w http.ResponseWriter, r *http.Request) {
	s.serveForexRate(w, r, r.PathValue("from"), r.PathValue("to"))
}

func (s *server) serveForexRate(w http.ResponseWriter, r *http.Request, from, to string) {
	rate, err := s.data.ForexRate(r.Context(), from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

func (s *server) handleMajorPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.data.MajorPairs(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pairs)
}

func (s *server) handleSupportedCurrencies(w http.ResponseWriter, r *http.Request) {
	codes := s.data.SupportedCurrencies(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"currencies": codes})
}

func (s *server) handleCryptoPrice(w http.ResponseWriter, r *http.Request) {
	p, err := s.data.CryptoPrice(r.Context(), r.PathValue("symbol"), r.URL.Query().Get("vs_currency"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleCryptoMarket(w http.ResponseWriter, r *http.Request) {
	m, err := s.data.CryptoMarket(r.Context(), r.PathValue("symbol"), r.URL.Query().Get("vs_currency"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *server) handleTopCryptos(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, types.Validation("limit must be an integer", "limit"))
			return
		}
		limit = n
	}
	rows, err := s.data.TopCryptos(r.Context(), limit, r.URL.Query().Get("vs_currency"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (s *server) handleCryptoSearch(w http.ResponseWriter, r *http.Request) {
	matches, err := s.data.SearchCrypto(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coins": matches})
}

// writeError maps the error taxonomy to HTTP. Anything that is not
// validation, not-found or rate-limit becomes a generic 500 so upstream
// details never leak to clients.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "Internal server error"

	var terr *types.Error
	if errors.As(err, &terr) {
		switch terr.Code {
		case types.CodeValidation:
			status = http.StatusBadRequest
			msg = terr.Message
		case types.CodeNotFound:
			status = http.StatusNotFound
			msg = terr.Message
		case types.CodeRateLimit:
			status = http.StatusTooManyRequests
			msg = terr.Message
			if terr.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(terr.RetryAfter/time.Second)))
			}
		}
	}

	logger := level.Error(s.logger)
	if status == http.StatusBadRequest || status == http.StatusNotFound {
		logger = level.Warn(s.logger)
	}
	logger.Log("err", err, "status", status)

	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func splitPair(pair string) (from, to string, ok bool) {
	for i := range pair {
		if pair[i] == '-' {
			return pair[:i], pair[i+1:], true
		}
	}
	return "", "", false
}
