// Command fetch is a one-shot CLI over the market data SDK: fetch one or
// more records concurrently and print them as JSON for inspection.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/arxtrus/bootes/config"
	"github.com/arxtrus/bootes/marketdata"
)

func main() {
	var (
		stock    string
		interval string
		period   string
		quote    bool
		forex    string
		crypto   string
		vs       string
		top      int
		search   string
		timeout  int
	)
	flag.StringVar(&stock, "stock", "", "stock symbol for OHLCV history (e.g. AAPL)")
	flag.StringVar(&interval, "interval", "", "history interval (default from config)")
	flag.StringVar(&period, "period", "", "history period (default from config)")
	flag.BoolVar(&quote, "quote", false, "fetch a real-time quote instead of history for -stock")
	flag.StringVar(&forex, "forex", "", "currency pair as FROM-TO (e.g. USD-KRW)")
	flag.StringVar(&crypto, "crypto", "", "coin id for a spot price (e.g. bitcoin)")
	flag.StringVar(&vs, "vs", "usd", "quote currency for -crypto")
	flag.IntVar(&top, "top", 0, "list top N coins by market cap")
	flag.StringVar(&search, "search", "", "search coins by name")
	flag.IntVar(&timeout, "timeout", 30, "overall timeout in seconds")
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	_ = godotenv.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		level.Error(logger).Log("msg", "config", "err", err)
		os.Exit(1)
	}
	client := marketdata.New(cfg)

	if stock == "" && forex == "" && crypto == "" && top <= 0 && search == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	var (
		mu  sync.Mutex
		out = map[string]any{}
	)
	put := func(key string, v any) {
		mu.Lock()
		defer mu.Unlock()
		out[key] = v
	}

	g, ctx := errgroup.WithContext(ctx)
	if stock != "" {
		g.Go(func() error {
			if quote {
				q, err := client.StockQuote(ctx, stock)
				if err != nil {
					return err
				}
				put("quote", q)
				return nil
			}
			rows, err := client.StockHistory(ctx, stock, interval, period)
			if err != nil {
				return err
			}
			put("history", rows)
			return nil
		})
	}
	if forex != "" {
		from, to, ok := strings.Cut(forex, "-")
		if !ok {
			level.Error(logger).Log("msg", "invalid -forex, want FROM-TO", "got", forex)
			os.Exit(2)
		}
		g.Go(func() error {
			rate, err := client.ForexRate(ctx, from, to)
			if err != nil {
				return err
			}
			put("forex", rate)
			return nil
		})
	}
	if crypto != "" {
		g.Go(func() error {
			price, err := client.CryptoPrice(ctx, crypto, vs)
			if err != nil {
				return err
			}
			put("crypto", price)
			return nil
		})
	}
	if top > 0 {
		g.Go(func() error {
			rows, err := client.TopCryptos(ctx, top, vs)
			if err != nil {
				return err
			}
			put("top", rows)
			return nil
		})
	}
	if search != "" {
		g.Go(func() error {
			matches, err := client.SearchCrypto(ctx, search)
			if err != nil {
				return err
			}
			put("search", matches)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		level.Error(logger).Log("msg", "fetch", "err", err)
		os.Exit(1)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		level.Error(logger).Log("msg", "encode", "err", err)
		os.Exit(1)
	}
	fmt.Println(string(b))
}
