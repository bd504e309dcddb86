// cmd/analyze runs one full refresh for a pair and prints the result,
// without starting the HTTP server.
//
// Usage:
//
//	go run ./cmd/analyze --pair=ETH/USDT
//	go run ./cmd/analyze --pair=SOL/USDT --json --no-whales
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"crypto-analyst/config"
	"crypto-analyst/internal/dashboard"
	"crypto-analyst/internal/exchange"
	"crypto-analyst/internal/feed"
	"crypto-analyst/internal/llm"
	"crypto-analyst/internal/logger"
	"crypto-analyst/internal/model"
	"crypto-analyst/internal/whale"
)

// noFeed stands in for the whale feed when --no-whales is set.
type noFeed struct{}

func (noFeed) Fetch(ctx context.Context) ([]model.FeedItem, error) { return nil, nil }

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	pairFlag := flag.String("pair", "BTC/USDT", "Trading pair, BASE/QUOTE")
	asJSON := flag.Bool("json", false, "Print the full state as JSON")
	noWhales := flag.Bool("no-whales", false, "Skip the whale-alert feed")
	verbose := flag.Bool("v", false, "Log pipeline progress to stderr")
	flag.Parse()

	cfg := config.Load()

	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		lg = logger.New(os.Stderr, "analyze", logger.ParseLevel(cfg.LogLevel))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var whales model.FeedSource = feed.New(cfg.WhaleFeedURL, cfg.UpstreamTimeout, nil, nil)
	if *noWhales {
		whales = noFeed{}
	}

	dash := dashboard.New(
		exchange.New(cfg.ExchangeBaseURL, exchange.WithTimeout(cfg.UpstreamTimeout)),
		llm.New(llm.Config{
			APIURL:   cfg.LLMAPIURL,
			APIKey:   cfg.LLMAPIKey,
			Model:    cfg.LLMModel,
			SiteURL:  cfg.LLMSiteURL,
			SiteName: cfg.LLMSiteName,
			Timeout:  3 * cfg.UpstreamTimeout,
		}, nil, nil),
		whales,
		dashboard.Options{
			Pairs:    cfg.ParsePairs(),
			Interval: cfg.KlineInterval,
			Limit:    cfg.KlineLimit,
			Logger:   lg,
		},
	)

	if _, _, err := dash.AddPair(*pairFlag); err != nil {
		log.Fatalf("[analyze] %v", err)
	}

	err := dash.Refresh(ctx)
	state := dash.State()

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(state); encErr != nil {
			log.Fatalf("[analyze] encode: %v", encErr)
		}
	} else {
		printReport(os.Stdout, state, !*noWhales)
	}

	if err != nil && !errors.Is(err, dashboard.ErrSuperseded) {
		os.Exit(1)
	}
}

func printReport(w io.Writer, s dashboard.State, withWhales bool) {
	v := s.View
	fmt.Fprintf(w, "Pair: %s\n", v.Pair)

	if v.Error != nil {
		fmt.Fprintf(w, "Market data failed (%s): %s\n", v.Error.Kind, v.Error.Message)
	}
	if mv := v.Market; mv != nil {
		t := mv.Technical
		fmt.Fprintln(w, "\nTechnicals")
		fmt.Fprintf(w, "  Price        %.4f (%+.2f%% 24h)\n", t.Price, t.PriceChangePercent)
		fmt.Fprintf(w, "  Volume 24h   %s\n", whale.FormatCompact(t.Volume24h))
		fmt.Fprintf(w, "  RSI(14)      %.2f  %s\n", t.RSI, mv.Signals.RSIZone)
		fmt.Fprintf(w, "  MACD hist    %.6f  %s\n", t.MACDHistogram, mv.Signals.MACDBias)
		fmt.Fprintf(w, "  EMA(200)     %.4f  price %s\n", t.EMA200, mv.Signals.Trend)
		fmt.Fprintf(w, "  Support      %.4f\n", t.Support)
		fmt.Fprintf(w, "  Resistance   %.4f\n", t.Resistance)
	}

	switch {
	case v.Analysis != nil:
		a := v.Analysis.Analysis
		fmt.Fprintln(w, "\nRecommendation")
		fmt.Fprintf(w, "  %s (risk %s)\n", a.Suggestion, a.Risk)
		fmt.Fprintf(w, "  Entry %.4f  Stop %.4f  Target %.4f\n", a.EntryPoint, a.StopLoss, a.TakeProfit)
		fmt.Fprintf(w, "  %s\n", a.Justification)
		fmt.Fprintf(w, "\nNews (overall %s)\n", v.Analysis.OverallSentiment)
		for _, n := range v.Analysis.News {
			fmt.Fprintf(w, "  [%s] %s (%s)\n", n.Sentiment, n.Headline, n.Source)
		}
	case v.RecommendationError != nil:
		fmt.Fprintf(w, "\nRecommendation failed (%s): %s\n", v.RecommendationError.Kind, v.RecommendationError.Message)
	}

	if !withWhales {
		return
	}
	fmt.Fprintln(w, "\nWhale alerts")
	if s.Whales.Error != nil {
		fmt.Fprintf(w, "  failed (%s): %s\n", s.Whales.Error.Kind, s.Whales.Error.Message)
		return
	}
	if len(s.Whales.Alerts) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, a := range s.Whales.Alerts {
		fmt.Fprintf(w, "  %s  %s %s ($%s)  %s -> %s\n",
			a.Date, whale.FormatCompact(a.AmountCoin), a.Coin, whale.FormatCompact(a.AmountUSD), a.From, a.To)
	}
}
