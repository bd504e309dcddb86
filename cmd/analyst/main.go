package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"crypto-analyst/config"
	"crypto-analyst/internal/dashboard"
	"crypto-analyst/internal/exchange"
	"crypto-analyst/internal/feed"
	"crypto-analyst/internal/gateway"
	"crypto-analyst/internal/llm"
	"crypto-analyst/internal/logger"
	"crypto-analyst/internal/metrics"
	"crypto-analyst/internal/model"
	redisstore "crypto-analyst/internal/store/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()
	lg := logger.Init("analyst", logger.ParseLevel(cfg.LogLevel))
	if cfg.LLMAPIKey == "" {
		lg.Warn("LLM_API_KEY is not set; recommendations will fail until it is")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetRedisEnabled(cfg.RedisEnabled())

	var market model.MarketSource = exchange.New(cfg.ExchangeBaseURL,
		exchange.WithTimeout(cfg.UpstreamTimeout),
		exchange.WithMetrics(m, health),
	)
	analyst := llm.New(llm.Config{
		APIURL:   cfg.LLMAPIURL,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		SiteURL:  cfg.LLMSiteURL,
		SiteName: cfg.LLMSiteName,
		Timeout:  3 * cfg.UpstreamTimeout,
	}, m, health)
	whales := feed.New(cfg.WhaleFeedURL, cfg.UpstreamTimeout, m, health)

	hub := gateway.NewHub(m)
	var publisher model.Publisher = hub

	// Redis is optional: it adds the short-TTL market cache and lets
	// several gateway processes share view updates.
	var store *redisstore.Writer
	if cfg.RedisEnabled() {
		cb := redisstore.NewCircuitBreaker(5, 10*time.Second)
		cb.Instrument(m)
		var err error
		store, err = redisstore.New(redisstore.WriterConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cb)
		if err != nil {
			log.Fatalf("[analyst] redis connection failed: %v", err)
		}
		defer store.Close()
		log.Printf("[analyst] redis connected at %s", cfg.RedisAddr)

		health.CheckRedis(ctx, store.Client())
		health.StartLivenessChecker(ctx, store.Client(), 10*time.Second)

		market = redisstore.NewCachedMarket(market, store, cfg.MarketCacheTTL, m)
		publisher = &gateway.RelayPublisher{Remote: store, Local: hub}
		go gateway.NewPubSubRouter(hub, store).Run(ctx)
	}

	dash := dashboard.New(market, analyst, whales, dashboard.Options{
		Pairs:     cfg.ParsePairs(),
		Interval:  cfg.KlineInterval,
		Limit:     cfg.KlineLimit,
		Publisher: publisher,
		Metrics:   m,
		Health:    health,
		Logger:    lg,
	})
	if cfg.WhalePollInterval > 0 {
		go dash.PollWhales(ctx, cfg.WhalePollInterval)
	}

	gin.SetMode(gin.ReleaseMode)
	api := gateway.NewAPI(dash, hub, gateway.Options{
		Health: health,
		Logger: lg,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Initial analysis of the first pair, as on page load.
	go func() {
		if err := dash.Refresh(ctx); err != nil && !errors.Is(err, dashboard.ErrSuperseded) {
			lg.Info("initial refresh finished with errors", slog.String("error", err.Error()))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("[analyst] serving at http://localhost%s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[analyst] server error: %v", err)
		}
	}()

	<-sigCh
	log.Println("[analyst] shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[analyst] http shutdown: %v", err)
	}
	hub.Close()
	api.Shutdown()
}
