package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"crypto-analyst/internal/logger"
	"crypto-analyst/internal/model"
	"crypto-analyst/internal/recommendation"
	"crypto-analyst/internal/snapshot"
	"crypto-analyst/internal/whale"
)

// Refresh rebuilds both views for the selected pair. The snapshot pipeline
// and the whale pipeline run concurrently; within the snapshot pipeline
// candles and ticker are fetched concurrently and the LLM is called only
// once the snapshot exists.
//
// Refresh blocks until both pipelines finish and returns their errors
// joined. A refresh overtaken by a newer one returns ErrSuperseded.
// Selecting another pair cancels only the snapshot pipeline; the whale
// poll runs on the caller's ctx.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.metrics.IncRefresh()

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.gen++
	gen, pair := d.gen, d.selected
	traceID := logger.GenerateTraceID(pair.Symbol(), gen)
	whaleCtx := logger.WithTraceID(ctx, traceID)
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.view = PairView{
		Pair:            pair,
		Generation:      gen,
		Status:          StatusLoading,
		AnalysisPending: true,
		UpdatedAt:       d.now().UTC(),
	}
	d.commitAndUnlock(ChannelPair, d.view)
	defer cancel()

	ctx = logger.WithTraceID(ctx, traceID)
	d.log.Info("refresh started", append(logger.LogWithTrace(ctx), "pair", pair)...)

	var wg sync.WaitGroup
	var pairErr, whaleErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		pairErr = d.runPair(ctx, gen, pair)
	}()
	go func() {
		defer wg.Done()
		whaleErr = d.RefreshWhales(whaleCtx)
	}()
	wg.Wait()

	return errors.Join(pairErr, whaleErr)
}

func (d *Dashboard) runPair(ctx context.Context, gen uint64, pair model.Pair) error {
	trace := logger.LogWithTrace(ctx)

	mv, err := d.buildMarket(ctx, pair)
	if err != nil {
		ok := d.updatePair(gen, func(v *PairView) {
			v.Status = StatusError
			v.Error = newViewError(err)
			v.AnalysisPending = false
		})
		if !ok {
			return ErrSuperseded
		}
		d.metrics.IncPipelineFailure(string(Classify(err)))
		d.log.Warn("snapshot failed", append(trace, "pair", pair, "kind", Classify(err), "error", err)...)
		return err
	}

	if !d.updatePair(gen, func(v *PairView) {
		v.Status = StatusReady
		v.Market = &mv
	}) {
		return ErrSuperseded
	}
	d.health.SetLastRefresh(d.now())
	d.log.Info("snapshot ready", append(trace,
		"pair", pair,
		"price", mv.Technical.Price,
		"rsi", mv.Technical.RSI,
		"trend", mv.Signals.Trend,
	)...)

	fa, err := d.recommend(ctx, pair, mv.Technical)
	if !d.updatePair(gen, func(v *PairView) {
		v.AnalysisPending = false
		if err != nil {
			v.RecommendationError = newViewError(err)
			return
		}
		v.Analysis = &fa
	}) {
		return ErrSuperseded
	}
	if err != nil {
		d.metrics.IncPipelineFailure(string(Classify(err)))
		d.log.Warn("recommendation failed", append(trace, "pair", pair, "kind", Classify(err), "error", err)...)
		return err
	}
	d.log.Info("recommendation ready", append(trace,
		"pair", pair,
		"suggestion", fa.Analysis.Suggestion,
		"risk", fa.Analysis.Risk,
		"news", len(fa.News),
	)...)
	return nil
}

// buildMarket fetches candles and ticker concurrently and builds the view.
func (d *Dashboard) buildMarket(ctx context.Context, pair model.Pair) (model.MarketView, error) {
	symbol := pair.Symbol()

	var (
		candles []model.Candle
		ticker  model.Ticker
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := d.market.Klines(gctx, symbol, d.interval, d.limit)
		if err != nil {
			return fmt.Errorf("klines %s: %w", symbol, err)
		}
		candles = c
		return nil
	})
	g.Go(func() error {
		t, err := d.market.Ticker24h(gctx, symbol)
		if err != nil {
			return fmt.Errorf("ticker %s: %w", symbol, err)
		}
		ticker = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.MarketView{}, err
	}

	start := time.Now()
	mv, err := snapshot.BuildView(pair, candles, ticker)
	d.metrics.ObserveSnapshot(time.Since(start))
	return mv, err
}

// recommend asks the LLM and normalizes its answer.
func (d *Dashboard) recommend(ctx context.Context, pair model.Pair, tech model.TechnicalAnalysis) (model.FullAnalysis, error) {
	raw, err := d.analyst.Analyze(ctx, pair, tech)
	if err != nil {
		return model.FullAnalysis{}, err
	}
	n, err := recommendation.Parse(raw)
	if err != nil {
		return model.FullAnalysis{}, err
	}
	if len(n.Coerced) > 0 {
		d.metrics.AddCoerced(len(n.Coerced))
		d.log.Warn("llm values coerced", append(logger.LogWithTrace(ctx),
			"pair", pair,
			"count", len(n.Coerced),
			"coerced", n.Coerced,
		)...)
	}
	return n.FullAnalysis, nil
}

// RefreshWhales polls the whale feed and replaces the whale view. A failed
// poll keeps the previous alerts and records the error.
func (d *Dashboard) RefreshWhales(ctx context.Context) error {
	d.mu.Lock()
	d.whaleGen++
	gen := d.whaleGen
	v := d.whales
	v.Status = StatusLoading
	v.Error = nil
	v.UpdatedAt = d.now().UTC()
	d.whales = v
	d.commitAndUnlock(ChannelWhales, v)

	items, err := d.feed.Fetch(ctx)
	if err != nil {
		if !d.updateWhales(gen, func(v *WhaleView) {
			v.Status = StatusError
			v.Error = newViewError(err)
		}) {
			return ErrSuperseded
		}
		d.metrics.IncPipelineFailure(string(Classify(err)))
		d.log.Warn("whale poll failed", append(logger.LogWithTrace(ctx), "kind", Classify(err), "error", err)...)
		return fmt.Errorf("whale feed: %w", err)
	}

	res := whale.BuildAlerts(items, d.whaleOpts)
	if !d.updateWhales(gen, func(v *WhaleView) {
		v.Status = StatusReady
		v.Alerts = res.Alerts
		v.Matched = res.Matched
		v.Skipped = res.Skipped
	}) {
		return ErrSuperseded
	}
	d.metrics.AddWhaleItems(res.Matched, res.Skipped)
	d.health.SetLastWhalePoll(d.now())
	d.log.Info("whale alerts updated", append(logger.LogWithTrace(ctx),
		"items", len(items),
		"alerts", len(res.Alerts),
		"skipped", res.Skipped,
	)...)
	return nil
}

// PollWhales refreshes the whale view every interval until ctx is done.
func (d *Dashboard) PollWhales(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.RefreshWhales(ctx); err != nil && ctx.Err() == nil {
				d.log.Debug("background whale poll", "error", err)
			}
		}
	}
}
