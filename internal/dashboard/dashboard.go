// Package dashboard owns the dashboard state: the pair list, the selected
// pair and the two views built by the snapshot and whale pipelines.
//
// Every selection or refresh bumps a generation counter and cancels the
// previous in-flight refresh. Pipeline results carry the generation they
// started under and are discarded when it is no longer current, so a slow
// stale request can never overwrite a fresher view.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"crypto-analyst/internal/exchange"
	"crypto-analyst/internal/metrics"
	"crypto-analyst/internal/model"
	"crypto-analyst/internal/whale"
)

const publishTimeout = 5 * time.Second

// Options configure a Dashboard. Zero values use the defaults.
type Options struct {
	Pairs     []model.Pair // default model.DefaultPairs
	Interval  string       // kline interval, default 4h
	Limit     int          // kline count, default 250
	Publisher model.Publisher
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
	Logger    *slog.Logger
	Now       func() time.Time
	Whale     whale.Options
}

// Dashboard is safe for concurrent use.
type Dashboard struct {
	market  model.MarketSource
	analyst model.AnalysisClient
	feed    model.FeedSource

	interval  string
	limit     int
	publisher model.Publisher
	metrics   *metrics.Metrics
	health    *metrics.HealthStatus
	log       *slog.Logger
	now       func() time.Time
	whaleOpts whale.Options

	mu       sync.Mutex
	pairs    []model.Pair
	selected model.Pair
	gen      uint64
	cancel   context.CancelFunc
	view     PairView
	whaleGen uint64
	whales   WhaleView

	// pubMu orders publishes; it is taken while mu is held and mu is
	// released before the publish itself.
	pubMu sync.Mutex
}

// New creates a Dashboard with the first pair selected.
func New(market model.MarketSource, analyst model.AnalysisClient, feed model.FeedSource, opts Options) *Dashboard {
	pairs := slices.Clone(opts.Pairs)
	if len(pairs) == 0 {
		pairs = slices.Clone(model.DefaultPairs)
	}
	if opts.Interval == "" {
		opts.Interval = exchange.DefaultInterval
	}
	if opts.Limit <= 0 {
		opts.Limit = exchange.DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Whale.Now == nil {
		opts.Whale.Now = opts.Now
	}

	d := &Dashboard{
		market:    market,
		analyst:   analyst,
		feed:      feed,
		interval:  opts.Interval,
		limit:     opts.Limit,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		health:    opts.Health,
		log:       opts.Logger,
		now:       opts.Now,
		whaleOpts: opts.Whale,
		pairs:     pairs,
		selected:  pairs[0],
	}
	d.view = PairView{Pair: d.selected, Status: StatusIdle, UpdatedAt: d.now().UTC()}
	d.whales = WhaleView{Status: StatusIdle, Alerts: []model.WhaleAlert{}, UpdatedAt: d.now().UTC()}
	return d
}

// Pairs returns a copy of the pair list.
func (d *Dashboard) Pairs() []model.Pair {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.pairs)
}

// Selected returns the selected pair.
func (d *Dashboard) Selected() model.Pair {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// View returns the current pair view.
func (d *Dashboard) View() PairView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Whales returns the current whale view.
func (d *Dashboard) Whales() WhaleView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.whales
}

// State returns a consistent copy of everything.
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		Pairs:    slices.Clone(d.pairs),
		Selected: d.selected,
		View:     d.view,
		Whales:   d.whales,
	}
}

// AddPair validates s, appends it to the list if new and selects it.
// changed reports whether the selection moved.
func (d *Dashboard) AddPair(s string) (p model.Pair, changed bool, err error) {
	p, err = model.ParsePair(s)
	if err != nil {
		return "", false, err
	}

	d.mu.Lock()
	if !slices.Contains(d.pairs, p) {
		d.pairs = append(d.pairs, p)
		d.log.Info("pair added", "pair", p, "pairs", len(d.pairs))
	}
	if p == d.selected {
		d.mu.Unlock()
		return p, false, nil
	}
	d.selectLocked(p)
	d.commitAndUnlock(ChannelPair, d.view)
	return p, true, nil
}

// Select makes p the selected pair. Selecting the current pair is a no-op
// and reports changed == false. A new selection cancels any in-flight
// refresh and resets the pair view; the caller starts the refresh.
func (d *Dashboard) Select(s string) (p model.Pair, changed bool, err error) {
	p, err = model.ParsePair(s)
	if err != nil {
		return "", false, err
	}

	d.mu.Lock()
	if !slices.Contains(d.pairs, p) {
		d.mu.Unlock()
		return "", false, fmt.Errorf("%w: %s", ErrUnknownPair, p)
	}
	if p == d.selected {
		d.mu.Unlock()
		return p, false, nil
	}
	d.selectLocked(p)
	d.commitAndUnlock(ChannelPair, d.view)
	return p, true, nil
}

func (d *Dashboard) selectLocked(p model.Pair) {
	d.selected = p
	d.gen++
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.view = PairView{Pair: p, Generation: d.gen, Status: StatusIdle, UpdatedAt: d.now().UTC()}
	d.log.Info("pair selected", "pair", p, "generation", d.gen)
}

// updatePair applies fn to a copy of the pair view and stores it, but only
// while gen is still current. It reports whether the update was applied.
func (d *Dashboard) updatePair(gen uint64, fn func(v *PairView)) bool {
	d.mu.Lock()
	if gen != d.gen {
		current := d.gen
		d.mu.Unlock()
		d.metrics.IncStale()
		d.log.Debug("stale pair result discarded", "generation", gen, "current", current)
		return false
	}
	v := d.view
	fn(&v)
	v.UpdatedAt = d.now().UTC()
	d.view = v
	d.commitAndUnlock(ChannelPair, v)
	return true
}

// updateWhales is updatePair for the whale view.
func (d *Dashboard) updateWhales(gen uint64, fn func(v *WhaleView)) bool {
	d.mu.Lock()
	if gen != d.whaleGen {
		d.mu.Unlock()
		d.metrics.IncStale()
		return false
	}
	v := d.whales
	fn(&v)
	v.UpdatedAt = d.now().UTC()
	d.whales = v
	d.commitAndUnlock(ChannelWhales, v)
	return true
}

// commitAndUnlock encodes v, releases d.mu and publishes. It must be
// called with d.mu held. Publishes leave in the order views were stored.
func (d *Dashboard) commitAndUnlock(channel string, v any) {
	payload, err := json.Marshal(v)
	d.pubMu.Lock()
	d.mu.Unlock()
	defer d.pubMu.Unlock()

	if err != nil {
		d.metrics.IncPublishFailure()
		d.log.Error("encode view", "channel", channel, "error", err)
		return
	}
	if d.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, channel, payload); err != nil {
		d.metrics.IncPublishFailure()
		d.log.Warn("publish view", "channel", channel, "error", err)
	}
}
