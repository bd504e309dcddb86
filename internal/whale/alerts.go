package whale

import (
	"time"

	"github.com/google/uuid"

	"crypto-analyst/internal/model"
)

// MaxAlerts caps the number of alerts kept from one poll.
const MaxAlerts = 15

// Options tune BuildAlerts. Zero values use the defaults.
type Options struct {
	Limit int              // default MaxAlerts
	Now   func() time.Time // default time.Now
	NewID func() string    // default "whale_" + uuid
}

// Result is the outcome of one BuildAlerts pass.
type Result struct {
	Alerts  []model.WhaleAlert
	Matched int // titles that parsed, including those beyond the cap
	Skipped int // titles that did not parse
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = MaxAlerts
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return "whale_" + uuid.NewString() }
	}
	return o
}

// BuildAlerts converts feed items to alerts in feed order, keeping the
// first Limit matches.
func BuildAlerts(items []model.FeedItem, opts Options) Result {
	opts = opts.withDefaults()

	res := Result{Alerts: make([]model.WhaleAlert, 0, min(len(items), opts.Limit))}
	for _, it := range items {
		tr, ok := ParseTitle(it.Title)
		if !ok {
			res.Skipped++
			continue
		}
		res.Matched++
		if len(res.Alerts) >= opts.Limit {
			continue
		}

		id := it.GUID
		if id == "" {
			id = opts.NewID()
		}
		ts := opts.Now()
		if it.Published != nil {
			ts = *it.Published
		}

		res.Alerts = append(res.Alerts, model.WhaleAlert{
			ID:         id,
			Title:      it.Title,
			Date:       ts.UTC().Format(time.RFC3339),
			Coin:       tr.Coin,
			AmountCoin: tr.AmountCoin,
			AmountUSD:  tr.AmountUSD,
			From:       tr.From,
			To:         tr.To,
		})
	}
	return res
}
