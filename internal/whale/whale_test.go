package whale

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"crypto-analyst/internal/model"
)

func TestParseTitle_Doge(t *testing.T) {
	got, ok := ParseTitle("1,000,000 #DOGE (500,000 USD) transferred from #Robinhood to unknown wallet")
	if !ok {
		t.Fatal("expected a match")
	}
	want := Transfer{Coin: "DOGE", AmountCoin: 1000000, AmountUSD: 500000, From: "#Robinhood", To: "unknown wallet"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParseTitle_Unmatched(t *testing.T) {
	for _, title := range []string{
		"Random unrelated headline",
		"",
		"1,000 #BTC (60,000,000 USD) burned at unknown wallet",
		"#USDT (1,000 USD) transferred from A to B",
	} {
		if tr, ok := ParseTitle(title); ok {
			t.Errorf("ParseTitle(%q) matched: %+v", title, tr)
		}
	}
}

func TestParseTitle_DecimalsAndPrefix(t *testing.T) {
	got, ok := ParseTitle("🚨 🚨 2,500.75 #ETH (8,123,456.5 USD) transferred from  Binance  to  Coinbase ")
	if !ok {
		t.Fatal("expected a match")
	}
	if got.AmountCoin != 2500.75 || got.AmountUSD != 8123456.5 {
		t.Errorf("amounts: %+v", got)
	}
	if got.From != "Binance" || got.To != "Coinbase" {
		t.Errorf("from/to not trimmed: %q / %q", got.From, got.To)
	}
}

func TestParseTitle_GreedyFrom(t *testing.T) {
	// The last " to " splits from and to.
	got, ok := ParseTitle("10 #BTC (600,000 USD) transferred from Wallet to Go to Binance")
	if !ok {
		t.Fatal("expected a match")
	}
	if got.From != "Wallet to Go" || got.To != "Binance" {
		t.Errorf("from=%q to=%q", got.From, got.To)
	}
}

func TestParseTitle_Idempotent(t *testing.T) {
	title := "5,000 #SOL (750,000 USD) transferred from unknown wallet to Kraken"
	a, _ := ParseTitle(title)
	b, _ := ParseTitle(title)
	if a != b {
		t.Errorf("%+v != %+v", a, b)
	}
}

func transferTitle(i int) string {
	return fmt.Sprintf("%d,000 #BTC (%d,000,000 USD) transferred from wallet%d to Binance", i+1, i+1, i)
}

func fixedClock() time.Time { return time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC) }

func TestBuildAlerts_IDsAndDates(t *testing.T) {
	pub := time.Date(2024, 3, 8, 22, 15, 5, 0, time.FixedZone("EST", -5*3600))
	items := []model.FeedItem{
		{Title: transferTitle(0), GUID: "https://whale-alert.io/tx/1", Published: &pub},
		{Title: "Random unrelated headline", GUID: "skip"},
		{Title: transferTitle(1)},
	}
	n := 0
	res := BuildAlerts(items, Options{
		Now:   fixedClock,
		NewID: func() string { n++; return fmt.Sprintf("whale_test%d", n) },
	})

	if res.Matched != 2 || res.Skipped != 1 {
		t.Errorf("matched=%d skipped=%d, want 2/1", res.Matched, res.Skipped)
	}
	if len(res.Alerts) != 2 {
		t.Fatalf("alerts: got %d, want 2", len(res.Alerts))
	}

	a := res.Alerts[0]
	if a.ID != "https://whale-alert.io/tx/1" {
		t.Errorf("id from guid: %q", a.ID)
	}
	if a.Date != "2024-03-09T03:15:05Z" {
		t.Errorf("date not normalized to UTC: %q", a.Date)
	}
	if a.Title != items[0].Title || a.Coin != "BTC" || a.AmountCoin != 1000 {
		t.Errorf("alert fields: %+v", a)
	}

	b := res.Alerts[1]
	if b.ID != "whale_test1" {
		t.Errorf("fallback id: %q", b.ID)
	}
	if b.Date != "2024-03-09T12:30:00Z" {
		t.Errorf("fallback date: %q", b.Date)
	}
}

func TestBuildAlerts_DefaultIDIsUnique(t *testing.T) {
	items := []model.FeedItem{{Title: transferTitle(0)}, {Title: transferTitle(1)}}
	res := BuildAlerts(items, Options{})
	if len(res.Alerts) != 2 {
		t.Fatalf("alerts: %d", len(res.Alerts))
	}
	for _, a := range res.Alerts {
		if !strings.HasPrefix(a.ID, "whale_") {
			t.Errorf("id %q lacks whale_ prefix", a.ID)
		}
	}
	if res.Alerts[0].ID == res.Alerts[1].ID {
		t.Errorf("duplicate generated id %q", res.Alerts[0].ID)
	}
}

func TestBuildAlerts_CappedAt15(t *testing.T) {
	var items []model.FeedItem
	for i := 0; i < 40; i++ {
		if i%3 == 0 {
			items = append(items, model.FeedItem{Title: "Random unrelated headline"})
		}
		items = append(items, model.FeedItem{Title: transferTitle(i), GUID: fmt.Sprint(i)})
	}
	res := BuildAlerts(items, Options{Now: fixedClock})
	if len(res.Alerts) != MaxAlerts {
		t.Fatalf("alerts: got %d, want %d", len(res.Alerts), MaxAlerts)
	}
	for i, a := range res.Alerts {
		if a.ID != fmt.Sprint(i) {
			t.Errorf("alert %d: id %q, feed order not kept", i, a.ID)
		}
	}
	if res.Matched != 40 {
		t.Errorf("matched: got %d, want 40", res.Matched)
	}
}

func TestBuildAlerts_Empty(t *testing.T) {
	res := BuildAlerts(nil, Options{})
	if res.Alerts == nil || len(res.Alerts) != 0 {
		t.Errorf("want empty non-nil list, got %#v", res.Alerts)
	}
}

func TestFormatCompact(t *testing.T) {
	cases := []struct {
		v    float64
		want string
	}{
		{0, "0.00"},
		{999.994, "999.99"},
		{1000, "1.00K"},
		{123456, "123.46K"},
		{1_000_000, "1.00M"},
		{500_000_000, "500.00M"},
		{2_346_000_000, "2.35B"},
	}
	for _, c := range cases {
		if got := FormatCompact(c.v); got != c.want {
			t.Errorf("FormatCompact(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}
