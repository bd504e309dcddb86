package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crypto-analyst/internal/model"
)

const rss = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Whale Alert</title>
    <link>https://whale-alert.io</link>
    <description>Large transactions</description>
    <item>
      <title>1,000,000 #DOGE (500,000 USD) transferred from #Robinhood to unknown wallet</title>
      <guid>https://whale-alert.io/transaction/dogecoin/abc</guid>
      <pubDate>Sat, 09 Mar 2024 12:30:00 +0000</pubDate>
    </item>
    <item>
      <title>Whale Alert weekly summary</title>
    </item>
  </channel>
</rss>`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rss))
	}))
	defer srv.Close()

	items, err := New(srv.URL, time.Second, nil, nil).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}

	first := items[0]
	if first.GUID != "https://whale-alert.io/transaction/dogecoin/abc" {
		t.Errorf("guid: %q", first.GUID)
	}
	want := time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC)
	if first.Published == nil || !first.Published.Equal(want) {
		t.Errorf("published: %v, want %v", first.Published, want)
	}

	second := items[1]
	if second.Title != "Whale Alert weekly summary" || second.GUID != "" || second.Published != nil {
		t.Errorf("second item: %+v", second)
	}
}

func TestFetch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second, nil, nil).Fetch(context.Background())
	var ue *model.UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("got %v, want 503 UpstreamError", err)
	}
}

func TestFetch_NotAFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>nope</body></html>"))
	}))
	defer srv.Close()

	if _, err := New(srv.URL, time.Second, nil, nil).Fetch(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}
