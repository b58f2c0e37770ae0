package coinbase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	appconfig "spreadscan/config"
)

func testConfig(url string) appconfig.CoinbaseSourceConfig {
	return appconfig.CoinbaseSourceConfig{
		BaseURL:        url,
		Timeout:        time.Second,
		RateLimitDelay: 0,
		Retry: appconfig.RetryConfig{
			MaxAttempts: 3,
			Delay:       time.Millisecond,
		},
		ConnectionPool: appconfig.ConnectionPoolConfig{
			MaxIdleConns:    1,
			MaxConnsPerHost: 1,
			IdleConnTimeout: time.Second,
		},
	}
}

func TestGetOrderBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/BTC-USD/book" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("level") != "2" {
			t.Errorf("unexpected level: %s", r.URL.Query().Get("level"))
		}
		w.Write([]byte(`{"sequence":1,"bids":[["100","5",1]],"asks":[["101","4",2]]}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	book, err := client.GetOrderBook(context.Background(), "BTC-USD")
	if err != nil {
		t.Fatalf("GetOrderBook failed: %v", err)
	}
	if len(book.Bids) != 1 || book.Bids[0].Price != 100 {
		t.Errorf("unexpected bids: %+v", book.Bids)
	}
	if len(book.Asks) != 1 || book.Asks[0].Price != 101 {
		t.Errorf("unexpected asks: %+v", book.Asks)
	}
}

func TestGetStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"volume":"8122.48","last":"6813.19","volume_30day":"1019451.11"}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	stats, err := client.GetStats(context.Background(), "BTC-USD")
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if v, ok := stats.Get("last"); !ok || v != 6813.19 {
		t.Errorf("unexpected last price: %v, %v", v, ok)
	}
}

func TestGetProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"BTC-USD","base_currency":"BTC","quote_currency":"USD","quote_increment":"0.01"}]`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	products, err := client.GetProducts(context.Background())
	if err != nil {
		t.Fatalf("GetProducts failed: %v", err)
	}
	if len(products) != 1 || products[0].ID != "BTC-USD" {
		t.Fatalf("unexpected products: %+v", products)
	}
	if products[0].Decimals(8) != 2 {
		t.Errorf("unexpected decimals: %d", products[0].Decimals(8))
	}
}

func TestGetRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"sequence":1,"bids":[["100","5"]],"asks":[["101","4"]]}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	if _, err := client.GetOrderBook(context.Background(), "BTC-USD"); err != nil {
		t.Fatalf("expected retries to succeed, got: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestGetRetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	if _, err := client.GetOrderBook(context.Background(), "BTC-USD"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestGetFailsFastOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	if _, err := client.GetOrderBook(context.Background(), "NOPE-USD"); err == nil {
		t.Fatal("expected error for 404")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("404 should not be retried, got %d calls", got)
	}
}

func TestGetHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.Delay = time.Minute
	client := NewClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := client.GetOrderBook(ctx, "BTC-USD"); err == nil {
		t.Fatal("expected error on cancellation")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("cancellation not honored during retry delay")
	}
}
