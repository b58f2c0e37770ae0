package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	appconfig "spreadscan/config"
	"spreadscan/logger"
	"spreadscan/models"
)

// userAgent identifies the scanner to the exchange.
const userAgent = "SpreadScan/1.0"

// Client wraps the Coinbase Exchange public REST API. All requests share a
// single rate limiter so the total request rate stays under the upstream
// limit no matter which endpoint is being polled.
type Client struct {
	config     appconfig.CoinbaseSourceConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log
}

// NewClient creates a Client using the pooled transport settings from the
// configuration. Rate limiting is derived from rate_limit_delay: one request
// per delay interval with no burst.
func NewClient(cfg appconfig.CoinbaseSourceConfig) *Client {
	log := logger.GetLogger()

	transport := &http.Transport{
		MaxIdleConns:        cfg.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     cfg.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.ConnectionPool.IdleConnTimeout,
		DisableCompression:  false,
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimitDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RateLimitDelay), 1)
	}

	client := &Client{
		config: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		limiter: limiter,
		log:     log,
	}

	log.WithComponent("coinbase_client").WithFields(logger.Fields{
		"base_url":           cfg.BaseURL,
		"timeout":            cfg.Timeout,
		"rate_limit_delay":   cfg.RateLimitDelay,
		"retry_max_attempts": cfg.Retry.MaxAttempts,
	}).Info("coinbase client initialized")

	return client
}

// GetOrderBook fetches the level-2 orderbook for the given product.
func (c *Client) GetOrderBook(ctx context.Context, productID string) (*models.OrderBook, error) {
	url := fmt.Sprintf("%s/products/%s/book?level=2", c.config.BaseURL, productID)
	body, err := c.get(ctx, url, fmt.Sprintf("orderbook for %s", productID))
	if err != nil {
		return nil, err
	}

	var book models.OrderBook
	if err := json.Unmarshal(body, &book); err != nil {
		return nil, fmt.Errorf("decode orderbook for %s: %w", productID, err)
	}

	logger.IncrementBookFetch(len(body))
	return &book, nil
}

// GetStats fetches the 24-hour stats payload for the given product.
func (c *Client) GetStats(ctx context.Context, productID string) (models.VolumeStats, error) {
	url := fmt.Sprintf("%s/products/%s/stats", c.config.BaseURL, productID)
	body, err := c.get(ctx, url, fmt.Sprintf("stats for %s", productID))
	if err != nil {
		return models.VolumeStats{}, err
	}

	var stats models.VolumeStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return models.VolumeStats{}, fmt.Errorf("decode stats for %s: %w", productID, err)
	}

	logger.IncrementStatsFetch(len(body))
	return stats, nil
}

// GetProducts fetches the full product list.
func (c *Client) GetProducts(ctx context.Context) ([]models.Product, error) {
	url := fmt.Sprintf("%s/products", c.config.BaseURL)
	body, err := c.get(ctx, url, "products")
	if err != nil {
		return nil, err
	}

	var products []models.Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	logger.IncrementProductsSync(len(body))
	return products, nil
}

// get performs a rate-limited GET with bounded retries. Rate-limited (429)
// responses and transport errors are retried after a fixed delay up to the
// configured attempt count; any other non-200 status fails immediately.
func (c *Client) get(ctx context.Context, url, resource string) ([]byte, error) {
	log := c.log.WithComponent("coinbase_client").WithFields(logger.Fields{
		"resource": resource,
	})

	attempts := c.config.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request for %s: %w", resource, err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("fetch %s: %w", resource, err)
			log.WithError(err).WithFields(logger.Fields{"attempt": attempt}).Warn("request failed")
			if attempt < attempts {
				if err := sleepCtx(ctx, c.config.Retry.Delay); err != nil {
					return nil, err
				}
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		logger.LogPerformanceEntry(log, "coinbase_client", "api_request", time.Since(start), logger.Fields{
			"status": resp.StatusCode,
		})

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = fmt.Errorf("read %s response: %w", resource, readErr)
				continue
			}
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("fetch %s: rate limited", resource)
			log.WithFields(logger.Fields{"attempt": attempt}).Warn("rate limited by exchange")
			if attempt < attempts {
				if err := sleepCtx(ctx, c.config.Retry.Delay); err != nil {
					return nil, err
				}
			}
		default:
			return nil, fmt.Errorf("fetch %s: unexpected status %d: %s", resource, resp.StatusCode, truncate(body, 256))
		}
	}

	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
