package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"spreadscan/logger"
	"spreadscan/models"
)

// ProductsFetcher fetches the current product metadata from the upstream
// API.
type ProductsFetcher interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
}

// productsCache is the on-disk products cache layout. The fetch time is
// recorded explicitly so staleness does not depend on file metadata.
type productsCache struct {
	FetchedAt time.Time        `json:"fetched_at"`
	Products  []models.Product `json:"products"`
}

// GetOrRefresh returns product metadata, serving from the on-disk cache
// while it is younger than maxAge and refreshing from the fetcher
// otherwise. When a refresh fails but a stale cache exists, the stale data
// is returned with a warning rather than failing the caller; product
// metadata only drives display precision and the pair universe, not
// correctness of the spread math.
func (s *Store) GetOrRefresh(ctx context.Context, fetcher ProductsFetcher, maxAge time.Duration) ([]models.Product, error) {
	log := s.log.WithComponent("store")

	cached, cacheErr := s.readProductsCache()
	if cacheErr == nil && time.Since(cached.FetchedAt) < maxAge {
		log.WithFields(logger.Fields{
			"products": len(cached.Products),
			"age":      time.Since(cached.FetchedAt).Round(time.Second).String(),
		}).Debug("serving products from cache")
		return cached.Products, nil
	}

	products, err := fetcher.GetProducts(ctx)
	if err != nil {
		if cacheErr == nil {
			log.WithError(err).Warn("products refresh failed, serving stale cache")
			return cached.Products, nil
		}
		return nil, fmt.Errorf("failed to refresh products: %w", err)
	}

	if err := s.writeProductsCache(productsCache{FetchedAt: time.Now().UTC(), Products: products}); err != nil {
		log.WithError(err).Warn("failed to write products cache")
	}
	return products, nil
}

func (s *Store) readProductsCache() (productsCache, error) {
	var cache productsCache
	data, err := os.ReadFile(s.files.ProductsFile)
	if err != nil {
		return cache, err
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		return cache, fmt.Errorf("failed to parse products cache: %w", err)
	}
	return cache, nil
}

func (s *Store) writeProductsCache(cache productsCache) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.files.ProductsFile, data)
}
