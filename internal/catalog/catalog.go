// Package catalog resolves category, brand, and product ids to display
// names. The loader pulls the maps from the merchant API and memoizes them
// in Redis so repeat runs within the TTL skip the catalog download.
package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	"github.com/angelmondragon/clientpulse/pkg/logger"
	"github.com/angelmondragon/clientpulse/pkg/merchant"
	"github.com/angelmondragon/clientpulse/pkg/redis"
)

// Static is an in-memory name lookup over pre-fetched maps.
type Static struct {
	names map[types.EntityKind]map[string]string
}

// NewStatic builds a lookup from the three id-to-name maps. Nil maps are
// treated as empty.
func NewStatic(categories, brands, products map[string]string) *Static {
	return &Static{names: map[types.EntityKind]map[string]string{
		types.EntityCategory: categories,
		types.EntityBrand:    brands,
		types.EntityProduct:  products,
	}}
}

// Name implements types.NameLookup.
func (s *Static) Name(kind types.EntityKind, id string) (string, bool) {
	if s == nil {
		return "", false
	}
	name, ok := s.names[kind][id]
	return name, ok && name != ""
}

// Fetcher is the merchant surface the loader needs.
type Fetcher interface {
	FetchCategoryNames(ctx context.Context) (map[string]string, error)
	FetchBrandNames(ctx context.Context) (map[string]string, error)
	FetchCatalog(ctx context.Context) (map[string]merchant.Product, error)
}

// Loader materializes the catalog, consulting the cache first. A nil cache
// degrades to a straight fetch; cache write failures are logged and ignored
// because the fetch already succeeded.
type Loader struct {
	fetcher Fetcher
	cache   redis.CatalogCache
	ttl     time.Duration
	logg    *logger.Logger
}

// NewLoader wires the loader. ttl bounds how stale cached names may get.
func NewLoader(fetcher Fetcher, cache redis.CatalogCache, ttl time.Duration, logg *logger.Logger) *Loader {
	return &Loader{fetcher: fetcher, cache: cache, ttl: ttl, logg: logg}
}

// Load returns the name lookup plus the full product map used to stamp
// category and brand ids onto order line items.
func (l *Loader) Load(ctx context.Context) (*Static, map[string]merchant.Product, error) {
	products, err := loadCached(ctx, l, "products", func(ctx context.Context) (map[string]merchant.Product, error) {
		return l.fetcher.FetchCatalog(ctx)
	})
	if err != nil {
		return nil, nil, err
	}

	categories, err := loadCached(ctx, l, string(types.EntityCategory), l.fetcher.FetchCategoryNames)
	if err != nil {
		return nil, nil, err
	}

	brands, err := loadCached(ctx, l, string(types.EntityBrand), l.fetcher.FetchBrandNames)
	if err != nil {
		return nil, nil, err
	}

	productNames := make(map[string]string, len(products))
	for sku, product := range products {
		if product.Name != "" {
			productNames[sku] = product.Name
		}
	}

	return NewStatic(categories, brands, productNames), products, nil
}

// loadCached fetches one catalog map through the cache. The whole map is
// stored as a single JSON blob; per-id keys would force a merchant round
// trip per miss, which defeats the point for a batch pipeline.
func loadCached[V any](ctx context.Context, l *Loader, kind string, fetch func(context.Context) (map[string]V, error)) (map[string]V, error) {
	key := ""
	if l.cache != nil {
		key = l.cache.CatalogKey(kind, "all")
		if raw, err := l.cache.Get(ctx, key); err == nil {
			var cached map[string]V
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				l.logg.Debug(l.logg.WithField(ctx, "kind", kind), "catalog served from cache")
				return cached, nil
			}
			// Unreadable payloads fall through to a fresh fetch.
		}
	}

	fetched, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if raw, err := json.Marshal(fetched); err == nil {
			if err := l.cache.Set(ctx, key, string(raw), l.ttl); err != nil {
				l.logg.Warn(l.logg.WithFields(ctx, map[string]any{
					"kind":  kind,
					"error": err.Error(),
				}), "catalog cache write failed")
			}
		}
	}
	return fetched, nil
}
