package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	"github.com/angelmondragon/clientpulse/pkg/logger"
	"github.com/angelmondragon/clientpulse/pkg/merchant"
	"github.com/angelmondragon/clientpulse/pkg/redis"
)

type fakeFetcher struct {
	categoryCalls int
	brandCalls    int
	catalogCalls  int
}

func (f *fakeFetcher) FetchCategoryNames(context.Context) (map[string]string, error) {
	f.categoryCalls++
	return map[string]string{"10": "Flower"}, nil
}

func (f *fakeFetcher) FetchBrandNames(context.Context) (map[string]string, error) {
	f.brandCalls++
	return map[string]string{"7": "House Brand"}, nil
}

func (f *fakeFetcher) FetchCatalog(context.Context) (map[string]merchant.Product, error) {
	f.catalogCalls++
	return map[string]merchant.Product{
		"S1": {SKU: "S1", Name: "OG Kush", CategoryID: "10", BrandID: "7"},
		"S2": {SKU: "S2", CategoryID: "10"},
	}, nil
}

type fakeCache struct {
	store map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string]string{}}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	if value, ok := c.store[key]; ok {
		return value, nil
	}
	return "", redis.ErrCacheMiss
}

func (c *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.store[key] = fmt.Sprint(value)
	return nil
}

func (c *fakeCache) CatalogKey(kind, id string) string {
	return fmt.Sprintf("cp:catalog:%s:%s", kind, id)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestStaticLookup(t *testing.T) {
	lookup := NewStatic(
		map[string]string{"10": "Flower"},
		map[string]string{"7": "House Brand"},
		map[string]string{"S1": "OG Kush"},
	)

	if name, ok := lookup.Name(types.EntityCategory, "10"); !ok || name != "Flower" {
		t.Fatalf("category lookup = %q, %v", name, ok)
	}
	if _, ok := lookup.Name(types.EntityBrand, "99"); ok {
		t.Fatalf("missing brand must report not found")
	}
	if _, ok := lookup.Name(types.EntityProduct, "S2"); ok {
		t.Fatalf("missing product must report not found")
	}
}

func TestLoaderFetchesAndPopulatesCache(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := newFakeCache()
	loader := NewLoader(fetcher, cache, time.Hour, testLogger())

	lookup, products, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if fetcher.catalogCalls != 1 || fetcher.categoryCalls != 1 || fetcher.brandCalls != 1 {
		t.Fatalf("fetch calls = %d/%d/%d, want one each",
			fetcher.catalogCalls, fetcher.categoryCalls, fetcher.brandCalls)
	}
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
	if name, ok := lookup.Name(types.EntityProduct, "S1"); !ok || name != "OG Kush" {
		t.Fatalf("product name = %q, %v", name, ok)
	}
	// Products without a name must not resolve.
	if _, ok := lookup.Name(types.EntityProduct, "S2"); ok {
		t.Fatalf("nameless product should not resolve")
	}
	if len(cache.store) != 3 {
		t.Fatalf("cache entries = %d, want 3", len(cache.store))
	}
}

func TestLoaderServesFromCache(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := newFakeCache()
	loader := NewLoader(fetcher, cache, time.Hour, testLogger())

	if _, _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	if _, products, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("second Load: %v", err)
	} else if len(products) != 2 {
		t.Fatalf("cached products = %d, want 2", len(products))
	}

	if fetcher.catalogCalls != 1 || fetcher.categoryCalls != 1 || fetcher.brandCalls != 1 {
		t.Fatalf("second load hit the merchant: %d/%d/%d",
			fetcher.catalogCalls, fetcher.categoryCalls, fetcher.brandCalls)
	}
}

func TestLoaderIgnoresCorruptCacheEntry(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := newFakeCache()
	cache.store[cache.CatalogKey("category", "all")] = "{not json"
	loader := NewLoader(fetcher, cache, time.Hour, testLogger())

	lookup, _, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fetcher.categoryCalls != 1 {
		t.Fatalf("corrupt entry should force a fetch")
	}
	if name, _ := lookup.Name(types.EntityCategory, "10"); name != "Flower" {
		t.Fatalf("category name = %q", name)
	}

	var repaired map[string]string
	if err := json.Unmarshal([]byte(cache.store[cache.CatalogKey("category", "all")]), &repaired); err != nil {
		t.Fatalf("cache entry not repaired: %v", err)
	}
}

func TestLoaderWithoutCache(t *testing.T) {
	fetcher := &fakeFetcher{}
	loader := NewLoader(fetcher, nil, time.Hour, testLogger())

	if _, _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load without cache: %v", err)
	}
	if fetcher.catalogCalls != 1 {
		t.Fatalf("catalog calls = %d", fetcher.catalogCalls)
	}
}
