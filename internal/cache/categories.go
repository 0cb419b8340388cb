package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"forestgrant/internal/core"
	"forestgrant/internal/ports"
)

const categoriesKey = "budget_categories"

// CachedCategories wraps a CategoryLister so the reference list is read
// from the backing store at most once per TTL. Concurrent misses share a
// single fetch, which is detached from any one caller's cancellation.
type CachedCategories struct {
	next  ports.CategoryLister
	cache *LRUCache[[]core.BudgetCategory]
	group singleflight.Group
}

var _ ports.CategoryLister = (*CachedCategories)(nil)

func NewCachedCategories(next ports.CategoryLister, ttl time.Duration) *CachedCategories {
	return &CachedCategories{
		next:  next,
		cache: NewLRUCache[[]core.BudgetCategory](1, ttl),
	}
}

func (c *CachedCategories) ListBudgetCategories(ctx context.Context) ([]core.BudgetCategory, error) {
	if cats, ok := c.cache.Get(categoriesKey); ok {
		return append([]core.BudgetCategory(nil), cats...), nil
	}
	v, err, _ := c.group.Do(categoriesKey, func() (any, error) {
		cats, err := c.next.ListBudgetCategories(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.cache.Set(categoriesKey, cats)
		return cats, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]core.BudgetCategory(nil), v.([]core.BudgetCategory)...), nil
}

// Cleaner exposes the underlying cache for registration with a Manager.
func (c *CachedCategories) Cleaner() Cleaner {
	return c.cache
}
