package alerts

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// LowStockSource abstracts the threshold evaluation query.
type LowStockSource interface {
	LowStock(ctx context.Context, warehouseID *int64) ([]LowStockItem, error)
}

// Service serves low-stock reports through the versioned cache. Concurrent
// requests for the same scope collapse into a single evaluation.
type Service struct {
	source LowStockSource
	cache  *Cache
	group  singleflight.Group
}

// NewService builds a Service. A nil cache disables caching.
func NewService(source LowStockSource, cache *Cache) *Service {
	return &Service{source: source, cache: cache}
}

// LowStockReport returns the current low-stock evaluation, cached per
// warehouse scope.
func (s *Service) LowStockReport(ctx context.Context, warehouseID *int64) (Report, error) {
	key, err := s.cache.BuildKey(ctx, keyLowStock(warehouseID)...)
	if err != nil {
		return Report{}, err
	}
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		var report Report
		err := s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
			items, err := s.source.LowStock(ctx, warehouseID)
			if err != nil {
				return nil, err
			}
			return Report{WarehouseID: warehouseID, Items: items, GeneratedAt: time.Now().UTC()}, nil
		})
		return report, err
	})
	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Report{}, res.Err
		}
		return res.Val.(Report), nil
	}
}

// Invalidate drops cached reports after stock levels changed.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
