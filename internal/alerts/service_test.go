package alerts

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type mockSource struct {
	items []LowStockItem
	calls int
}

func (m *mockSource) LowStock(ctx context.Context, warehouseID *int64) ([]LowStockItem, error) {
	m.calls++
	return m.items, nil
}

func newTestService(t *testing.T, source LowStockSource) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(source, cache)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestLowStockReportCaches(t *testing.T) {
	source := &mockSource{
		items: []LowStockItem{
			{ProductID: 1, SKU: "SR-01", Name: "Steel Rod", Threshold: decimal.NewFromInt(20), OnHand: decimal.NewFromInt(5)},
		},
	}
	svc, cleanup := newTestService(t, source)
	defer cleanup()

	ctx := context.Background()
	report, err := svc.LowStockReport(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Items) != 1 || report.Items[0].SKU != "SR-01" {
		t.Fatalf("unexpected report items: %+v", report.Items)
	}
	if !report.Items[0].OnHand.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected on hand 5 got %s", report.Items[0].OnHand)
	}

	if _, err := svc.LowStockReport(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected second read to hit the cache, source called %d times", source.calls)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	source := &mockSource{}
	svc, cleanup := newTestService(t, source)
	defer cleanup()

	ctx := context.Background()
	if _, err := svc.LowStockReport(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.LowStockReport(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected invalidation to force a reload, source called %d times", source.calls)
	}
}

func TestWarehouseScopesAreCachedSeparately(t *testing.T) {
	source := &mockSource{}
	svc, cleanup := newTestService(t, source)
	defer cleanup()

	ctx := context.Background()
	warehouse := int64(3)
	if _, err := svc.LowStockReport(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.LowStockReport(ctx, &warehouse); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected separate cache entries per scope, source called %d times", source.calls)
	}

	report, err := svc.LowStockReport(ctx, &warehouse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.WarehouseID == nil || *report.WarehouseID != warehouse {
		t.Fatalf("expected warehouse scope preserved, got %+v", report.WarehouseID)
	}
	if source.calls != 2 {
		t.Fatalf("expected scoped read to hit the cache, source called %d times", source.calls)
	}
}
