package alerts

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockItem is one product whose total on-hand quantity fell below its
// alert threshold.
type LowStockItem struct {
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Threshold decimal.Decimal `json:"threshold"`
	OnHand    decimal.Decimal `json:"on_hand"`
}

// Report is a cached low-stock evaluation.
type Report struct {
	WarehouseID *int64         `json:"warehouse_id,omitempty"`
	Items       []LowStockItem `json:"items"`
	GeneratedAt time.Time      `json:"generated_at"`
}
