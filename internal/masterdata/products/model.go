package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a sellable or storable item.
type Product struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	InitialStock  decimal.Decimal `json:"initial_stock"`
	LowStockAlert decimal.Decimal `json:"low_stock_alert"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
