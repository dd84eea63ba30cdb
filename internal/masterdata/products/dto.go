package products

import (
	"github.com/shopspring/decimal"

	"github.com/stockmaster/stockmaster/internal/shared"
)

type productRequest struct {
	SKU           string           `json:"sku" validate:"required,max=64"`
	Name          string           `json:"name" validate:"required,max=255"`
	Description   string           `json:"description" validate:"max=2000"`
	CategoryID    *int64           `json:"category_id"`
	UnitOfMeasure string           `json:"unit_of_measure" validate:"required,max=32"`
	InitialStock  *decimal.Decimal `json:"initial_stock"`
	LowStockAlert *decimal.Decimal `json:"low_stock_alert"`
	IsActive      *bool            `json:"is_active"`
}

func (req productRequest) toProduct() Product {
	p := Product{
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		UnitOfMeasure: req.UnitOfMeasure,
		IsActive:      true,
	}
	if req.InitialStock != nil {
		p.InitialStock = *req.InitialStock
	}
	if req.LowStockAlert != nil {
		p.LowStockAlert = *req.LowStockAlert
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return p
}

type listResponse struct {
	Items []Product         `json:"items"`
	Total int               `json:"total"`
	Meta  shared.Pagination `json:"meta"`
}
