package products

import (
	"fmt"
	"strings"

	"github.com/stockmaster/stockmaster/internal/masterdata/shared"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.SKU) == "" {
		return fmt.Errorf("%w: sku", shared.ErrRequiredField)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	if strings.TrimSpace(p.UnitOfMeasure) == "" {
		return fmt.Errorf("%w: unit_of_measure", shared.ErrRequiredField)
	}
	if p.InitialStock.IsNegative() {
		return fmt.Errorf("%w: initial_stock must not be negative", shared.ErrValidation)
	}
	if p.LowStockAlert.IsNegative() {
		return fmt.Errorf("%w: low_stock_alert must not be negative", shared.ErrValidation)
	}
	return nil
}
