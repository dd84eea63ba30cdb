package warehouses

import (
	"fmt"
	"strings"

	"github.com/stockmaster/stockmaster/internal/masterdata/shared"
)

func (s *Service) validateWarehouse(w Warehouse) error {
	if strings.TrimSpace(w.Code) == "" {
		return fmt.Errorf("%w: code", shared.ErrRequiredField)
	}
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	return nil
}

func (s *Service) validateLocation(l Location) error {
	if strings.TrimSpace(l.Code) == "" {
		return fmt.Errorf("%w: code", shared.ErrRequiredField)
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	return nil
}
