package warehouses

import (
	"context"

	"github.com/stockmaster/stockmaster/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Warehouse, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Warehouse, error) {
	if id <= 0 {
		return Warehouse{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Create registers the warehouse together with a default location derived
// from its code.
func (s *Service) Create(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	if err := s.validateWarehouse(warehouse); err != nil {
		return Warehouse{}, err
	}
	return s.repo.CreateWithDefaultLocation(ctx, warehouse, warehouse.Code+"-STOCK")
}

func (s *Service) Update(ctx context.Context, id int64, warehouse Warehouse) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validateWarehouse(warehouse); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, warehouse)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListLocations(ctx context.Context, warehouseID int64) ([]Location, error) {
	if warehouseID <= 0 {
		return nil, shared.ErrInvalidID
	}
	if _, err := s.repo.Get(ctx, warehouseID); err != nil {
		return nil, err
	}
	return s.repo.ListLocations(ctx, warehouseID)
}

func (s *Service) CreateLocation(ctx context.Context, location Location) (Location, error) {
	if location.WarehouseID <= 0 {
		return Location{}, shared.ErrInvalidID
	}
	if err := s.validateLocation(location); err != nil {
		return Location{}, err
	}
	if _, err := s.repo.Get(ctx, location.WarehouseID); err != nil {
		return Location{}, err
	}
	return s.repo.CreateLocation(ctx, location)
}
