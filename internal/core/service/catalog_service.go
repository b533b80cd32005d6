package service

import (
	"context"
	"fmt"

	"github.com/MonkyMars/gecho"
	"github.com/rl1809/resto-orders/internal/core/domain"
	"github.com/rl1809/resto-orders/internal/port"
)

type CatalogService struct {
	catalog port.CatalogRepository
	logger  *gecho.Logger
}

func NewCatalogService(catalog port.CatalogRepository, logger *gecho.Logger) *CatalogService {
	return &CatalogService{catalog: catalog, logger: logger}
}

func (s *CatalogService) ListTables(ctx context.Context) ([]domain.Table, error) {
	tables, err := s.catalog.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CatalogService) ListMenuItems(ctx context.Context, filter domain.MenuFilter) ([]domain.MenuItem, error) {
	items, err := s.catalog.ListMenuItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}

// UpdateMenuItem applies an admin edit. Existing orders keep their snapshots.
func (s *CatalogService) UpdateMenuItem(ctx context.Context, id string, update domain.MenuItemUpdate) (*domain.MenuItem, error) {
	if update.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}

	item, err := s.catalog.UpdateMenuItem(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Menu item updated",
		gecho.Field("item_id", item.ID),
		gecho.Field("price", item.Price),
		gecho.Field("in_stock", item.InStock),
	)
	return item, nil
}
