package port

import (
	"context"

	"github.com/rl1809/resto-orders/internal/core/domain"
)

type CatalogRepository interface {
	GetTableByCode(ctx context.Context, code string) (*domain.Table, error)
	GetTable(ctx context.Context, id string) (*domain.Table, error)
	ListTables(ctx context.Context) ([]domain.Table, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListMenuItems(ctx context.Context, filter domain.MenuFilter) ([]domain.MenuItem, error)

	// GetMenuItems returns the items found among ids, keyed by id. Missing ids are absent.
	GetMenuItems(ctx context.Context, ids []string) (map[string]domain.MenuItem, error)

	UpdateMenuItem(ctx context.Context, id string, update domain.MenuItemUpdate) (*domain.MenuItem, error)
}
