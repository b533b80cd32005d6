package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/resto-orders/internal/core/domain"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenGorm wraps an existing MySQL pool so the catalog and the order tables
// share connections.
func OpenGorm(db *sql.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return gdb, nil
}

// GormCatalog serves tables, categories and menu items.
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

func (c *GormCatalog) Migrate(ctx context.Context) error {
	if err := c.db.WithContext(ctx).AutoMigrate(&domain.Table{}, &domain.Category{}, &domain.MenuItem{}); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	return nil
}

// Seed loads the default floor plan and menu into an empty catalog.
func (c *GormCatalog) Seed(ctx context.Context) error {
	var count int64
	if err := c.db.WithContext(ctx).Model(&domain.Table{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count tables: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(DefaultTables(now)).Error; err != nil {
			return fmt.Errorf("seed tables: %w", err)
		}
		if err := tx.Create(DefaultCategories(now)).Error; err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		if err := tx.Omit("Category").Create(DefaultMenuItems(now)).Error; err != nil {
			return fmt.Errorf("seed menu items: %w", err)
		}
		return nil
	})
}

func (c *GormCatalog) GetTableByCode(ctx context.Context, code string) (*domain.Table, error) {
	var t domain.Table
	err := c.db.WithContext(ctx).Where("code = ?", code).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query table: %w", err)
	}
	return &t, nil
}

func (c *GormCatalog) GetTable(ctx context.Context, id string) (*domain.Table, error) {
	var t domain.Table
	err := c.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query table: %w", err)
	}
	return &t, nil
}

func (c *GormCatalog) ListTables(ctx context.Context) ([]domain.Table, error) {
	var tables []domain.Table
	if err := c.db.WithContext(ctx).Order("code").Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	return tables, nil
}

func (c *GormCatalog) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.db.WithContext(ctx).Order("sort_order").Order("name").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	return categories, nil
}

func (c *GormCatalog) ListMenuItems(ctx context.Context, filter domain.MenuFilter) ([]domain.MenuItem, error) {
	q := c.db.WithContext(ctx).Preload("Category")
	if filter.CategoryID != "" {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.InStock != nil {
		q = q.Where("in_stock = ?", *filter.InStock)
	}

	var items []domain.MenuItem
	if err := q.Order("name").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	return items, nil
}

func (c *GormCatalog) GetMenuItems(ctx context.Context, ids []string) (map[string]domain.MenuItem, error) {
	out := make(map[string]domain.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var items []domain.MenuItem
	if err := c.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (c *GormCatalog) UpdateMenuItem(ctx context.Context, id string, update domain.MenuItemUpdate) (*domain.MenuItem, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	var item domain.MenuItem
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&item).Error; err != nil {
			return err
		}

		changes := map[string]any{}
		if update.Name != nil {
			changes["name"] = *update.Name
		}
		if update.Description != nil {
			changes["description"] = *update.Description
		}
		if update.ImageURL != nil {
			changes["image_url"] = *update.ImageURL
		}
		if update.Price != nil {
			changes["price"] = *update.Price
		}
		if update.InStock != nil {
			changes["in_stock"] = *update.InStock
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&domain.MenuItem{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&item).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update menu item: %w", err)
	}
	return &item, nil
}
