package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var tableCodePattern = regexp.MustCompile(`^T\d{2}$`)

type Table struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Code      string    `json:"code" gorm:"size:8;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:64"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps gorm off the reserved word TABLES.
func (Table) TableName() string {
	return "restaurant_tables"
}

type Category struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Name        string    `json:"name" gorm:"size:64"`
	Description string    `json:"description" gorm:"size:255"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MenuItem struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	CategoryID  string    `json:"category_id" gorm:"size:36;index"`
	Category    *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Name        string    `json:"name" gorm:"size:128"`
	Description string    `json:"description" gorm:"size:512"`
	ImageURL    string    `json:"image_url,omitempty" gorm:"size:255"`
	Price       int64     `json:"price"`
	InStock     bool      `json:"in_stock" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MenuItemUpdate carries the admin-editable fields of a menu item.
type MenuItemUpdate struct {
	Name        *string
	Description *string
	ImageURL    *string
	Price       *int64
	InStock     *bool
}

func (u MenuItemUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.ImageURL == nil && u.Price == nil && u.InStock == nil
}

func (u MenuItemUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("%w: menu item name is empty", ErrInvalidInput)
	}
	if u.Price != nil && *u.Price < 0 {
		return fmt.Errorf("%w: negative price", ErrInvalidInput)
	}
	return nil
}

type MenuFilter struct {
	CategoryID string
	InStock    *bool
}

func NormalizeTableCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidTableCode(code string) bool {
	return tableCodePattern.MatchString(code)
}
