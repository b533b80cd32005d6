package storage

import (
	"fmt"
	"time"

	"github.com/rl1809/resto-orders/internal/core/domain"
)

// DefaultTables is the floor plan used when the catalog starts empty.
func DefaultTables(now time.Time) []domain.Table {
	tables := make([]domain.Table, 0, 5)
	for i := 1; i <= 5; i++ {
		tables = append(tables, domain.Table{
			ID:        fmt.Sprintf("table-t%02d", i),
			Code:      fmt.Sprintf("T%02d", i),
			Name:      fmt.Sprintf("Table %d", i),
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return tables
}

func DefaultCategories(now time.Time) []domain.Category {
	return []domain.Category{
		{ID: "cat-appetizers", Name: "Appetizers", Description: "Start your meal with our delicious appetizers", SortOrder: 1, CreatedAt: now, UpdatedAt: now},
		{ID: "cat-main", Name: "Main Course", Description: "Hearty main dishes to satisfy your hunger", SortOrder: 2, CreatedAt: now, UpdatedAt: now},
		{ID: "cat-beverages", Name: "Beverages", Description: "Refreshing drinks and traditional beverages", SortOrder: 3, CreatedAt: now, UpdatedAt: now},
		{ID: "cat-desserts", Name: "Desserts", Description: "Sweet treats to end your meal perfectly", SortOrder: 4, CreatedAt: now, UpdatedAt: now},
	}
}

func DefaultMenuItems(now time.Time) []domain.MenuItem {
	item := func(id, categoryID, name, description string, price int64, image string) domain.MenuItem {
		return domain.MenuItem{
			ID:          id,
			CategoryID:  categoryID,
			Name:        name,
			Description: description,
			ImageURL:    image,
			Price:       price,
			InStock:     true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return []domain.MenuItem{
		item("item-spring-rolls", "cat-appetizers", "Spring Rolls", "Crispy vegetable spring rolls served with sweet and sour sauce", 8500, "/images/spring-rolls.jpg"),
		item("item-chicken-wings", "cat-appetizers", "Chicken Wings", "Spicy buffalo chicken wings with ranch dressing", 12000, "/images/chicken-wings.jpg"),
		item("item-nasi-goreng", "cat-main", "Nasi Goreng", "Traditional Indonesian fried rice with chicken and vegetables", 15000, "/images/nasi-goreng.jpg"),
		item("item-beef-rendang", "cat-main", "Beef Rendang", "Slow-cooked beef in rich coconut curry sauce", 18500, "/images/beef-rendang.jpg"),
		item("item-orange-juice", "cat-beverages", "Fresh Orange Juice", "Freshly squeezed orange juice", 5000, "/images/orange-juice.jpg"),
		item("item-chocolate-cake", "cat-desserts", "Chocolate Cake", "Rich chocolate cake with vanilla ice cream", 8000, "/images/chocolate-cake.jpg"),
	}
}
