package domain

import "time"

type SalesReport struct {
	TotalOrders    int                 `json:"total_orders"`
	TotalRevenue   int64               `json:"total_revenue"`
	OrdersByStatus map[OrderStatus]int `json:"orders_by_status"`
	PopularItems   []PopularItem       `json:"popular_items"`
	DailySales     []DailySales        `json:"daily_sales"`
	From           *time.Time          `json:"date_from,omitempty"`
	To             *time.Time          `json:"date_to,omitempty"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

type PopularItem struct {
	Item         MenuItem `json:"item"`
	QuantitySold int      `json:"quantity_sold"`
	Revenue      int64    `json:"revenue"`
}

type DailySales struct {
	Date    string `json:"date"`
	Orders  int    `json:"orders"`
	Revenue int64  `json:"revenue"`
}

type SortOrder string

const (
	SortNewestFirst SortOrder = "newest"
	SortOldestFirst SortOrder = "oldest"
)

// OrderFilter selects orders for listing. Zero values match everything.
type OrderFilter struct {
	Statuses      []OrderStatus
	PaymentStatus *PaymentStatus
	TableID       string
	DateFrom      *time.Time
	DateTo        *time.Time
	Sort          SortOrder
}

// Matches applies the filter to a single order in memory.
func (f OrderFilter) Matches(o Order) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if o.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.PaymentStatus != nil && o.PaymentStatus != *f.PaymentStatus {
		return false
	}
	if f.TableID != "" && o.TableID != f.TableID {
		return false
	}
	if f.DateFrom != nil && o.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && o.CreatedAt.After(*f.DateTo) {
		return false
	}
	return true
}
