package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/rl1809/resto-orders/internal/core/domain"
	"github.com/rl1809/resto-orders/internal/port"
)

const (
	PopularItemsLimit = 10
	DailySalesDays    = 7
)

type ReportService struct {
	orders   port.OrderRepository
	catalog  port.CatalogRepository
	logger   *gecho.Logger
	location *time.Location
	now      func() time.Time
}

// NewReportService buckets daily sales by calendar day in loc (UTC when nil).
func NewReportService(orders port.OrderRepository, catalog port.CatalogRepository, logger *gecho.Logger, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		orders:   orders,
		catalog:  catalog,
		logger:   logger,
		location: loc,
		now:      time.Now,
	}
}

// GenerateSalesReport reduces paid orders created within [from, to] into a report.
// Either bound may be nil.
func (s *ReportService) GenerateSalesReport(ctx context.Context, from, to *time.Time) (*domain.SalesReport, error) {
	paid := domain.PaymentStatusPaid
	orders, err := s.orders.ListOrders(ctx, domain.OrderFilter{
		PaymentStatus: &paid,
		DateFrom:      from,
		DateTo:        to,
		Sort:          domain.SortOldestFirst,
	})
	if err != nil {
		return nil, fmt.Errorf("list paid orders: %w", err)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, o := range orders {
		for _, item := range o.Items {
			if _, ok := seen[item.ItemID]; !ok {
				seen[item.ItemID] = struct{}{}
				ids = append(ids, item.ItemID)
			}
		}
	}

	menu := map[string]domain.MenuItem{}
	if len(ids) > 0 {
		menu, err = s.catalog.GetMenuItems(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load menu items: %w", err)
		}
	}

	report := BuildSalesReport(orders, menu, from, to, s.now(), s.location)
	s.logger.Debug("Sales report generated",
		gecho.Field("orders", report.TotalOrders),
		gecho.Field("revenue", report.TotalRevenue),
	)
	return &report, nil
}

// BuildSalesReport is the pure reduction behind GenerateSalesReport. orders
// must already be restricted to paid orders inside the window; menu supplies
// current item details and may miss items that were removed from the catalog.
func BuildSalesReport(orders []domain.Order, menu map[string]domain.MenuItem, from, to *time.Time, now time.Time, loc *time.Location) domain.SalesReport {
	if loc == nil {
		loc = time.UTC
	}

	report := domain.SalesReport{
		OrdersByStatus: make(map[domain.OrderStatus]int),
		PopularItems:   []domain.PopularItem{},
		From:           from,
		To:             to,
		GeneratedAt:    now,
	}

	popular := make(map[string]*domain.PopularItem)

	today := now.In(loc)
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(DailySalesDays - 1))
	report.DailySales = make([]domain.DailySales, DailySalesDays)
	dayIndex := make(map[string]int, DailySalesDays)
	for i := range report.DailySales {
		date := start.AddDate(0, 0, i).Format(time.DateOnly)
		report.DailySales[i].Date = date
		dayIndex[date] = i
	}

	for _, o := range orders {
		report.TotalOrders++
		report.TotalRevenue += o.Total
		report.OrdersByStatus[o.Status]++

		if i, ok := dayIndex[o.CreatedAt.In(loc).Format(time.DateOnly)]; ok {
			report.DailySales[i].Orders++
			report.DailySales[i].Revenue += o.Total
		}

		for _, line := range o.Items {
			p, ok := popular[line.ItemID]
			if !ok {
				item, found := menu[line.ItemID]
				if !found {
					item = domain.MenuItem{ID: line.ItemID, Name: line.Name, Price: line.Price}
				}
				p = &domain.PopularItem{Item: item}
				popular[line.ItemID] = p
			}
			p.QuantitySold += line.Quantity
			p.Revenue += line.LineTotal()
		}
	}

	for _, p := range popular {
		report.PopularItems = append(report.PopularItems, *p)
	}
	sort.Slice(report.PopularItems, func(i, j int) bool {
		a, b := report.PopularItems[i], report.PopularItems[j]
		if a.QuantitySold != b.QuantitySold {
			return a.QuantitySold > b.QuantitySold
		}
		return a.Item.ID < b.Item.ID
	})
	if len(report.PopularItems) > PopularItemsLimit {
		report.PopularItems = report.PopularItems[:PopularItemsLimit]
	}

	return report
}
