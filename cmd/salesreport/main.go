package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/rl1809/resto-orders/internal/adapter/storage"
	"github.com/rl1809/resto-orders/internal/config"
	"github.com/rl1809/resto-orders/internal/core/domain"
	"github.com/rl1809/resto-orders/internal/core/service"
)

func main() {
	var (
		fromFlag = flag.String("from", "", "first day to include (YYYY-MM-DD, report timezone)")
		toFlag   = flag.String("to", "", "last day to include (YYYY-MM-DD, report timezone)")
		timeout  = flag.Duration("timeout", 30*time.Second, "overall timeout")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Get()
	logger := config.NewLogger(cfg, false)

	loc, err := cfg.ReportLocation()
	if err != nil {
		logger.Fatal("Invalid report timezone", gecho.Field("error", err))
	}
	from, to, err := parseWindow(*fromFlag, *toFlag, loc)
	if err != nil {
		logger.Fatal("Invalid date window", gecho.Field("error", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stores, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", gecho.Field("error", err))
	}
	defer stores.Close()

	reports := service.NewReportService(stores.Orders, stores.Catalog, logger, loc)
	report, err := reports.GenerateSalesReport(ctx, from, to)
	if err != nil {
		logger.Fatal("Failed to generate report", gecho.Field("error", err))
	}

	if err := printReport(report, loc); err != nil {
		logger.Fatal("Failed to print report", gecho.Field("error", err))
	}
}

func parseWindow(fromStr, toStr string, loc *time.Location) (from, to *time.Time, err error) {
	if fromStr != "" {
		t, err := time.ParseInLocation(time.DateOnly, fromStr, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("-from: %w", err)
		}
		from = &t
	}
	if toStr != "" {
		t, err := time.ParseInLocation(time.DateOnly, toStr, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("-to: %w", err)
		}
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		to = &end
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("-to is before -from")
	}
	return from, to, nil
}

func printReport(r *domain.SalesReport, loc *time.Location) error {
	window := "all time"
	if r.From != nil || r.To != nil {
		window = fmt.Sprintf("%s .. %s", formatBound(r.From, loc), formatBound(r.To, loc))
	}
	fmt.Printf("Sales report (%s), generated %s\n", window, r.GeneratedAt.In(loc).Format(time.DateTime))
	fmt.Printf("Paid orders: %d   Revenue: %s\n\n", r.TotalOrders, formatIDR(r.TotalRevenue))

	status := tablewriter.NewWriter(os.Stdout)
	status.Header("Status", "Orders")
	for _, s := range domain.OrderStatuses {
		if n, ok := r.OrdersByStatus[s]; ok {
			status.Append([]string{string(s), strconv.Itoa(n)})
		}
	}
	if err := status.Render(); err != nil {
		return err
	}
	fmt.Println()

	popular := tablewriter.NewWriter(os.Stdout)
	popular.Header("#", "Item", "Qty", "Revenue")
	for i, p := range r.PopularItems {
		popular.Append([]string{strconv.Itoa(i + 1), p.Item.Name, strconv.Itoa(p.QuantitySold), formatIDR(p.Revenue)})
	}
	if err := popular.Render(); err != nil {
		return err
	}
	fmt.Println()

	daily := tablewriter.NewWriter(os.Stdout)
	daily.Header("Day", "Orders", "Revenue")
	for _, d := range r.DailySales {
		daily.Append([]string{d.Date, strconv.Itoa(d.Orders), formatIDR(d.Revenue)})
	}
	return daily.Render()
}

func formatBound(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format(time.DateOnly)
}

// formatIDR renders whole rupiah with dot thousands separators.
func formatIDR(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range len(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, digits[i])
	}
	return "Rp " + sign + string(out)
}
