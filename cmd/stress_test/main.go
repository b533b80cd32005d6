package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/joho/godotenv"

	"github.com/rl1809/resto-orders/internal/adapter/storage"
	"github.com/rl1809/resto-orders/internal/config"
	"github.com/rl1809/resto-orders/internal/core/domain"
	"github.com/rl1809/resto-orders/internal/core/service"
)

func main() {
	totalRequests := flag.Int("n", 50, "concurrent kitchen stations racing to start the same order")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Get()
	logger := config.NewLogger(cfg, false)
	ctx := context.Background()

	stores, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", gecho.Field("error", err))
	}
	defer stores.Close()

	codes := service.NewCodeGenerator(stores.Orders, stores.Cache, logger, cfg.Orders.CodeAttempts)
	orderService := service.NewOrderService(stores.Orders, stores.Catalog, stores.Cache, codes, logger)

	// Prepare a paid, confirmed order
	order, err := orderService.CreateOrder(ctx, service.CreateOrderRequest{
		TableCode: "T01",
		Items:     []service.CreateOrderItem{{ItemID: "item-nasi-goreng", Quantity: 1}},
	})
	if err != nil {
		logger.Fatal("Failed to create order", gecho.Field("error", err))
	}
	paid := domain.PaymentStatusPaid
	cash := domain.PaymentMethodCash
	confirmed := domain.OrderStatusConfirmed
	if _, err := orderService.ApplyTransition(ctx, order.Code, domain.Transition{
		Status:        &confirmed,
		PaymentStatus: &paid,
		PaymentMethod: &cash,
		Actor:         "cashier",
	}); err != nil {
		logger.Fatal("Failed to confirm order", gecho.Field("error", err))
	}

	// Counters
	var successCount, conflictCount, invalidCount, otherCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func(station int) {
			defer wg.Done()

			making := domain.OrderStatusMaking
			_, err := orderService.ApplyTransition(ctx, order.Code, domain.Transition{
				Status: &making,
				Actor:  fmt.Sprintf("kitchen-%d", station),
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrRepositoryConflict):
				conflictCount.Add(1)
			case errors.Is(err, domain.ErrInvalidTransition):
				invalidCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	events, err := orderService.GetOrderEvents(ctx, order.Code)
	if err != nil {
		logger.Fatal("Failed to load events", gecho.Field("error", err))
	}

	success := successCount.Load()
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Storage:          %s\n", cfg.Storage)
	fmt.Printf("Order Code:       %s\n", order.Code)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Version Conflict: %d\n", conflictCount.Load())
	fmt.Printf("Invalid (stale):  %d\n", invalidCount.Load())
	fmt.Printf("Other Errors:     %d\n", otherCount.Load())
	fmt.Printf("KDS Events:       %d\n", len(events))
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == 1 {
		fmt.Println("PASS: Exactly 1 station started the order")
	} else {
		fmt.Printf("FAIL: Expected 1 success, got %d\n", success)
	}

	// pending, confirmed, making
	if len(events) == 3 {
		fmt.Println("PASS: Exactly one making event recorded")
	} else {
		fmt.Printf("FAIL: Expected 3 events, got %d\n", len(events))
	}
}
