package storage_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"

	"github.com/rl1809/resto-orders/internal/adapter/storage"
	"github.com/rl1809/resto-orders/internal/config"
	"github.com/rl1809/resto-orders/internal/core/domain"
	"github.com/rl1809/resto-orders/internal/core/service"
)

type testEnv struct {
	stores *storage.Stores
	orders *service.OrderService
}

func setupTestEnv(t *testing.T) *testEnv {
	cfg := config.Load()
	cfg.Storage = config.StorageMySQL
	logger := gecho.NewDefaultLogger()

	stores, err := storage.Open(context.Background(), cfg, logger)
	if err != nil {
		t.Skipf("MySQL/Redis not available: %v", err)
	}
	t.Cleanup(func() { stores.Close() })

	codes := service.NewCodeGenerator(stores.Orders, stores.Cache, logger, cfg.Orders.CodeAttempts)
	return &testEnv{
		stores: stores,
		orders: service.NewOrderService(stores.Orders, stores.Catalog, stores.Cache, codes, logger),
	}
}

// cancelOrder frees the order's code so repeated runs do not fill the open code space.
func (e *testEnv) cancelOrder(t *testing.T, code string) {
	cancelled := domain.OrderStatusCancelled
	if _, err := e.orders.ApplyTransition(context.Background(), code, domain.Transition{Status: &cancelled, Actor: "test"}); err != nil {
		t.Logf("cleanup cancel %s: %v", code, err)
	}
}

func ptr[T any](v T) *T { return &v }

func TestIntegration_FullOrderLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	order, err := env.orders.CreateOrder(ctx, service.CreateOrderRequest{
		TableCode: "T02",
		Items: []service.CreateOrderItem{
			{ItemID: "item-nasi-goreng", Quantity: 2},
			{ItemID: "item-orange-juice", Quantity: 1, Notes: "no ice"},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.Total != 35000 {
		t.Errorf("expected total 35000, got %d", order.Total)
	}

	steps := []domain.Transition{
		{Status: ptr(domain.OrderStatusConfirmed), PaymentStatus: ptr(domain.PaymentStatusPaid), PaymentMethod: ptr(domain.PaymentMethodCash), Actor: "cashier"},
		{Status: ptr(domain.OrderStatusMaking), Actor: "kitchen"},
		{Status: ptr(domain.OrderStatusReady), Actor: "kitchen"},
		{Status: ptr(domain.OrderStatusDelivered), Actor: "waiter"},
	}
	for _, step := range steps {
		if _, err := env.orders.ApplyTransition(ctx, order.Code, step); err != nil {
			t.Fatalf("transition to %s failed: %v", *step.Status, err)
		}
	}

	events, err := env.orders.GetOrderEvents(ctx, order.Code)
	if err != nil {
		t.Fatalf("GetOrderEvents failed: %v", err)
	}
	if len(events) != 5 {
		t.Errorf("expected 5 events, got %d", len(events))
	}

	got, err := env.orders.GetOrder(ctx, order.Code)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got.Status != domain.OrderStatusDelivered || got.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected delivered/paid, got %s/%s", got.Status, got.PaymentStatus)
	}
	if got.PaymentMethod == nil || *got.PaymentMethod != domain.PaymentMethodCash {
		t.Errorf("expected cash payment method, got %v", got.PaymentMethod)
	}
}

func TestIntegration_ConcurrentKitchenStations(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	order, err := env.orders.CreateOrder(ctx, service.CreateOrderRequest{
		TableCode: "T01",
		Items:     []service.CreateOrderItem{{ItemID: "item-beef-rendang", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	defer env.cancelOrder(t, order.Code)

	if _, err := env.orders.ApplyTransition(ctx, order.Code, domain.Transition{
		Status:        ptr(domain.OrderStatusConfirmed),
		PaymentStatus: ptr(domain.PaymentStatusPaid),
		PaymentMethod: ptr(domain.PaymentMethodDebit),
		Actor:         "cashier",
	}); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(station int) {
			defer wg.Done()
			_, err := env.orders.ApplyTransition(ctx, order.Code, domain.Transition{
				Status: ptr(domain.OrderStatusMaking),
				Actor:  fmt.Sprintf("kitchen-%d", station),
			})
			if err == nil {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 successful start, got %d", successCount.Load())
	}
	events, err := env.orders.GetOrderEvents(ctx, order.Code)
	if err != nil {
		t.Fatalf("GetOrderEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events, got %d", len(events))
	}
}

func TestIntegration_IdempotencyPreventsDoubleOrder(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	req := service.CreateOrderRequest{
		TableCode:      "T03",
		Items:          []service.CreateOrderItem{{ItemID: "item-spring-rolls", Quantity: 1}},
		IdempotencyKey: "same-request-" + uuid.NewString(),
	}

	order, err := env.orders.CreateOrder(ctx, req)
	if err != nil {
		t.Fatalf("first CreateOrder failed: %v", err)
	}
	defer env.cancelOrder(t, order.Code)

	if _, err := env.orders.CreateOrder(ctx, req); !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Errorf("expected ErrDuplicateRequest, got %v", err)
	}
}
