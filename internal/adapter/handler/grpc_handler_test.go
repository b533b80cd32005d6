package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/MonkyMars/gecho"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/resto-orders/internal/adapter/storage"
	"github.com/rl1809/resto-orders/internal/core/domain"
	"github.com/rl1809/resto-orders/internal/core/service"
	"github.com/rl1809/resto-orders/internal/poll"
)

func newGRPCEnv(t *testing.T) (*OrderStationClient, *service.OrderService) {
	t.Helper()
	logger := gecho.NewDefaultLogger()

	orderRepo := storage.NewMemoryOrderRepository()
	catalogRepo := storage.NewMemoryCatalog()
	cache := storage.NewMemoryCache()
	codes := service.NewCodeGenerator(orderRepo, cache, logger, service.DefaultCodeAttempts)
	orders := service.NewOrderService(orderRepo, catalogRepo, cache, codes, logger)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(logger)))
	RegisterOrderStationServer(srv, NewGRPCHandler(orders))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufnet: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewOrderStationClient(conn), orders
}

func strPtr(s string) *string { return &s }

func TestGRPC_StationFlow(t *testing.T) {
	client, orders := newGRPCEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	order, err := orders.CreateOrder(ctx, service.CreateOrderRequest{
		TableCode: "T03",
		Items:     []service.CreateOrderItem{{ItemID: "item-beef-rendang", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	got, err := client.GetOrder(ctx, &GetOrderRequest{Code: order.Code})
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got.Order.Code != order.Code || got.Order.Total != 18500 || got.Urgency != poll.UrgencyNormal {
		t.Errorf("unexpected reply %+v", got)
	}

	_, err = client.ApplyTransition(ctx, &TransitionRequest{Code: order.Code, Status: strPtr("confirmed"), Actor: "cashier"})
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("expected FailedPrecondition for unpaid confirm, got %v", err)
	}

	paid, err := client.ApplyTransition(ctx, &TransitionRequest{
		Code:          order.Code,
		Status:        strPtr("confirmed"),
		PaymentStatus: strPtr("paid"),
		PaymentMethod: strPtr("debit"),
		Actor:         "cashier",
	})
	if err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}
	if paid.Order.Status != domain.OrderStatusConfirmed || paid.Order.PaymentMethod == nil || *paid.Order.PaymentMethod != domain.PaymentMethodDebit {
		t.Errorf("unexpected order %+v", paid.Order)
	}

	queue, err := client.ListOrders(ctx, &ListOrdersRequest{Statuses: []string{"confirmed", "making"}, Sort: "oldest"})
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if len(queue.Orders) != 1 || queue.Orders[0].Order.Code != order.Code {
		t.Errorf("expected the confirmed order in the kitchen queue, got %+v", queue.Orders)
	}
}

func TestGRPC_ErrorCodes(t *testing.T) {
	client, _ := newGRPCEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.GetOrder(ctx, &GetOrderRequest{Code: "QQQQQQ"}); status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
	if _, err := client.GetOrder(ctx, &GetOrderRequest{Code: "bad"}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
	if _, err := client.ListOrders(ctx, &ListOrdersRequest{Statuses: []string{"lost"}}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
	if _, err := client.ListOrders(ctx, &ListOrdersRequest{Sort: "sideways"}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument for unknown sort, got %v", err)
	}
	if _, err := client.ListOrders(ctx, &ListOrdersRequest{Sort: "newest"}); err != nil {
		t.Errorf("expected newest sort to be accepted, got %v", err)
	}
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{domain.ErrNotFound, codes.NotFound},
		{domain.ErrInvalidTableCode, codes.NotFound},
		{domain.ErrEmptyItems, codes.InvalidArgument},
		{&domain.TransitionError{Field: "status", From: "pending", To: "ready"}, codes.FailedPrecondition},
		{domain.ErrRepositoryConflict, codes.Aborted},
		{domain.ErrDuplicateRequest, codes.AlreadyExists},
		{domain.ErrExhaustedCodeSpace, codes.ResourceExhausted},
		{context.DeadlineExceeded, codes.Internal},
	}
	for _, tt := range tests {
		if got := status.Code(toStatus(tt.err)); got != tt.want {
			t.Errorf("%v: expected %s, got %s", tt.err, tt.want, got)
		}
	}
}
