package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
	"github.com/rl1809/resto-orders/internal/core/domain"
	"github.com/rl1809/resto-orders/internal/port"
)

const DefaultIdempotencyTTL = 24 * time.Hour

type CreateOrderItem struct {
	ItemID   string
	Quantity int
	Notes    string
}

type CreateOrderRequest struct {
	TableCode      string
	Items          []CreateOrderItem
	CustomerNotes  string
	IdempotencyKey string
}

type OrderService struct {
	orders         port.OrderRepository
	catalog        port.CatalogRepository
	cache          port.CacheRepository
	codes          *CodeGenerator
	logger         *gecho.Logger
	idempotencyTTL time.Duration
	now            func() time.Time
}

func NewOrderService(
	orders port.OrderRepository,
	catalog port.CatalogRepository,
	cache port.CacheRepository,
	codes *CodeGenerator,
	logger *gecho.Logger,
) *OrderService {
	return &OrderService{
		orders:         orders,
		catalog:        catalog,
		cache:          cache,
		codes:          codes,
		logger:         logger,
		idempotencyTTL: DefaultIdempotencyTTL,
		now:            time.Now,
	}
}

// SetIdempotencyTTL changes how long an Idempotency-Key blocks repeats.
func (s *OrderService) SetIdempotencyTTL(ttl time.Duration) {
	if ttl > 0 {
		s.idempotencyTTL = ttl
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (order *domain.Order, err error) {
	if len(req.Items) == 0 {
		return nil, domain.ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, domain.ErrInvalidQuantity
		}
	}

	table, err := s.resolveTable(ctx, req.TableCode)
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		key := "order:create:" + req.IdempotencyKey
		ok, setErr := s.cache.SetIdempotency(ctx, key, s.idempotencyTTL)
		if setErr != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", setErr)
		}
		if !ok {
			return nil, domain.ErrDuplicateRequest
		}
		defer func() {
			if err != nil {
				if relErr := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); relErr != nil {
					s.logger.Warn("Failed to release idempotency key", gecho.Field("key", key), gecho.Field("error", relErr))
				}
			}
		}()
	}

	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ItemID)
	}
	menu, err := s.catalog.GetMenuItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}

	now := s.now()
	o := domain.Order{
		ID:            uuid.NewString(),
		TableID:       table.ID,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		CustomerNotes: req.CustomerNotes,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, line := range req.Items {
		mi, ok := menu[line.ItemID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMenuItem, line.ItemID)
		}
		if !mi.InStock {
			return nil, fmt.Errorf("%w: %s", domain.ErrItemUnavailable, mi.Name)
		}
		o.Items = append(o.Items, domain.OrderItem{
			ID:       uuid.NewString(),
			OrderID:  o.ID,
			ItemID:   mi.ID,
			Name:     mi.Name,
			Quantity: line.Quantity,
			Price:    mi.Price,
			Notes:    line.Notes,
		})
	}
	o.Total = domain.OrderTotal(o.Items)

	event := domain.KdsEvent{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		Status:    domain.OrderStatusPending,
		Note:      domain.StatusNote(domain.OrderStatusPending),
		CreatedBy: "customer",
		CreatedAt: now,
	}

	// The open-code unique index can still reject a claimed code; that costs one attempt.
	_, err = s.codes.Generate(ctx, o.ID, func(code string) error {
		o.Code = code
		return s.orders.CreateOrder(ctx, o, event)
	})
	if err != nil {
		if errors.Is(err, domain.ErrExhaustedCodeSpace) {
			s.logger.Error("Order code space exhausted", gecho.Field("table", table.Code))
			return nil, err
		}
		s.logger.Error("Failed to create order", gecho.Field("error", err))
		return nil, fmt.Errorf("create order: %w", err)
	}

	o.Table = table
	s.logger.Info("Order created",
		gecho.Field("code", o.Code),
		gecho.Field("table", table.Code),
		gecho.Field("total", o.Total),
	)
	return &o, nil
}

func (s *OrderService) GetOrder(ctx context.Context, code string) (*domain.Order, error) {
	code = domain.NormalizeCode(code)
	if !domain.ValidCode(code) {
		return nil, domain.ErrInvalidCode
	}

	order, err := s.orders.GetOrderByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.attachTable(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ApplyTransition validates and writes a requested change in one step.
// A lost version race returns domain.ErrRepositoryConflict; callers re-read and retry.
func (s *OrderService) ApplyTransition(ctx context.Context, code string, t domain.Transition) (*domain.Order, error) {
	current, err := s.GetOrder(ctx, code)
	if err != nil {
		return nil, err
	}
	if t.IsEmpty() {
		return current, nil
	}

	next, event, err := domain.Plan(*current, t, s.now())
	if err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	if event != nil {
		event.ID = uuid.NewString()
	}

	if err := s.orders.UpdateOrder(ctx, next, current.Version, event); err != nil {
		if errors.Is(err, domain.ErrRepositoryConflict) {
			s.logger.Warn("Order update lost version race",
				gecho.Field("code", current.Code),
				gecho.Field("version", current.Version),
			)
			return nil, err
		}
		s.logger.Error("Failed to update order", gecho.Field("code", current.Code), gecho.Field("error", err))
		return nil, fmt.Errorf("update order: %w", err)
	}

	if next.Status.IsTerminal() && !current.Status.IsTerminal() {
		s.codes.Release(ctx, next.Code, next.ID)
	}

	s.logger.Info("Order transitioned",
		gecho.Field("code", next.Code),
		gecho.Field("status", next.Status),
		gecho.Field("payment_status", next.PaymentStatus),
		gecho.Field("actor", t.Actor),
	)
	return &next, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	orders, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	tables, err := s.catalog.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	byID := make(map[string]domain.Table, len(tables))
	for _, t := range tables {
		byID[t.ID] = t
	}
	for i := range orders {
		if t, ok := byID[orders[i].TableID]; ok {
			orders[i].Table = &t
		}
	}
	return orders, nil
}

// GetOrderEvents returns the kitchen audit trail of an order, oldest first.
func (s *OrderService) GetOrderEvents(ctx context.Context, code string) ([]domain.KdsEvent, error) {
	code = domain.NormalizeCode(code)
	if !domain.ValidCode(code) {
		return nil, domain.ErrInvalidCode
	}
	order, err := s.orders.GetOrderByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.orders.ListEvents(ctx, order.ID)
}

func (s *OrderService) resolveTable(ctx context.Context, code string) (*domain.Table, error) {
	code = domain.NormalizeTableCode(code)
	if !domain.ValidTableCode(code) {
		return nil, domain.ErrInvalidTableCode
	}
	table, err := s.catalog.GetTableByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidTableCode
	}
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}
	if !table.Active {
		return nil, domain.ErrInvalidTableCode
	}
	return table, nil
}

func (s *OrderService) attachTable(ctx context.Context, order *domain.Order) error {
	table, err := s.catalog.GetTable(ctx, order.TableID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get table: %w", err)
	}
	order.Table = table
	return nil
}
