package port

import (
	"context"

	"github.com/rl1809/resto-orders/internal/core/domain"
)

type OrderRepository interface {
	// CreateOrder persists the order, its items and the initial kds event in one transaction.
	// Returns domain.ErrCodeTaken if a non-terminal order already holds the code.
	CreateOrder(ctx context.Context, order domain.Order, event domain.KdsEvent) error

	// GetOrderByCode returns the newest order carrying code, items included.
	GetOrderByCode(ctx context.Context, code string) (*domain.Order, error)

	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)

	// UpdateOrder writes next only if the stored version still equals expectedVersion,
	// appending event in the same transaction. Returns domain.ErrRepositoryConflict otherwise.
	UpdateOrder(ctx context.Context, next domain.Order, expectedVersion int, event *domain.KdsEvent) error

	// ListEvents returns the kds events of an order, oldest first.
	ListEvents(ctx context.Context, orderID string) ([]domain.KdsEvent, error)

	// CodeInUse reports whether a non-terminal order holds code.
	CodeInUse(ctx context.Context, code string) (bool, error)
}
