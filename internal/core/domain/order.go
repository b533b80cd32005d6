package domain

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusMaking    OrderStatus = "making"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusMaking,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodDebit PaymentMethod = "debit"
	PaymentMethodQRIS  PaymentMethod = "qris"
)

type Order struct {
	ID            string         `json:"id"`
	Code          string         `json:"code"`
	TableID       string         `json:"table_id"`
	Table         *Table         `json:"table,omitempty"`
	Status        OrderStatus    `json:"status"`
	PaymentStatus PaymentStatus  `json:"payment_status"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	Total         int64          `json:"total"`
	CustomerNotes string         `json:"customer_notes,omitempty"`
	Items         []OrderItem    `json:"order_items"`
	Version       int            `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// OrderItem is a frozen snapshot of a menu item at checkout.
type OrderItem struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
	Notes    string `json:"notes,omitempty"`
}

func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// KdsEvent is an append-only audit record of a status change.
type KdsEvent struct {
	ID        string      `json:"id"`
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Note      string      `json:"notes"`
	CreatedBy string      `json:"created_by,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusMaking,
		OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func ParseOrderStatus(v string) (OrderStatus, error) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, v)
	}
	return s, nil
}

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func ParsePaymentStatus(v string) (PaymentStatus, error) {
	p := PaymentStatus(strings.ToLower(strings.TrimSpace(v)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, v)
	}
	return p, nil
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodDebit, PaymentMethodQRIS:
		return true
	}
	return false
}

func ParsePaymentMethod(v string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(v)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, v)
	}
	return m, nil
}

// OrderTotal sums the line totals of items.
func OrderTotal(items []OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

// Clone returns a copy that shares no slices or pointers with o.
func (o Order) Clone() Order {
	c := o
	if o.PaymentMethod != nil {
		m := *o.PaymentMethod
		c.PaymentMethod = &m
	}
	if o.Table != nil {
		t := *o.Table
		c.Table = &t
	}
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		copy(c.Items, o.Items)
	}
	return c
}
