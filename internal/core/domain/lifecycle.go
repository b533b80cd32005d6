package domain

import (
	"fmt"
	"slices"
	"time"
)

// nextStatus is the single forward step allowed from each non-terminal status.
// Cancellation is handled separately since it is reachable from all of them.
var nextStatus = map[OrderStatus]OrderStatus{
	OrderStatusPending:   OrderStatusConfirmed,
	OrderStatusConfirmed: OrderStatusMaking,
	OrderStatusMaking:    OrderStatusReady,
	OrderStatusReady:     OrderStatusDelivered,
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:  {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusPaid:     {PaymentStatusRefunded},
	PaymentStatusFailed:   {},
	PaymentStatusRefunded: {},
}

// Transition is a requested change; nil fields are left untouched.
type Transition struct {
	Status        *OrderStatus
	PaymentStatus *PaymentStatus
	PaymentMethod *PaymentMethod
	Actor         string
}

func (t Transition) IsEmpty() bool {
	return t.Status == nil && t.PaymentStatus == nil && t.PaymentMethod == nil
}

// NextStatus returns the forward step from s, if any.
func NextStatus(s OrderStatus) (OrderStatus, bool) {
	next, ok := nextStatus[s]
	return next, ok
}

func CanTransitionStatus(from, to OrderStatus) bool {
	if from.IsTerminal() || !to.Valid() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	next, ok := nextStatus[from]
	return ok && next == to
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return slices.Contains(paymentTransitions[from], to)
}

// StatusNote derives the audit note recorded when an order enters s.
func StatusNote(s OrderStatus) string {
	switch s {
	case OrderStatusPending:
		return "Order placed by customer"
	case OrderStatusConfirmed:
		return "Payment received, sent to kitchen"
	case OrderStatusMaking:
		return "Kitchen started preparing"
	case OrderStatusReady:
		return "Ready for pickup"
	case OrderStatusDelivered:
		return "Delivered to table"
	case OrderStatusCancelled:
		return "Order cancelled"
	}
	panic("domain: unknown order status " + string(s))
}

// Plan validates t against the current order and returns the next state plus
// the audit event to append, if the status changed. It never mutates current.
// Every requested field is checked before anything is applied.
func Plan(current Order, t Transition, now time.Time) (Order, *KdsEvent, error) {
	next := current.Clone()
	if t.IsEmpty() {
		return next, nil, nil
	}

	if t.PaymentMethod != nil {
		if !t.PaymentMethod.Valid() {
			return current, nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, *t.PaymentMethod)
		}
		if t.PaymentStatus == nil || *t.PaymentStatus != PaymentStatusPaid {
			return current, nil, &TransitionError{
				Field:  "payment_method",
				From:   methodString(current.PaymentMethod),
				To:     string(*t.PaymentMethod),
				Reason: "payment method is only recorded when payment becomes paid",
			}
		}
	}

	if t.PaymentStatus != nil {
		to := *t.PaymentStatus
		if !CanTransitionPayment(current.PaymentStatus, to) {
			return current, nil, &TransitionError{
				Field: "payment_status",
				From:  string(current.PaymentStatus),
				To:    string(to),
			}
		}
		if to == PaymentStatusPaid && current.Status == OrderStatusCancelled {
			return current, nil, &TransitionError{
				Field:  "payment_status",
				From:   string(current.PaymentStatus),
				To:     string(to),
				Reason: "order is cancelled",
			}
		}
		// paid must carry its method.
		if to == PaymentStatusPaid && t.PaymentMethod == nil {
			return current, nil, &TransitionError{
				Field:  "payment_method",
				From:   methodString(current.PaymentMethod),
				To:     "none",
				Reason: "payment method required",
			}
		}
		next.PaymentStatus = to
		if to == PaymentStatusPaid {
			m := *t.PaymentMethod
			next.PaymentMethod = &m
		}
	}

	var event *KdsEvent
	if t.Status != nil {
		to := *t.Status
		if !CanTransitionStatus(current.Status, to) {
			return current, nil, &TransitionError{
				Field: "status",
				From:  string(current.Status),
				To:    string(to),
			}
		}
		// Payment is what admits an order into the kitchen queue.
		if to == OrderStatusConfirmed && next.PaymentStatus != PaymentStatusPaid {
			return current, nil, &TransitionError{
				Field:  "status",
				From:   string(current.Status),
				To:     string(to),
				Reason: "payment required before confirming",
			}
		}
		next.Status = to
		event = &KdsEvent{
			OrderID:   current.ID,
			Status:    to,
			Note:      StatusNote(to),
			CreatedBy: t.Actor,
			CreatedAt: now,
		}
	}

	next.UpdatedAt = now
	return next, event, nil
}

func methodString(m *PaymentMethod) string {
	if m == nil {
		return "none"
	}
	return string(*m)
}
