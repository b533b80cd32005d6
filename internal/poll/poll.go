// Package poll holds the client side of the polling contract: how often each
// station asks for state, how it spots changes between two answers, and how
// the kitchen ranks waiting orders.
package poll

import (
	"sync"
	"time"

	"github.com/rl1809/resto-orders/internal/core/domain"
)

type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorCashier  Actor = "cashier"
	ActorKitchen  Actor = "kitchen"
)

const (
	UrgentAfter     = 30 * time.Minute
	VeryUrgentAfter = 45 * time.Minute
)

// DefaultInterval is the suggested delay between polls. Zero means the actor
// polls on demand only.
func DefaultInterval(a Actor) time.Duration {
	switch a {
	case ActorCustomer, ActorKitchen:
		return 30 * time.Second
	}
	return 0
}

type Urgency string

const (
	UrgencyNormal     Urgency = "normal"
	UrgencyUrgent     Urgency = "urgent"
	UrgencyVeryUrgent Urgency = "very_urgent"
)

// ClassifyUrgency ranks an order by age alone.
func ClassifyUrgency(createdAt, now time.Time) Urgency {
	age := now.Sub(createdAt)
	switch {
	case age > VeryUrgentAfter:
		return UrgencyVeryUrgent
	case age > UrgentAfter:
		return UrgencyUrgent
	}
	return UrgencyNormal
}

type snapshot struct {
	orderID string
	status  domain.OrderStatus
	payment domain.PaymentStatus
	version int
}

// Change describes how an order differs from the previous poll.
type Change struct {
	Code          string
	First         bool
	FromStatus    domain.OrderStatus
	Status        domain.OrderStatus
	FromPayment   domain.PaymentStatus
	PaymentStatus domain.PaymentStatus
}

func (c Change) StatusChanged() bool {
	return c.First || c.FromStatus != c.Status
}

// Tracker remembers what one actor last saw per order code.
type Tracker struct {
	mu   sync.Mutex
	seen map[string]snapshot
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]snapshot)}
}

// Observe records a poll result and returns the orders that are new or whose
// state moved since the last call. Orders are compared by version, so a
// stale answer never reports a change backwards. A code now held by a
// different order counts as new.
func (t *Tracker) Observe(orders []domain.Order) []Change {
	t.mu.Lock()
	defer t.mu.Unlock()

	var changes []Change
	for _, o := range orders {
		prev, ok := t.seen[o.Code]
		if ok && prev.orderID != o.ID {
			ok, prev = false, snapshot{}
		}
		if ok && o.Version <= prev.version {
			continue
		}
		t.seen[o.Code] = snapshot{orderID: o.ID, status: o.Status, payment: o.PaymentStatus, version: o.Version}
		if ok && prev.status == o.Status && prev.payment == o.PaymentStatus {
			continue
		}
		changes = append(changes, Change{
			Code:          o.Code,
			First:         !ok,
			FromStatus:    prev.status,
			Status:        o.Status,
			FromPayment:   prev.payment,
			PaymentStatus: o.PaymentStatus,
		})
	}
	return changes
}

// Retain forgets every code not present in orders and returns the forgotten codes.
func (t *Tracker) Retain(orders []domain.Order) []string {
	keep := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		keep[o.Code] = struct{}{}
	}

	t.mu.Lock()
	var gone []string
	for code := range t.seen {
		if _, ok := keep[code]; !ok {
			gone = append(gone, code)
		}
	}
	t.mu.Unlock()

	t.Forget(gone...)
	return gone
}

func (t *Tracker) Forget(codes ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, code := range codes {
		delete(t.seen, code)
	}
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
