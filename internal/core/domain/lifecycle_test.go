package domain

import (
	"errors"
	"testing"
	"time"
)

func statusPtr(s OrderStatus) *OrderStatus     { return &s }
func paymentPtr(p PaymentStatus) *PaymentStatus { return &p }
func methodPtr(m PaymentMethod) *PaymentMethod  { return &m }

func newOrder(status OrderStatus, payment PaymentStatus) Order {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return Order{
		ID:            "order-1",
		Code:          "AB12CD",
		TableID:       "table-1",
		Status:        status,
		PaymentStatus: payment,
		Total:         20000,
		Items: []OrderItem{
			{ID: "line-1", OrderID: "order-1", ItemID: "item-a", Quantity: 2, Price: 10000},
		},
		Version:   1,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestCanTransitionStatus(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusConfirmed, OrderStatusMaking, true},
		{OrderStatusMaking, OrderStatusReady, true},
		{OrderStatusReady, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusReady, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusMaking, false},
		{OrderStatusMaking, OrderStatusConfirmed, false},
		{OrderStatusMaking, OrderStatusMaking, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusPending, OrderStatus("served"), false},
	}

	for _, tt := range tests {
		if got := CanTransitionStatus(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionStatus(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCanTransitionPayment(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentStatusPending, PaymentStatusPaid, true},
		{PaymentStatusPending, PaymentStatusFailed, true},
		{PaymentStatusPaid, PaymentStatusRefunded, true},
		{PaymentStatusPaid, PaymentStatusPending, false},
		{PaymentStatusPending, PaymentStatusRefunded, false},
		{PaymentStatusFailed, PaymentStatusPaid, false},
		{PaymentStatusRefunded, PaymentStatusPaid, false},
		{PaymentStatusPaid, PaymentStatusPaid, false},
	}

	for _, tt := range tests {
		if got := CanTransitionPayment(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionPayment(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPlan_PayAndConfirmInOneRequest(t *testing.T) {
	current := newOrder(OrderStatusPending, PaymentStatusPending)
	now := current.CreatedAt.Add(5 * time.Minute)

	next, event, err := Plan(current, Transition{
		Status:        statusPtr(OrderStatusConfirmed),
		PaymentStatus: paymentPtr(PaymentStatusPaid),
		PaymentMethod: methodPtr(PaymentMethodCash),
		Actor:         "cashier",
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if next.Status != OrderStatusConfirmed || next.PaymentStatus != PaymentStatusPaid {
		t.Errorf("expected confirmed/paid, got %s/%s", next.Status, next.PaymentStatus)
	}
	if next.PaymentMethod == nil || *next.PaymentMethod != PaymentMethodCash {
		t.Errorf("expected payment method cash, got %v", next.PaymentMethod)
	}
	if !next.UpdatedAt.Equal(now) {
		t.Errorf("expected updated_at %v, got %v", now, next.UpdatedAt)
	}
	if event == nil {
		t.Fatal("expected a kds event")
	}
	if event.Status != OrderStatusConfirmed || event.Note != "Payment received, sent to kitchen" || event.CreatedBy != "cashier" {
		t.Errorf("unexpected event: %+v", event)
	}

	// current must be untouched
	if current.Status != OrderStatusPending || current.PaymentMethod != nil {
		t.Errorf("Plan mutated its input: %+v", current)
	}
}

func TestPlan_ConfirmRequiresPayment(t *testing.T) {
	current := newOrder(OrderStatusPending, PaymentStatusPending)

	next, event, err := Plan(current, Transition{Status: statusPtr(OrderStatusConfirmed)}, time.Now())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	var te *TransitionError
	if !errors.As(err, &te) || te.Field != "status" {
		t.Errorf("expected status field error, got %v", err)
	}
	if event != nil {
		t.Errorf("expected no event, got %+v", event)
	}
	if next.Status != OrderStatusPending || next.PaymentStatus != PaymentStatusPending {
		t.Errorf("expected order unchanged, got %s/%s", next.Status, next.PaymentStatus)
	}
}

func TestPlan_RejectsWholeRequestOnAnyIllegalField(t *testing.T) {
	current := newOrder(OrderStatusConfirmed, PaymentStatusPaid)

	// payment change is legal, status skip is not
	_, _, err := Plan(current, Transition{
		Status:        statusPtr(OrderStatusReady),
		PaymentStatus: paymentPtr(PaymentStatusRefunded),
	}, time.Now())

	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if te.Field != "status" || te.From != "confirmed" || te.To != "ready" {
		t.Errorf("unexpected transition error: %+v", te)
	}
}

func TestPlan_PaymentMethodWithoutPaid(t *testing.T) {
	current := newOrder(OrderStatusPending, PaymentStatusPending)

	_, _, err := Plan(current, Transition{PaymentMethod: methodPtr(PaymentMethodQRIS)}, time.Now())
	var te *TransitionError
	if !errors.As(err, &te) || te.Field != "payment_method" {
		t.Fatalf("expected payment_method transition error, got %v", err)
	}

	_, _, err = Plan(current, Transition{
		PaymentStatus: paymentPtr(PaymentStatusPaid),
		PaymentMethod: methodPtr(PaymentMethod("card")),
	}, time.Now())
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown method, got %v", err)
	}
}

func TestPlan_PaidRequiresPaymentMethod(t *testing.T) {
	current := newOrder(OrderStatusPending, PaymentStatusPending)

	next, event, err := Plan(current, Transition{PaymentStatus: paymentPtr(PaymentStatusPaid)}, time.Now())
	var te *TransitionError
	if !errors.As(err, &te) || te.Field != "payment_method" {
		t.Fatalf("expected payment_method transition error, got %v", err)
	}
	if next.PaymentStatus != PaymentStatusPending || next.PaymentMethod != nil || event != nil {
		t.Errorf("expected order unchanged, got %s %v %+v", next.PaymentStatus, next.PaymentMethod, event)
	}

	// paying with the method in the same request still records it
	next, _, err = Plan(current, Transition{
		PaymentStatus: paymentPtr(PaymentStatusPaid),
		PaymentMethod: methodPtr(PaymentMethodCash),
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.PaymentMethod == nil || *next.PaymentMethod != PaymentMethodCash {
		t.Errorf("expected cash method, got %v", next.PaymentMethod)
	}
}

func TestPlan_CancelledOrderCannotBePaid(t *testing.T) {
	current := newOrder(OrderStatusCancelled, PaymentStatusPending)

	_, _, err := Plan(current, Transition{PaymentStatus: paymentPtr(PaymentStatusPaid)}, time.Now())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	// failing a pending payment on a cancelled order is still allowed
	next, event, err := Plan(current, Transition{PaymentStatus: paymentPtr(PaymentStatusFailed)}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.PaymentStatus != PaymentStatusFailed || event != nil {
		t.Errorf("expected failed payment and no event, got %s %+v", next.PaymentStatus, event)
	}
}

func TestPlan_EmptyTransitionIsNoop(t *testing.T) {
	current := newOrder(OrderStatusMaking, PaymentStatusPaid)

	next, event, err := Plan(current, Transition{Actor: "kitchen"}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event != nil {
		t.Errorf("expected no event, got %+v", event)
	}
	if !next.UpdatedAt.Equal(current.UpdatedAt) || next.Status != current.Status {
		t.Errorf("expected unchanged order, got %+v", next)
	}
}

func TestPlan_TerminalStatusesAreFinal(t *testing.T) {
	for _, terminal := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
		current := newOrder(terminal, PaymentStatusPaid)
		for _, to := range OrderStatuses {
			_, _, err := Plan(current, Transition{Status: statusPtr(to)}, time.Now())
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", terminal, to, err)
			}
		}
	}
}

func TestStatusNote_CoversEveryStatus(t *testing.T) {
	for _, s := range OrderStatuses {
		if StatusNote(s) == "" {
			t.Errorf("empty note for %s", s)
		}
	}
	if StatusNote(OrderStatusPending) != "Order placed by customer" {
		t.Errorf("unexpected pending note %q", StatusNote(OrderStatusPending))
	}
}

func TestOrderTotal(t *testing.T) {
	items := []OrderItem{
		{Quantity: 2, Price: 10000},
		{Quantity: 1, Price: 8500},
	}
	if got := OrderTotal(items); got != 28500 {
		t.Errorf("expected 28500, got %d", got)
	}
}

func TestValidCode(t *testing.T) {
	tests := map[string]bool{
		"AB12CD":  true,
		"000000":  true,
		"ab12cd":  false,
		"AB12C":   false,
		"AB12CDE": false,
		"AB-2CD":  false,
	}
	for code, want := range tests {
		if got := ValidCode(code); got != want {
			t.Errorf("ValidCode(%q) = %v, want %v", code, got, want)
		}
	}
	if NormalizeCode("  ab12cd ") != "AB12CD" {
		t.Errorf("NormalizeCode did not upper-case and trim")
	}
}

func TestValidTableCode(t *testing.T) {
	if !ValidTableCode(NormalizeTableCode(" t01")) {
		t.Error("expected t01 to normalize to a valid table code")
	}
	for _, code := range []string{"T1", "T001", "A01", "TAB"} {
		if ValidTableCode(code) {
			t.Errorf("expected %q to be invalid", code)
		}
	}
}

func TestOrderFilter_Matches(t *testing.T) {
	o := newOrder(OrderStatusMaking, PaymentStatusPaid)
	paid := PaymentStatusPaid
	before := o.CreatedAt.Add(-time.Hour)
	after := o.CreatedAt.Add(time.Hour)

	if !(OrderFilter{}).Matches(o) {
		t.Error("empty filter should match")
	}
	if !(OrderFilter{Statuses: []OrderStatus{OrderStatusConfirmed, OrderStatusMaking}, PaymentStatus: &paid}).Matches(o) {
		t.Error("expected status/payment filter to match")
	}
	if (OrderFilter{Statuses: []OrderStatus{OrderStatusReady}}).Matches(o) {
		t.Error("expected status filter to exclude")
	}
	if !(OrderFilter{DateFrom: &before, DateTo: &after}).Matches(o) {
		t.Error("expected date window to match")
	}
	if (OrderFilter{DateFrom: &after}).Matches(o) {
		t.Error("expected date_from to exclude")
	}
	if (OrderFilter{TableID: "table-2"}).Matches(o) {
		t.Error("expected table filter to exclude")
	}
}
