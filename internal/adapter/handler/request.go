package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rl1809/resto-orders/internal/core/domain"
	"github.com/rl1809/resto-orders/internal/core/service"
)

const maxBodyBytes = 1 << 20

type CreateOrderHTTPRequest struct {
	TableCode     string                       `json:"table_code" validate:"required,max=8"`
	Items         []CreateOrderItemHTTPRequest `json:"items" validate:"required,min=1,dive"`
	CustomerNotes string                       `json:"customer_notes" validate:"max=500"`
}

type CreateOrderItemHTTPRequest struct {
	ItemID   string `json:"item_id" validate:"required,max=36"`
	Quantity int    `json:"quantity" validate:"gte=1,lte=99"`
	Notes    string `json:"notes" validate:"max=255"`
}

func (r CreateOrderHTTPRequest) toService(idempotencyKey string) service.CreateOrderRequest {
	req := service.CreateOrderRequest{
		TableCode:      r.TableCode,
		CustomerNotes:  r.CustomerNotes,
		IdempotencyKey: idempotencyKey,
	}
	for _, item := range r.Items {
		req.Items = append(req.Items, service.CreateOrderItem{
			ItemID:   item.ItemID,
			Quantity: item.Quantity,
			Notes:    item.Notes,
		})
	}
	return req
}

// TransitionHTTPRequest leaves a field unchanged when it is absent.
type TransitionHTTPRequest struct {
	Status        *string `json:"status,omitempty"`
	PaymentStatus *string `json:"payment_status,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty"`
	Actor         string  `json:"actor" validate:"max=32"`
}

func (r TransitionHTTPRequest) toDomain() (domain.Transition, error) {
	return buildTransition(r.Status, r.PaymentStatus, r.PaymentMethod, r.Actor)
}

func buildTransition(status, payment, method *string, actor string) (domain.Transition, error) {
	t := domain.Transition{Actor: actor}
	if status != nil {
		s, err := domain.ParseOrderStatus(*status)
		if err != nil {
			return t, err
		}
		t.Status = &s
	}
	if payment != nil {
		p, err := domain.ParsePaymentStatus(*payment)
		if err != nil {
			return t, err
		}
		t.PaymentStatus = &p
	}
	if method != nil {
		m, err := domain.ParsePaymentMethod(*method)
		if err != nil {
			return t, err
		}
		t.PaymentMethod = &m
	}
	return t, nil
}

type UpdateMenuItemHTTPRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=512"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,max=255"`
	Price       *int64  `json:"price,omitempty" validate:"omitempty,gte=0"`
	InStock     *bool   `json:"in_stock,omitempty"`
}

func (r UpdateMenuItemHTTPRequest) toDomain() domain.MenuItemUpdate {
	return domain.MenuItemUpdate{
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		Price:       r.Price,
		InStock:     r.InStock,
	}
}

type LoginHTTPRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// decodeAndValidate reads a JSON body into T and runs its validate tags.
func decodeAndValidate[T any](w http.ResponseWriter, r *http.Request, v *validator.Validate) (*T, error) {
	defer r.Body.Close()

	var body T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidInput, err)
	}
	if err := v.Struct(body); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, describeValidation(err))
	}
	return &body, nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

// parseOrderFilter reads the list query. Bare dates are calendar days in loc;
// a bare date_to covers the whole day.
func parseOrderFilter(q url.Values, loc *time.Location) (domain.OrderFilter, error) {
	var f domain.OrderFilter

	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			s, err := domain.ParseOrderStatus(part)
			if err != nil {
				return f, err
			}
			f.Statuses = append(f.Statuses, s)
		}
	}
	if raw := q.Get("payment_status"); raw != "" {
		p, err := domain.ParsePaymentStatus(raw)
		if err != nil {
			return f, err
		}
		f.PaymentStatus = &p
	}
	f.TableID = q.Get("table_id")

	from, to, err := parseDateRange(q, loc)
	if err != nil {
		return f, err
	}
	f.DateFrom, f.DateTo = from, to

	if f.Sort, err = parseSort(q.Get("sort")); err != nil {
		return f, err
	}
	return f, nil
}

// parseSort defaults to newest first; anything but the two known orders is invalid.
func parseSort(raw string) (domain.SortOrder, error) {
	switch raw {
	case "", string(domain.SortNewestFirst):
		return domain.SortNewestFirst, nil
	case string(domain.SortOldestFirst):
		return domain.SortOldestFirst, nil
	}
	return "", fmt.Errorf("%w: unknown sort %q", domain.ErrInvalidInput, raw)
}

func parseDateRange(q url.Values, loc *time.Location) (from, to *time.Time, err error) {
	if raw := q.Get("date_from"); raw != "" {
		t, err := parseDate(raw, loc, false)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if raw := q.Get("date_to"); raw != "" {
		t, err := parseDate(raw, loc, true)
		if err != nil {
			return nil, nil, err
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("%w: date_to before date_from", domain.ErrInvalidInput)
	}
	return from, to, nil
}

func parseDate(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", domain.ErrInvalidInput, raw)
	}
	if endOfDay {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}
