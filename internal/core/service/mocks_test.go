package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/resto-orders/internal/core/domain"
)

// Mock OrderRepository
type mockOrderRepo struct {
	mu          sync.Mutex
	orders      map[string]domain.Order
	events      map[string][]domain.KdsEvent
	takenOnce   map[string]bool
	createErr   error
	updateCalls int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders:    make(map[string]domain.Order),
		events:    make(map[string][]domain.KdsEvent),
		takenOnce: make(map[string]bool),
	}
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order domain.Order, event domain.KdsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if m.takenOnce[order.Code] {
		delete(m.takenOnce, order.Code)
		return domain.ErrCodeTaken
	}
	for _, o := range m.orders {
		if o.Code == order.Code && !o.Status.IsTerminal() {
			return domain.ErrCodeTaken
		}
	}
	stored := order.Clone()
	stored.Table = nil
	m.orders[order.ID] = stored
	m.events[order.ID] = append(m.events[order.ID], event)
	return nil
}

func (m *mockOrderRepo) GetOrderByCode(ctx context.Context, code string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found *domain.Order
	for _, o := range m.orders {
		if o.Code != code {
			continue
		}
		if found == nil || o.CreatedAt.After(found.CreatedAt) {
			c := o.Clone()
			found = &c
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

func (m *mockOrderRepo) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Order
	for _, o := range m.orders {
		if filter.Matches(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Sort == domain.SortOldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *mockOrderRepo) UpdateOrder(ctx context.Context, next domain.Order, expectedVersion int, event *domain.KdsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateCalls++
	current, ok := m.orders[next.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Version != expectedVersion {
		return domain.ErrRepositoryConflict
	}
	stored := next.Clone()
	stored.Table = nil
	m.orders[next.ID] = stored
	if event != nil {
		m.events[next.ID] = append(m.events[next.ID], *event)
	}
	return nil
}

func (m *mockOrderRepo) ListEvents(ctx context.Context, orderID string) ([]domain.KdsEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.KdsEvent(nil), m.events[orderID]...), nil
}

func (m *mockOrderRepo) CodeInUse(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.Code == code && !o.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOrderRepo) eventCount(orderID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events[orderID])
}

func (m *mockOrderRepo) put(o domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

// Mock CatalogRepository
type mockCatalog struct {
	tables  []domain.Table
	items   map[string]domain.MenuItem
	updates int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		tables: []domain.Table{
			{ID: "table-1", Code: "T01", Name: "Table 1", Active: true},
			{ID: "table-2", Code: "T02", Name: "Table 2", Active: true},
			{ID: "table-9", Code: "T09", Name: "Patio", Active: false},
		},
		items: map[string]domain.MenuItem{
			"item-a": {ID: "item-a", Name: "Nasi Goreng", Price: 10000, InStock: true},
			"item-b": {ID: "item-b", Name: "Es Teh", Price: 5000, InStock: true},
			"item-c": {ID: "item-c", Name: "Sate Ayam", Price: 25000, InStock: false},
		},
	}
}

func (m *mockCatalog) GetTableByCode(ctx context.Context, code string) (*domain.Table, error) {
	for _, t := range m.tables {
		if t.Code == code {
			c := t
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCatalog) GetTable(ctx context.Context, id string) (*domain.Table, error) {
	for _, t := range m.tables {
		if t.ID == id {
			c := t
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCatalog) ListTables(ctx context.Context) ([]domain.Table, error) {
	return append([]domain.Table(nil), m.tables...), nil
}

func (m *mockCatalog) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return nil, nil
}

func (m *mockCatalog) ListMenuItems(ctx context.Context, filter domain.MenuFilter) ([]domain.MenuItem, error) {
	var out []domain.MenuItem
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, nil
}

func (m *mockCatalog) GetMenuItems(ctx context.Context, ids []string) (map[string]domain.MenuItem, error) {
	out := make(map[string]domain.MenuItem)
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (m *mockCatalog) UpdateMenuItem(ctx context.Context, id string, update domain.MenuItemUpdate) (*domain.MenuItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	m.updates++
	if update.Price != nil {
		item.Price = *update.Price
	}
	if update.InStock != nil {
		item.InStock = *update.InStock
	}
	if update.Name != nil {
		item.Name = *update.Name
	}
	m.items[id] = item
	return &item, nil
}

// Mock CacheRepository
type mockCacheRepo struct {
	codes          map[string]string
	idempotencySet map[string]bool
	mu             sync.Mutex
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{
		codes:          make(map[string]string),
		idempotencySet: make(map[string]bool),
	}
}

func (m *mockCacheRepo) ReserveCode(ctx context.Context, code, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if holder, ok := m.codes[code]; ok && holder != orderID {
		return false, nil
	}
	m.codes[code] = orderID
	return true, nil
}

func (m *mockCacheRepo) ReleaseCode(ctx context.Context, code, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.codes[code] == orderID {
		delete(m.codes, code)
	}
	return nil
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	return nil
}

func (m *mockCacheRepo) reserved(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.codes[code]
	return ok
}

// sequence returns a draw func that yields codes in order, repeating the last.
func sequence(codes ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c, nil
	}
}
