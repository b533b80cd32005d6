package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/resto-orders/internal/core/domain"
)

// MemoryOrderRepository keeps orders in process. Every method runs under one
// mutex, which gives UpdateOrder the same compare-and-set guarantee as MySQL.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	events map[string][]domain.KdsEvent
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]domain.Order),
		events: make(map[string][]domain.KdsEvent),
	}
}

func (m *MemoryOrderRepository) CreateOrder(ctx context.Context, order domain.Order, event domain.KdsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.codeInUseLocked(order.Code) {
		return domain.ErrCodeTaken
	}

	stored := order.Clone()
	stored.Table = nil
	m.orders[order.ID] = stored
	m.events[order.ID] = append(m.events[order.ID], event)
	return nil
}

func (m *MemoryOrderRepository) GetOrderByCode(ctx context.Context, code string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var newest *domain.Order
	for _, o := range m.orders {
		if o.Code != code {
			continue
		}
		if newest == nil || o.CreatedAt.After(newest.CreatedAt) {
			c := o.Clone()
			newest = &c
		}
	}
	if newest == nil {
		return nil, domain.ErrNotFound
	}
	return newest, nil
}

func (m *MemoryOrderRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.Order{}
	for _, o := range m.orders {
		if filter.Matches(o) {
			out = append(out, o.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if filter.Sort == domain.SortOldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *MemoryOrderRepository) UpdateOrder(ctx context.Context, next domain.Order, expectedVersion int, event *domain.KdsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.orders[next.ID]
	if !ok || current.Version != expectedVersion {
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

func (m *MemoryOrderRepository) ListEvents(ctx context.Context, orderID string) ([]domain.KdsEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]domain.KdsEvent{}, m.events[orderID]...), nil
}

func (m *MemoryOrderRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.codeInUseLocked(code), nil
}

func (m *MemoryOrderRepository) codeInUseLocked(code string) bool {
	for _, o := range m.orders {
		if o.Code == code && !o.Status.IsTerminal() {
			return true
		}
	}
	return false
}

// MemoryCatalog is a seeded, mutable catalog for single-process runs.
type MemoryCatalog struct {
	mu         sync.RWMutex
	tables     []domain.Table
	categories []domain.Category
	items      map[string]domain.MenuItem
}

func NewMemoryCatalog() *MemoryCatalog {
	now := time.Now().UTC()
	c := &MemoryCatalog{
		tables:     DefaultTables(now),
		categories: DefaultCategories(now),
		items:      make(map[string]domain.MenuItem),
	}
	for _, item := range DefaultMenuItems(now) {
		c.items[item.ID] = item
	}
	return c
}

func (c *MemoryCatalog) GetTableByCode(ctx context.Context, code string) (*domain.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, t := range c.tables {
		if t.Code == code {
			found := t
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c *MemoryCatalog) GetTable(ctx context.Context, id string) (*domain.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, t := range c.tables {
		if t.ID == id {
			found := t
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c *MemoryCatalog) ListTables(ctx context.Context) ([]domain.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]domain.Table{}, c.tables...), nil
}

func (c *MemoryCatalog) ListCategories(ctx context.Context) ([]domain.Category, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]domain.Category{}, c.categories...), nil
}

func (c *MemoryCatalog) ListMenuItems(ctx context.Context, filter domain.MenuFilter) ([]domain.MenuItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []domain.MenuItem{}
	for _, item := range c.items {
		if filter.CategoryID != "" && item.CategoryID != filter.CategoryID {
			continue
		}
		if filter.InStock != nil && item.InStock != *filter.InStock {
			continue
		}
		for _, cat := range c.categories {
			if cat.ID == item.CategoryID {
				category := cat
				item.Category = &category
				break
			}
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *MemoryCatalog) GetMenuItems(ctx context.Context, ids []string) (map[string]domain.MenuItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]domain.MenuItem, len(ids))
	for _, id := range ids {
		if item, ok := c.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (c *MemoryCatalog) UpdateMenuItem(ctx context.Context, id string, update domain.MenuItemUpdate) (*domain.MenuItem, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if update.Name != nil {
		item.Name = *update.Name
	}
	if update.Description != nil {
		item.Description = *update.Description
	}
	if update.ImageURL != nil {
		item.ImageURL = *update.ImageURL
	}
	if update.Price != nil {
		item.Price = *update.Price
	}
	if update.InStock != nil {
		item.InStock = *update.InStock
	}
	if !update.IsEmpty() {
		item.UpdatedAt = time.Now().UTC()
	}
	c.items[id] = item
	return &item, nil
}

// MemoryCache stands in for Redis. Entries expire lazily on access.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) ReserveCode(ctx context.Context, code, orderID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := codeKeyPrefix + code
	if e, ok := c.getLocked(key); ok {
		return e.value == orderID, nil
	}
	c.entries[key] = memoryEntry{value: orderID, expiresAt: c.now().Add(codeReservationTTL)}
	return true, nil
}

func (c *MemoryCache) ReleaseCode(ctx context.Context, code, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := codeKeyPrefix + code
	if e, ok := c.getLocked(key); ok && e.value == orderID {
		delete(c.entries, key)
	}
	return nil
}

func (c *MemoryCache) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.getLocked(key); ok {
		return false, nil
	}
	e := memoryEntry{value: "1"}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = e
	return true, nil
}

func (c *MemoryCache) ReleaseIdempotency(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) getLocked(key string) (memoryEntry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}
