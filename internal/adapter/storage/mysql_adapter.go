package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/rl1809/resto-orders/internal/core/domain"
)

const mysqlErrDuplicateEntry = 1062

//go:embed schema.sql
var schemaSQL string

const orderColumns = `id, code, table_id, status, payment_status, payment_method,
	total, customer_notes, version, created_at, updated_at`

// MySQLAdapter stores orders, their items and kds events.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates the order tables if they do not exist.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order, event domain.KdsEvent) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.Code, order.TableID, order.Status, order.PaymentStatus,
		nullMethod(order.PaymentMethod), order.Total, nullString(order.CustomerNotes),
		order.Version, order.CreatedAt.UTC(), order.UpdatedAt.UTC(),
	)
	if isDuplicateEntry(err) {
		return domain.ErrCodeTaken
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, item_id, name, quantity, price, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID, order.ID, item.ItemID, item.Name, item.Quantity, item.Price, nullString(item.Notes),
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := insertEvent(ctx, tx, event); err != nil {
		return err
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetOrderByCode(ctx context.Context, code string) (*domain.Order, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE code = ?
		ORDER BY created_at DESC LIMIT 1`, code)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	items, err := m.loadItems(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return &order, nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var where []string
	var args []any

	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}
	if filter.PaymentStatus != nil {
		where = append(where, "payment_status = ?")
		args = append(args, *filter.PaymentStatus)
	}
	if filter.TableID != "" {
		where = append(where, "table_id = ?")
		args = append(args, filter.TableID)
	}
	if filter.DateFrom != nil {
		where = append(where, "created_at >= ?")
		args = append(args, filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		where = append(where, "created_at <= ?")
		args = append(args, filter.DateTo.UTC())
	}

	query := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += orderByClause(filter.Sort)

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []string
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := m.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (m *MySQLAdapter) UpdateOrder(ctx context.Context, next domain.Order, expectedVersion int, event *domain.KdsEvent) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, payment_status = ?, payment_method = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		next.Status, next.PaymentStatus, nullMethod(next.PaymentMethod), next.Version, next.UpdatedAt.UTC(),
		next.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if err := expectOneRow(result); err != nil {
		return err
	}

	if event != nil {
		if err := insertEvent(ctx, tx, *event); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) ListEvents(ctx context.Context, orderID string) ([]domain.KdsEvent, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, order_id, status, notes, created_by, created_at
		FROM kds_events WHERE order_id = ?
		ORDER BY seq`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.KdsEvent
	for rows.Next() {
		var e domain.KdsEvent
		var createdBy sql.NullString
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Note, &createdBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.CreatedBy = createdBy.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (m *MySQLAdapter) CodeInUse(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE open_code = ?)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query open code: %w", err)
	}
	return exists, nil
}

func (m *MySQLAdapter) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, order_id, item_id, name, quantity, price, notes
		FROM order_items WHERE order_id IN (`+placeholders(len(orderIDs))+`)
		ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var item domain.OrderItem
		var notes sql.NullString
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ItemID, &item.Name, &item.Quantity, &item.Price, &notes); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.Notes = notes.String
		items[item.OrderID] = append(items[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, e domain.KdsEvent) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO kds_events (id, order_id, status, notes, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.OrderID, e.Status, e.Note, nullString(e.CreatedBy), e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert kds event: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	var method, notes sql.NullString
	err := row.Scan(
		&o.ID, &o.Code, &o.TableID, &o.Status, &o.PaymentStatus, &method,
		&o.Total, &notes, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	if method.Valid {
		pm := domain.PaymentMethod(method.String)
		o.PaymentMethod = &pm
	}
	o.CustomerNotes = notes.String
	return o, nil
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}

// orderByClause matches the memory repository: ties on created_at go to the lower id.
func orderByClause(sort domain.SortOrder) string {
	if sort == domain.SortOldestFirst {
		return " ORDER BY created_at ASC, id ASC"
	}
	return " ORDER BY created_at DESC, id ASC"
}

// expectOneRow maps a CAS update that touched nothing to ErrRepositoryConflict.
func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrRepositoryConflict
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullMethod(m *domain.PaymentMethod) sql.NullString {
	if m == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*m), Valid: true}
}
