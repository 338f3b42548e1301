package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/pkg/database"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

const orderColumns = `id, customer_name, customer_phone, subtotal, tax, total, created_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// PlaceOrder commits a sale. Stock is decremented with a conditional update
// per medicine so concurrent checkouts never lose a decrement or take a
// quantity below zero. Rows are locked in ascending id order whatever the
// line order, so two checkouts over the same medicines cannot deadlock.
// Ids that are not in the catalog are skipped. A known medicine without
// enough stock aborts the whole transaction.
func (r *OrderRepository) PlaceOrder(ctx context.Context, o *domain.Order) (_ *domain.CheckoutResult, err error) {
	ctx, end := database.TraceQuery(ctx, "PlaceOrder", "checkout transaction")
	defer func() { end(err) }()

	result := &domain.CheckoutResult{}
	ids, qty := o.Quantities()
	slices.Sort(ids)

	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, id := range ids {
			change, known, err := decrementStock(ctx, tx, id, qty[id])
			if err != nil {
				return err
			}
			if !known {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			result.Changes = append(result.Changes, change)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO orders (id, customer_name, customer_phone, subtotal, tax, total, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.ID,
			o.Customer.Name,
			o.Customer.Phone,
			o.Subtotal,
			o.Tax,
			o.Total,
			o.Date,
		); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		itemQuery := `
			INSERT INTO order_items (order_id, position, medicine_id, name, price, quantity, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`

		for i, item := range o.Items {
			if _, err := tx.Exec(ctx, itemQuery,
				o.ID,
				i,
				item.MedicineID,
				item.Name,
				item.Price,
				item.Quantity,
				item.Total,
			); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// decrementStock takes n units of a medicine. known is false when the id is
// not in the catalog.
func decrementStock(ctx context.Context, tx pgx.Tx, id string, n int) (domain.StockChange, bool, error) {
	change := domain.StockChange{MedicineID: id, Sold: n}
	if uuid.Validate(id) != nil {
		return change, false, nil
	}

	err := tx.QueryRow(ctx, `
		UPDATE medicines
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2
		RETURNING name, quantity`, id, n,
	).Scan(&change.Name, &change.Remaining)
	if err == nil {
		return change, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return change, false, fmt.Errorf("decrement stock for %s: %w", id, err)
	}

	var available int
	err = tx.QueryRow(ctx, `SELECT name, quantity FROM medicines WHERE id = $1`, id).Scan(&change.Name, &available)
	if errors.Is(err, pgx.ErrNoRows) {
		return change, false, nil
	}
	if err != nil {
		return change, false, fmt.Errorf("check stock for %s: %w", id, err)
	}
	return change, false, apperrors.InsufficientStock(change.Name, available, n)
}

// GetByID retrieves an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (_ *domain.Order, err error) {
	if uuid.Validate(id) != nil {
		return nil, apperrors.NotFound("order", id)
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetOrder", query)
	defer func() { end(err) }()

	var o domain.Order
	err = r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.Customer.Name,
		&o.Customer.Phone,
		&o.Subtotal,
		&o.Tax,
		&o.Total,
		&o.Date,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	items, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	return &o, nil
}

// List returns orders matching filter, most recent first. Items for the whole
// page are loaded with one query.
func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter) (_ []domain.Order, err error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		escaped := escapeLike(q)
		conditions = append(conditions,
			"(customer_name ILIKE "+arg("%"+escaped+"%")+" OR id::text LIKE "+arg(strings.ToLower(escaped)+"%")+")")
	}
	if filter.From != "" {
		conditions = append(conditions, "created_at >= "+arg(filter.From)+"::date")
	}
	if filter.To != "" {
		conditions = append(conditions, "created_at < "+arg(filter.To)+"::date + 1")
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	ctx, end := database.TraceQuery(ctx, "ListOrders", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var o domain.Order
		if err = rows.Scan(
			&o.ID,
			&o.Customer.Name,
			&o.Customer.Phone,
			&o.Subtotal,
			&o.Tax,
			&o.Total,
			&o.Date,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT order_id, medicine_id, name, price, quantity, total
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.MedicineID, &item.Name, &item.Price, &item.Quantity, &item.Total); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}
	return items, nil
}

// CountRefunded counts orders whose total is not positive.
func (r *OrderRepository) CountRefunded(ctx context.Context) (n int, err error) {
	query := `SELECT COUNT(*) FROM orders WHERE total <= 0`

	ctx, end := database.TraceQuery(ctx, "CountRefundedOrders", query)
	defer func() { end(err) }()

	if err = r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count refunded orders: %w", err)
	}
	return n, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
