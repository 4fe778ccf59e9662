package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrOrderNotFound is returned when no order matches the lookup key.
	ErrOrderNotFound = errors.New("order not found")

	// ErrSessionConflict is returned when an order already carries a
	// checkout session; a session reference is never reassigned.
	ErrSessionConflict = errors.New("order already has a checkout session")
)

const uniqueViolation = "23505"

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

const orderColumns = `id, order_number, customer_name, customer_email, customer_phone,
	items, delivery_address, delivery_instructions, subtotal, delivery_fee, total,
	status, payment_status, stripe_session_id, stripe_payment_intent_id,
	confirmed_at, created_at, updated_at`

// CreateOrder inserts a PENDING order. Totals are computed here from
// the line items so the invariant total == subtotal + delivery fee
// holds for every row that ever enters the table. Order number
// collisions (same day, same disambiguator) are retried.
func (c *Conf) CreateOrder(ctx context.Context, no NewOrder) (Order, error) {
	if len(no.Items) == 0 {
		return Order{}, fmt.Errorf("order has no items")
	}

	subtotal := no.Subtotal()
	total := subtotal + no.DeliveryFee

	itemsJSON, err := json.Marshal(no.Items)
	if err != nil {
		return Order{}, fmt.Errorf("failed to marshal items: %w", err)
	}
	addressJSON, err := json.Marshal(no.DeliveryAddress)
	if err != nil {
		return Order{}, fmt.Errorf("failed to marshal delivery address: %w", err)
	}

	query := `
		INSERT INTO orders (order_number, customer_name, customer_email, customer_phone,
			items, delivery_address, delivery_instructions, subtotal, delivery_fee, total,
			status, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING ` + orderColumns

	// A fresh disambiguator per attempt; the unique constraint on
	// order_number decides the winner.
	for attempt := 0; ; attempt++ {
		orderNumber := GenerateOrderNumber(time.Now())
		row := c.db.QueryRowContext(ctx, query,
			orderNumber, no.CustomerName, no.CustomerEmail, no.CustomerPhone,
			itemsJSON, addressJSON, no.DeliveryInstructions, subtotal, no.DeliveryFee, total,
			StatusPending, PaymentPending,
		)
		order, err := scanOrder(row)
		if err == nil {
			return order, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && attempt < 3 {
			continue
		}
		return Order{}, fmt.Errorf("failed to insert order: %w", err)
	}
}

// GetOrderByNumber fetches an order by its human-facing number.
func (c *Conf) GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	order, err := scanOrder(c.db.QueryRowContext(ctx, query, orderNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("failed to query order %s: %w", orderNumber, err)
	}
	return order, nil
}

// GetOrderBySessionID fetches the order linked to a checkout session.
func (c *Conf) GetOrderBySessionID(ctx context.Context, sessionID string) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE stripe_session_id = $1`
	order, err := scanOrder(c.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("failed to query order for session %s: %w", sessionID, err)
	}
	return order, nil
}

// AttachSession links a freshly created checkout session to an order.
// First writer wins; an order never switches to a different session.
func (c *Conf) AttachSession(ctx context.Context, orderID int64, sessionID string) error {
	query := `
		UPDATE orders
		SET stripe_session_id = $2, updated_at = NOW()
		WHERE id = $1 AND stripe_session_id = ''
	`
	res, err := c.db.ExecContext(ctx, query, orderID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to attach session to order %d: %w", orderID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSessionConflict
	}
	return nil
}

// ConfirmOrder performs the single-statement conditional transition
// PENDING -> CONFIRMED. The payment-status guard in the WHERE clause
// is the idempotency gate: a duplicate or racing delivery matches
// zero rows and reports confirmed = false, and the caller must then
// skip every side effect. confirmed_at is consequently written at
// most once per order.
func (c *Conf) ConfirmOrder(ctx context.Context, orderID int64, paymentIntentID string) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, payment_status = $3, stripe_payment_intent_id = $4,
			confirmed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND payment_status = $5
	`
	res, err := c.db.ExecContext(ctx, query, orderID, StatusConfirmed, PaymentSucceeded, paymentIntentID, PaymentPending)
	if err != nil {
		return false, fmt.Errorf("failed to confirm order %d: %w", orderID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows == 1, nil
}

// MarkPaymentFailed cancels an order whose payment failed or whose
// session expired. Only PENDING orders transition; confirmed orders
// are immutable.
func (c *Conf) MarkPaymentFailed(ctx context.Context, orderID int64) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`
	res, err := c.db.ExecContext(ctx, query, orderID, StatusCancelled, PaymentFailed, StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to cancel order %d: %w", orderID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows == 1, nil
}

// ListStalePending returns PENDING orders created before the cutoff,
// oldest first. A stuck PENDING order is the visible symptom of a
// missed webhook delivery.
func (c *Conf) ListStalePending(ctx context.Context, olderThan time.Duration) ([]Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC`

	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := c.db.QueryContext(ctx, query, StatusPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending orders: %w", err)
	}
	defer rows.Close()

	var result []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		result = append(result, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (Order, error) {
	var (
		o           Order
		itemsJSON   []byte
		addressJSON []byte
		intentID    sql.NullString
		confirmedAt sql.NullTime
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&itemsJSON, &addressJSON, &o.DeliveryInstructions, &o.Subtotal, &o.DeliveryFee, &o.Total,
		&o.Status, &o.PaymentStatus, &o.StripeSessionID, &intentID,
		&confirmedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return Order{}, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &o.DeliveryAddress); err != nil {
		return Order{}, fmt.Errorf("failed to unmarshal delivery address: %w", err)
	}
	if intentID.Valid {
		o.StripePaymentIntentID = intentID.String
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		o.ConfirmedAt = &t
	}
	return o, nil
}
