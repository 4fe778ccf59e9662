package orders

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTestConf(t *testing.T) (*Conf, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	conf, err := NewConf(db)
	if err != nil {
		t.Fatalf("Failed to create orders conf: %v", err)
	}
	return conf, mock, db
}

var orderColumnNames = []string{
	"id", "order_number", "customer_name", "customer_email", "customer_phone",
	"items", "delivery_address", "delivery_instructions", "subtotal", "delivery_fee", "total",
	"status", "payment_status", "stripe_session_id", "stripe_payment_intent_id",
	"confirmed_at", "created_at", "updated_at",
}

func pendingOrderRow() *sqlmock.Rows {
	return sqlmock.NewRows(orderColumnNames).AddRow(
		1, "ORD-20251120-001", "Jun Cando", "jun@example.com", "+351920617185",
		[]byte(`[{"name":"Chicken Tikka Masala","price":1250,"quantity":2},{"name":"Garlic Naan","price":250,"quantity":2}]`),
		[]byte(`{"street":"Test Street 123","city":"Lisbon","postal_code":"1000-001","country":"Portugal"}`),
		"", 3000, 250, 3250,
		StatusPending, PaymentPending, "cs_test_123", nil,
		nil, time.Now(), time.Now(),
	)
}

func TestCreateOrderComputesTotals(t *testing.T) {
	conf, mock, db := newTestConf(t)
	defer db.Close()

	no := NewOrder{
		CustomerName:  "Jun Cando",
		CustomerEmail: "jun@example.com",
		CustomerPhone: "+351920617185",
		Items: []LineItem{
			{Name: "Chicken Tikka Masala", Price: 1250, Quantity: 2},
			{Name: "Garlic Naan", Price: 250, Quantity: 2},
		},
		DeliveryAddress: DeliveryAddress{
			Street: "Test Street 123", City: "Lisbon", PostalCode: "1000-001", Country: "Portugal",
		},
		DeliveryFee: 250,
	}

	// Subtotal 3000 + fee 250 must be inserted as total 3250.
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), "Jun Cando", "jun@example.com", "+351920617185",
			sqlmock.AnyArg(), sqlmock.AnyArg(), "", int64(3000), int64(250), int64(3250),
			StatusPending, PaymentPending).
		WillReturnRows(pendingOrderRow())

	order, err := conf.CreateOrder(context.Background(), no)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if order.Total != order.Subtotal+order.DeliveryFee {
		t.Errorf("total invariant broken: total=%d subtotal=%d fee=%d", order.Total, order.Subtotal, order.DeliveryFee)
	}
	if order.Status != StatusPending || order.PaymentStatus != PaymentPending {
		t.Errorf("new order not pending: status=%s payment=%s", order.Status, order.PaymentStatus)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	conf, _, db := newTestConf(t)
	defer db.Close()

	if _, err := conf.CreateOrder(context.Background(), NewOrder{}); err == nil {
		t.Error("expected error for order without items")
	}
}

func TestConfirmOrderFirstDelivery(t *testing.T) {
	conf, mock, db := newTestConf(t)
	defer db.Close()

	mock.ExpectExec("UPDATE orders").
		WithArgs(int64(1), StatusConfirmed, PaymentSucceeded, "pi_123", PaymentPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	confirmed, err := conf.ConfirmOrder(context.Background(), 1, "pi_123")
	if err != nil {
		t.Fatalf("ConfirmOrder() error = %v", err)
	}
	if !confirmed {
		t.Error("expected first delivery to confirm the order")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestConfirmOrderDuplicateDelivery(t *testing.T) {
	conf, mock, db := newTestConf(t)
	defer db.Close()

	// The conditional update matches zero rows when payment_status is
	// no longer PENDING.
	mock.ExpectExec("UPDATE orders").
		WithArgs(int64(1), StatusConfirmed, PaymentSucceeded, "pi_123", PaymentPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	confirmed, err := conf.ConfirmOrder(context.Background(), 1, "pi_123")
	if err != nil {
		t.Fatalf("ConfirmOrder() error = %v", err)
	}
	if confirmed {
		t.Error("expected duplicate delivery to be a no-op")
	}
}

func TestAttachSessionFirstWriterWins(t *testing.T) {
	conf, mock, db := newTestConf(t)
	defer db.Close()

	mock.ExpectExec("UPDATE orders").
		WithArgs(int64(1), "cs_test_123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders").
		WithArgs(int64(1), "cs_test_456").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := conf.AttachSession(context.Background(), 1, "cs_test_123"); err != nil {
		t.Fatalf("AttachSession() error = %v", err)
	}
	err := conf.AttachSession(context.Background(), 1, "cs_test_456")
	if !errors.Is(err, ErrSessionConflict) {
		t.Errorf("AttachSession() error = %v, want ErrSessionConflict", err)
	}
}

func TestMarkPaymentFailedOnlyPending(t *testing.T) {
	conf, mock, db := newTestConf(t)
	defer db.Close()

	mock.ExpectExec("UPDATE orders").
		WithArgs(int64(1), StatusCancelled, PaymentFailed, StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	cancelled, err := conf.MarkPaymentFailed(context.Background(), 1)
	if err != nil {
		t.Fatalf("MarkPaymentFailed() error = %v", err)
	}
	if cancelled {
		t.Error("expected confirmed order to stay untouched")
	}
}

func TestGetOrderByNumberNotFound(t *testing.T) {
	conf, mock, db := newTestConf(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE order_number").
		WithArgs("ORD-20251120-999").
		WillReturnError(sql.ErrNoRows)

	_, err := conf.GetOrderByNumber(context.Background(), "ORD-20251120-999")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("GetOrderByNumber() error = %v, want ErrOrderNotFound", err)
	}
}

func TestGetOrderBySessionIDUnmarshalsColumns(t *testing.T) {
	conf, mock, db := newTestConf(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE stripe_session_id").
		WithArgs("cs_test_123").
		WillReturnRows(pendingOrderRow())

	order, err := conf.GetOrderBySessionID(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("GetOrderBySessionID() error = %v", err)
	}
	if len(order.Items) != 2 {
		t.Errorf("expected 2 line items, got %d", len(order.Items))
	}
	if order.DeliveryAddress.City != "Lisbon" {
		t.Errorf("delivery address not unmarshalled: %+v", order.DeliveryAddress)
	}
	if order.ConfirmedAt != nil {
		t.Error("pending order must not carry a confirmation timestamp")
	}
}

func TestListStalePending(t *testing.T) {
	conf, mock, db := newTestConf(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders").
		WithArgs(StatusPending, sqlmock.AnyArg()).
		WillReturnRows(pendingOrderRow())

	stale, err := conf.ListStalePending(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("ListStalePending() error = %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("expected 1 stale order, got %d", len(stale))
	}
	if stale[0].OrderNumber != "ORD-20251120-001" {
		t.Errorf("unexpected order %s", stale[0].OrderNumber)
	}
}
