package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"order-service/internal/payments"

	"github.com/DATA-DOG/go-sqlmock"
)

func checkoutBody() []byte {
	body, _ := json.Marshal(map[string]any{
		"customer_name":  "Jun Cando",
		"customer_email": "jun@example.com",
		"customer_phone": "+351920617185",
		"items": []map[string]any{
			{"name": "Chicken Tikka Masala", "price": 1250, "quantity": 2, "customization": map[string]any{"spiceLevel": 3}},
			{"name": "Garlic Naan", "price": 250, "quantity": 2},
		},
		"delivery_address": map[string]any{
			"street":      "Test Street 123",
			"apartment":   "Apt 4B",
			"city":        "Lisbon",
			"postal_code": "1000-001",
			"country":     "Portugal",
		},
		"delivery_instructions": "Ring the bell twice",
	})
	return body
}

func postCheckout(fx *webhookFixture, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/orders/checkout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func TestCheckoutCreatesOrderAndSession(t *testing.T) {
	fx := setupWebhookTest(t)
	defer fx.db.Close()

	fx.gateway.session = payments.Session{ID: "cs_test_123", URL: "https://checkout.stripe.test/cs_test_123"}

	fx.mock.ExpectQuery("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), "Jun Cando", "jun@example.com", "+351920617185",
			sqlmock.AnyArg(), sqlmock.AnyArg(), "Ring the bell twice",
			int64(3000), int64(250), int64(3250),
			"PENDING", "PENDING").
		WillReturnRows(pendingOrderRow())
	fx.mock.ExpectExec("UPDATE orders").
		WithArgs(int64(1), "cs_test_123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := postCheckout(fx, checkoutBody())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		OrderNumber        string `json:"order_number"`
		Total              int64  `json:"total"`
		CheckoutSessionURL string `json:"checkout_session_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 3250 {
		t.Errorf("total = %d, want 3250", resp.Total)
	}
	if resp.CheckoutSessionURL != "https://checkout.stripe.test/cs_test_123" {
		t.Errorf("unexpected session url %s", resp.CheckoutSessionURL)
	}

	if len(fx.gateway.created) != 1 {
		t.Fatalf("expected 1 session creation, got %d", len(fx.gateway.created))
	}
	params := fx.gateway.created[0]
	if params.OrderNumber != "ORD-20251120-001" {
		t.Errorf("session metadata order number = %s", params.OrderNumber)
	}
	if params.DeliveryFee != 250 || len(params.Items) != 2 {
		t.Errorf("session params missing items or fee: %+v", params)
	}
	if err := fx.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCheckoutRejectsInvalidPayload(t *testing.T) {
	fx := setupWebhookTest(t)
	defer fx.db.Close()

	body, _ := json.Marshal(map[string]any{
		"customer_name": "Jun Cando",
		// Missing email, phone, items, address.
	})
	w := postCheckout(fx, body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(fx.gateway.created) != 0 {
		t.Error("invalid payload must not reach the gateway")
	}
}

func TestCheckoutRejectsZeroQuantity(t *testing.T) {
	fx := setupWebhookTest(t)
	defer fx.db.Close()

	body, _ := json.Marshal(map[string]any{
		"customer_name":  "Jun Cando",
		"customer_email": "jun@example.com",
		"customer_phone": "+351920617185",
		"items": []map[string]any{
			{"name": "Garlic Naan", "price": 250, "quantity": 0},
		},
		"delivery_address": map[string]any{
			"street": "Test Street 123", "city": "Lisbon", "postal_code": "1000-001", "country": "Portugal",
		},
	})
	w := postCheckout(fx, body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCheckoutGatewayFailure(t *testing.T) {
	fx := setupWebhookTest(t)
	defer fx.db.Close()

	fx.gateway.createErr = errors.New("stripe unavailable")

	fx.mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(pendingOrderRow())

	w := postCheckout(fx, checkoutBody())
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestOrderStatusEndpoint(t *testing.T) {
	fx := setupWebhookTest(t)
	defer fx.db.Close()

	fx.mock.ExpectQuery("SELECT (.+) FROM orders WHERE order_number").
		WithArgs("ORD-20251120-001").
		WillReturnRows(pendingOrderRow())

	req := httptest.NewRequest(http.MethodGet, "/orders/status/ORD-20251120-001", nil)
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp struct {
		Status        string `json:"status"`
		PaymentStatus string `json:"payment_status"`
		Total         int64  `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "PENDING" || resp.PaymentStatus != "PENDING" || resp.Total != 3250 {
		t.Errorf("unexpected status payload: %+v", resp)
	}
}
