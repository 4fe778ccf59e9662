package orders

import (
	"fmt"
	"regexp"
	"testing"
	"time"
)

func TestNewOrderSubtotal(t *testing.T) {
	no := NewOrder{
		Items: []LineItem{
			{Name: "Chicken Tikka Masala", Price: 1250, Quantity: 2},
			{Name: "Garlic Naan", Price: 250, Quantity: 2},
		},
	}
	if got := no.Subtotal(); got != 3000 {
		t.Errorf("Subtotal() = %d, want 3000", got)
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	now := time.Date(2025, 11, 20, 10, 30, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^ORD-20251120-\d{3}$`)
	for i := 0; i < 20; i++ {
		number := GenerateOrderNumber(now)
		if !pattern.MatchString(number) {
			t.Fatalf("GenerateOrderNumber() = %q, want match for %s", number, pattern)
		}
	}
}

func TestGenerateOrderNumberUsesUTCDate(t *testing.T) {
	// 23:30 in Lisbon summer time is already the next day in UTC.
	loc := time.FixedZone("WEST", -60*60)
	now := time.Date(2025, 11, 20, 23, 30, 0, 0, loc)
	number := GenerateOrderNumber(now)
	want := fmt.Sprintf("ORD-%s-", now.UTC().Format("20060102"))
	if number[:len(want)] != want {
		t.Errorf("GenerateOrderNumber() = %q, want prefix %q", number, want)
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{3250, "€32.50"},
		{250, "€2.50"},
		{5, "€0.05"},
		{0, "€0.00"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.cents); got != tt.want {
			t.Errorf("FormatMoney(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestPaymentEventPaid(t *testing.T) {
	if !(PaymentEvent{PaymentStatus: "paid"}).Paid() {
		t.Error("expected paid event to report Paid()")
	}
	if (PaymentEvent{PaymentStatus: "unpaid"}).Paid() {
		t.Error("expected unpaid event to not report Paid()")
	}
	if (PaymentEvent{}).Paid() {
		t.Error("expected empty status to not report Paid()")
	}
}
