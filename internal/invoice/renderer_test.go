package invoice

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/posdesk/posd/internal/checkout"
	"github.com/posdesk/posd/internal/upstream"
	"github.com/posdesk/posd/pkg/config"
)

func testCompany() config.CompanyConfig {
	return config.CompanyConfig{
		Name:    "Corner Till",
		Address: "12 Market Lane",
		City:    "Springfield",
		Phone:   "555-0101",
		Email:   "sales@cornertill.test",
		Website: "cornertill.test",
	}
}

func testOrder() *checkout.Order {
	return &checkout.Order{
		OrderID:   "ORD-20260829-ABCD1234",
		Timestamp: time.Date(2026, 8, 29, 14, 30, 5, 0, time.UTC),
		Items: []upstream.CartItem{
			{ProductID: "p-1", Name: "Espresso", Quantity: 2, UnitPrice: 2.5, TotalPrice: 5},
			{ProductID: "p-2", Name: "Croissant <fresh>", Quantity: 1, UnitPrice: 3.25, TotalPrice: 3.25},
		},
		Totals: checkout.Totals{
			Subtotal: decimal.RequireFromString("8.25"),
			Discount: decimal.RequireFromString("1.00"),
			Delivery: decimal.Zero,
			Total:    decimal.RequireFromString("7.25"),
			Change:   decimal.RequireFromString("2.75"),
		},
		PaymentMethod:  checkout.PaymentCash,
		AmountReceived: decimal.RequireFromString("10.00"),
		PrintSize:      checkout.PrintSize80mm,
		CustomerName:   "Asha",
	}
}

func TestRenderIncludesOrderDetails(t *testing.T) {
	html, err := NewRenderer(testCompany()).Render(testOrder())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"INV-20260829-ABCD1234",
		"ORD-20260829-ABCD1234",
		"2026-08-29",
		"14:30:05",
		"Corner Till",
		"Espresso",
		"$8.25",
		"-$1.00",
		"$7.25",
		"Amount Received:",
		"$2.75",
		"Asha",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("invoice missing %q", want)
		}
	}

	// Product names render escaped.
	if strings.Contains(html, "<fresh>") {
		t.Error("unescaped markup in item name")
	}
	if !strings.Contains(html, "&lt;fresh&gt;") {
		t.Error("item name not escaped")
	}
}

func TestRenderCardOmitsCashBlock(t *testing.T) {
	order := testOrder()
	order.PaymentMethod = checkout.PaymentCard
	html, err := NewRenderer(testCompany()).Render(order)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "Amount Received:") {
		t.Error("card invoice must not show cash tendering")
	}
}

func TestRenderDefaultsWalkInCustomer(t *testing.T) {
	order := testOrder()
	order.CustomerName = ""
	html, err := NewRenderer(testCompany()).Render(order)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "Walk-in Customer") {
		t.Error("anonymous sale must bill to the walk-in customer")
	}
}

func TestRenderNilOrder(t *testing.T) {
	if _, err := NewRenderer(testCompany()).Render(nil); err == nil {
		t.Fatal("nil order must error")
	}
}

func TestNumber(t *testing.T) {
	if got := Number("ORD-20260829-ABCD1234"); got != "INV-20260829-ABCD1234" {
		t.Fatalf("Number = %q", got)
	}
	if got := Number("legacy-7"); got != "INV-legacy-7" {
		t.Fatalf("Number fallback = %q", got)
	}
}

func TestOrderDataWire(t *testing.T) {
	data := OrderData(testOrder())
	if data["order_id"] != "ORD-20260829-ABCD1234" {
		t.Fatalf("order_id = %v", data["order_id"])
	}
	if data["payment_method"] != checkout.PaymentCash {
		t.Fatalf("payment_method = %v", data["payment_method"])
	}
	items, ok := data["items"].([]map[string]any)
	if !ok || len(items) != 2 {
		t.Fatalf("items = %v", data["items"])
	}
	if items[0]["name"] != "Espresso" {
		t.Fatalf("first item = %v", items[0])
	}
	if OrderData(nil) != nil {
		t.Fatal("nil order must flatten to nil")
	}
}
