// Package invoice renders a completed order into a printable HTML invoice.
package invoice

import (
	"html/template"
	"strings"

	"github.com/posdesk/posd/internal/checkout"
	"github.com/posdesk/posd/pkg/config"
	pkgerrors "github.com/posdesk/posd/pkg/errors"
)

// Renderer holds the parsed template plus the company header fields.
type Renderer struct {
	company config.CompanyConfig
	tmpl    *template.Template
}

func NewRenderer(company config.CompanyConfig) *Renderer {
	return &Renderer{
		company: company,
		tmpl:    template.Must(template.New("invoice").Parse(invoiceTemplate)),
	}
}

// Number derives the invoice number from the order id.
func Number(orderID string) string {
	if strings.HasPrefix(orderID, "ORD-") {
		return "INV-" + strings.TrimPrefix(orderID, "ORD-")
	}
	return "INV-" + orderID
}

type itemRow struct {
	Name       string
	Quantity   int
	UnitPrice  string
	TotalPrice string
}

type invoiceData struct {
	Company config.CompanyConfig

	InvoiceNumber string
	OrderID       string
	Date          string
	Time          string

	CustomerName    string
	CustomerPhone   string
	CustomerAddress string

	Items []itemRow

	Subtotal       string
	Discount       string
	ShowDiscount   bool
	Delivery       string
	ShowDelivery   bool
	Total          string
	PaymentMethod  string
	IsCash         bool
	AmountReceived string
	Change         string
}

// Render produces the invoice HTML for a completed order.
func (r *Renderer) Render(order *checkout.Order) (string, error) {
	if order == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "No completed order to invoice")
	}

	data := invoiceData{
		Company:         r.company,
		InvoiceNumber:   Number(order.OrderID),
		OrderID:         order.OrderID,
		Date:            order.Timestamp.Format("2006-01-02"),
		Time:            order.Timestamp.Format("15:04:05"),
		CustomerName:    order.CustomerName,
		CustomerPhone:   order.CustomerPhone,
		CustomerAddress: order.CustomerAddress,
		Subtotal:        order.Totals.Subtotal.StringFixed(2),
		Discount:        order.Totals.Discount.StringFixed(2),
		ShowDiscount:    order.Totals.Discount.IsPositive(),
		Delivery:        order.Totals.Delivery.StringFixed(2),
		ShowDelivery:    order.Totals.Delivery.IsPositive(),
		Total:           order.Totals.Total.StringFixed(2),
		PaymentMethod:   order.PaymentMethod,
		IsCash:          order.PaymentMethod == checkout.PaymentCash,
		AmountReceived:  order.AmountReceived.StringFixed(2),
		Change:          order.Totals.Change.StringFixed(2),
	}
	if data.CustomerName == "" {
		data.CustomerName = "Walk-in Customer"
	}
	for _, item := range order.Items {
		data.Items = append(data.Items, itemRow{
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  money(item.UnitPrice),
			TotalPrice: money(item.TotalPrice),
		})
	}

	var out strings.Builder
	if err := r.tmpl.Execute(&out, data); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rendering invoice")
	}
	return out.String(), nil
}

// OrderData flattens an order into the wire map the email delivery endpoint
// expects.
func OrderData(order *checkout.Order) map[string]any {
	if order == nil {
		return nil
	}
	items := make([]map[string]any, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]any{
			"name":        item.Name,
			"quantity":    item.Quantity,
			"unit_price":  item.UnitPrice,
			"total_price": item.TotalPrice,
		})
	}
	return map[string]any{
		"order_id":         order.OrderID,
		"invoice_number":   Number(order.OrderID),
		"date":             order.Timestamp.Format("2006-01-02T15:04:05"),
		"items":            items,
		"subtotal":         order.Totals.Subtotal.InexactFloat64(),
		"discount_amount":  order.Totals.Discount.InexactFloat64(),
		"delivery_fee":     order.Totals.Delivery.InexactFloat64(),
		"total":            order.Totals.Total.InexactFloat64(),
		"payment_method":   order.PaymentMethod,
		"amount_received":  order.AmountReceived.InexactFloat64(),
		"change":           order.Totals.Change.InexactFloat64(),
		"customer_name":    order.CustomerName,
		"customer_phone":   order.CustomerPhone,
		"customer_address": order.CustomerAddress,
	}
}

// CompanyInfo flattens the company header for the same wire format.
func (r *Renderer) CompanyInfo() map[string]any {
	return map[string]any{
		"name":    r.company.Name,
		"address": r.company.Address,
		"city":    r.company.City,
		"phone":   r.company.Phone,
		"email":   r.company.Email,
		"website": r.company.Website,
	}
}
