// Package checkout turns the confirmed cart into a submitted sale. Money
// arithmetic runs on decimals; floats only appear at the JSON boundary.
package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/posdesk/posd/internal/upstream"
	pkgerrors "github.com/posdesk/posd/pkg/errors"
	"github.com/posdesk/posd/pkg/logger"
)

// Payment methods accepted at the till. Anything unrecognized falls back to
// cash, matching how the register treats a mumbled answer.
const (
	PaymentCash    = "Cash"
	PaymentCard    = "Card"
	PaymentDigital = "Digital"
)

// Receipt print sizes. Unknown sizes fall back to the 80mm roll.
const (
	PrintSize80mm   = "80mm"
	PrintSize100mm  = "100mm"
	PrintSizeA4     = "A4"
	PrintSizeA5     = "A5"
	PrintSizeLetter = "letter"
)

// Request carries the operator-entered checkout fields.
type Request struct {
	CustomerName    string  `json:"customer_name"`
	CustomerPhone   string  `json:"customer_phone"`
	CustomerAddress string  `json:"customer_address"`
	DiscountAmount  float64 `json:"discount_amount"`
	DeliveryFee     float64 `json:"delivery_fee"`
	PaymentMethod   string  `json:"payment_method"`
	AmountReceived  float64 `json:"amount_received"`
	PrintSize       string  `json:"print_size"`
}

// Totals is the computed money breakdown of one sale.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Delivery decimal.Decimal `json:"delivery"`
	Total    decimal.Decimal `json:"total"`
	Change   decimal.Decimal `json:"change"`
}

// Order is a completed sale, kept in memory for invoice rendering.
type Order struct {
	OrderID         string              `json:"order_id"`
	Timestamp       time.Time           `json:"timestamp"`
	Items           []upstream.CartItem `json:"items"`
	Totals          Totals              `json:"totals"`
	PaymentMethod   string              `json:"payment_method"`
	AmountReceived  decimal.Decimal     `json:"amount_received"`
	PrintSize       string              `json:"print_size"`
	CustomerName    string              `json:"customer_name,omitempty"`
	CustomerPhone   string              `json:"customer_phone,omitempty"`
	CustomerAddress string              `json:"customer_address,omitempty"`
}

// CartSource is the cart slice checkout needs.
type CartSource interface {
	Items() []upstream.CartItem
	Clear(ctx context.Context) ([]upstream.CartItem, error)
}

// Submitter is the upstream call that commits the sale.
type Submitter interface {
	Checkout(ctx context.Context, req upstream.CheckoutRequest) (*upstream.CheckoutResponse, error)
}

// Service validates and submits checkouts and remembers the last completed
// order for the invoice endpoints.
type Service struct {
	mu   sync.Mutex
	cart CartSource
	sub  Submitter
	logg *logger.Logger
	now  func() time.Time
	last *Order
}

func NewService(cart CartSource, sub Submitter, logg *logger.Logger) *Service {
	return &Service{
		cart: cart,
		sub:  sub,
		logg: logg,
		now:  time.Now,
	}
}

// NormalizePayment maps free-form payment input onto a known method.
func NormalizePayment(method string) string {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "card":
		return PaymentCard
	case "digital":
		return PaymentDigital
	default:
		return PaymentCash
	}
}

// NormalizePrintSize maps free-form size input onto a supported format.
func NormalizePrintSize(size string) string {
	switch strings.ToLower(strings.TrimSpace(size)) {
	case "100mm":
		return PrintSize100mm
	case "a4":
		return PrintSizeA4
	case "a5":
		return PrintSizeA5
	case "letter":
		return PrintSizeLetter
	default:
		return PrintSize80mm
	}
}

// ComputeTotals derives the money breakdown for the given cart lines.
// The grand total never goes below zero: an oversized discount zeroes the
// sale rather than crediting the customer.
func ComputeTotals(items []upstream.CartItem, discount, delivery, received float64) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(item.TotalPrice))
	}
	subtotal = subtotal.Round(2)

	d := decimal.NewFromFloat(discount).Round(2)
	f := decimal.NewFromFloat(delivery).Round(2)
	total := subtotal.Sub(d).Add(f)
	if total.IsNegative() {
		total = decimal.Zero
	}

	change := decimal.NewFromFloat(received).Round(2).Sub(total)
	if change.IsNegative() {
		change = decimal.Zero
	}

	return Totals{Subtotal: subtotal, Discount: d, Delivery: f, Total: total, Change: change}
}

// Submit validates the request locally, commits the sale upstream, clears
// the cart, and records the completed order.
func (s *Service) Submit(ctx context.Context, req Request) (*Order, error) {
	items := s.cart.Items()
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Cart is empty")
	}
	if req.DiscountAmount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount_amount cannot be negative")
	}
	if req.DeliveryFee < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery_fee cannot be negative")
	}
	if req.AmountReceived < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount_received cannot be negative")
	}

	payment := NormalizePayment(req.PaymentMethod)
	printSize := NormalizePrintSize(req.PrintSize)
	totals := ComputeTotals(items, req.DiscountAmount, req.DeliveryFee, req.AmountReceived)

	received := decimal.NewFromFloat(req.AmountReceived).Round(2)
	// Cash shortfalls are caught here, before anything leaves the till.
	if payment == PaymentCash && received.LessThan(totals.Total) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Insufficient amount received")
	}

	resp, err := s.sub.Checkout(ctx, upstream.CheckoutRequest{
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		CustomerAddress: strings.TrimSpace(req.CustomerAddress),
		DiscountAmount:  req.DiscountAmount,
		DeliveryFee:     req.DeliveryFee,
		PaymentMethod:   payment,
		AmountReceived:  req.AmountReceived,
		PrintSize:       printSize,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		message := resp.Message
		if message == "" {
			message = "checkout rejected"
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict, message)
	}

	order := &Order{
		OrderID:         resp.OrderID,
		Timestamp:       s.now(),
		Items:           items,
		Totals:          totals,
		PaymentMethod:   payment,
		AmountReceived:  received,
		PrintSize:       printSize,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		CustomerAddress: strings.TrimSpace(req.CustomerAddress),
	}

	s.mu.Lock()
	s.last = order
	s.mu.Unlock()

	// The sale is committed; a failed clear just leaves stale lines for the
	// next GET /api/cart to reconcile.
	if _, err := s.cart.Clear(ctx); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout.cart_clear_failed")
	}

	return order, nil
}

// LastOrder returns the most recent completed order, or nil before any sale.
func (s *Service) LastOrder() *Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
