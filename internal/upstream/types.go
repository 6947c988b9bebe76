package upstream

import "encoding/json"

// Product is one catalog record as served by the remote API.
type Product struct {
	ID          string  `json:"id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Description string  `json:"description"`
}

// ProductPage is one window of the lazily loaded catalog.
type ProductPage struct {
	Items   []Product
	Total   int
	HasMore bool
}

// productPageWire is the raw payload shape. Total and HasMore are pointers
// so a payload that omits them fails validation instead of silently reading
// as zero. The cursor treats both as authoritative.
type productPageWire struct {
	Items   []Product `json:"items" validate:"dive"`
	Total   *int      `json:"total" validate:"required,gte=0"`
	HasMore *bool     `json:"has_more" validate:"required"`
}

// CartItem is one server-confirmed cart line.
type CartItem struct {
	ProductID  string  `json:"product_id" validate:"required"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unit_price" validate:"gte=0"`
	Quantity   int     `json:"quantity" validate:"gt=0"`
	TotalPrice float64 `json:"total_price" validate:"gte=0"`
}

// CartResponse is the envelope returned by every cart mutation.
type CartResponse struct {
	Success bool       `json:"success"`
	Cart    []CartItem `json:"cart"`
	// HasCart distinguishes "cart field absent" from "cart emptied".
	HasCart bool   `json:"-"`
	Message string `json:"message"`
}

func (c *CartResponse) UnmarshalJSON(data []byte) error {
	var aux struct {
		Success bool        `json:"success"`
		Cart    *[]CartItem `json:"cart"`
		Message string      `json:"message"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Success = aux.Success
	c.Message = aux.Message
	if aux.Cart != nil {
		c.Cart = *aux.Cart
		c.HasCart = true
	}
	return nil
}

// CheckoutRequest carries the customer/payment fields for a sale.
type CheckoutRequest struct {
	CustomerName    string  `json:"customer_name,omitempty"`
	CustomerPhone   string  `json:"customer_phone,omitempty"`
	CustomerAddress string  `json:"customer_address,omitempty"`
	DiscountAmount  float64 `json:"discount_amount"`
	DeliveryFee     float64 `json:"delivery_fee"`
	PaymentMethod   string  `json:"payment_method"`
	AmountReceived  float64 `json:"amount_received"`
	PrintSize       string  `json:"print_size"`
}

// CheckoutResponse confirms a completed order.
type CheckoutResponse struct {
	Success bool    `json:"success"`
	OrderID string  `json:"order_id" validate:"required"`
	Total   float64 `json:"total"`
	Message string  `json:"message"`
}

// EmailInvoiceRequest forwards an order plus company snapshot for delivery.
type EmailInvoiceRequest struct {
	Email       string         `json:"email" validate:"required,email"`
	Subject     string         `json:"subject,omitempty"`
	Message     string         `json:"message,omitempty"`
	OrderData   map[string]any `json:"order_data"`
	CompanyInfo map[string]any `json:"company_info"`
}

// StatusResponse is the generic {success, message} acknowledgement.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
