// Package upstream is the typed client for the remote POS API. Every
// response passes a validated decode at this boundary: a payload missing
// required fields is surfaced as an upstream error here instead of
// propagating half-built entities into the data layer.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/posdesk/posd/pkg/config"
	pkgerrors "github.com/posdesk/posd/pkg/errors"
)

// Client talks to the remote catalog/cart/checkout API.
type Client struct {
	base     *url.URL
	http     *http.Client
	validate *validator.Validate
}

func NewClient(cfg config.UpstreamConfig) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream base url: %w", err)
	}
	return &Client{
		base:     base,
		http:     &http.Client{Timeout: cfg.Timeout},
		validate: newValidator(),
	}, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// BaseHost reports the upstream host, used by the proxy's same-origin check.
func (c *Client) BaseHost() string {
	return c.base.Host
}

// ListParams narrows one catalog page request.
type ListParams struct {
	Offset   int
	Limit    int
	Query    string
	Category string
}

// ListProducts fetches one catalog window.
func (c *Client) ListProducts(ctx context.Context, params ListParams) (*ProductPage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(params.Offset))
	q.Set("limit", strconv.Itoa(params.Limit))
	if trimmed := strings.TrimSpace(params.Query); trimmed != "" {
		q.Set("q", trimmed)
	}
	if params.Category != "" && params.Category != "all" {
		q.Set("category", params.Category)
	}

	var wire productPageWire
	if err := c.getJSON(ctx, "/api/products/lazy?"+q.Encode(), &wire); err != nil {
		return nil, err
	}
	return &ProductPage{
		Items:   wire.Items,
		Total:   *wire.Total,
		HasMore: *wire.HasMore,
	}, nil
}

// Categories returns category name -> product count.
func (c *Client) Categories(ctx context.Context) (map[string]int, error) {
	var out map[string]int
	if err := c.getJSON(ctx, "/api/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCart fetches the authoritative cart.
func (c *Client) GetCart(ctx context.Context) ([]CartItem, error) {
	var items []CartItem
	if err := c.getJSON(ctx, "/api/cart", &items); err != nil {
		return nil, err
	}
	for i := range items {
		if err := c.validate.Struct(&items[i]); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "cart payload failed validation")
		}
	}
	return items, nil
}

// AddToCart requests a quantity of a product be added.
func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) (*CartResponse, error) {
	return c.cartMutation(ctx, "/api/cart/add", map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	})
}

// UpdateCart sets the quantity of a line; zero removes it server-side.
func (c *Client) UpdateCart(ctx context.Context, productID string, quantity int) (*CartResponse, error) {
	return c.cartMutation(ctx, "/api/cart/update", map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	})
}

// RemoveFromCart drops a line entirely.
func (c *Client) RemoveFromCart(ctx context.Context, productID string) (*CartResponse, error) {
	return c.cartMutation(ctx, "/api/cart/remove", map[string]any{
		"product_id": productID,
	})
}

// ClearCart empties the cart.
func (c *Client) ClearCart(ctx context.Context) (*CartResponse, error) {
	return c.cartMutation(ctx, "/api/cart/clear", nil)
}

func (c *Client) cartMutation(ctx context.Context, path string, body any) (*CartResponse, error) {
	var out CartResponse
	if err := c.postJSON(ctx, path, body, &out); err != nil {
		return nil, err
	}
	for i := range out.Cart {
		if err := c.validate.Struct(&out.Cart[i]); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "cart payload failed validation")
		}
	}
	return &out, nil
}

// Checkout submits the sale.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	var out CheckoutResponse
	if err := c.postJSON(ctx, "/api/checkout", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EmailInvoice asks the upstream to deliver the invoice by mail.
func (c *Client) EmailInvoice(ctx context.Context, req EmailInvoiceRequest) (*StatusResponse, error) {
	if err := c.validate.Struct(&req); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email invoice request")
	}
	var out StatusResponse
	if err := c.postJSON(ctx, "/api/email-invoice", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks upstream reachability for the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve("/health"), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeOffline, err, "upstream unreachable")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return pkgerrors.New(pkgerrors.CodeUpstream, fmt.Sprintf("upstream health returned %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	return c.do(req, dest)
}

func (c *Client) postJSON(ctx context.Context, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request")
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeOffline, err, "upstream unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeOffline, err, "reading upstream response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decoding upstream payload")
	}
	if err := c.validateDest(dest); err != nil {
		return err
	}
	return nil
}

func (c *Client) validateDest(dest any) error {
	// Struct payloads get field validation; maps and slices are validated
	// by their callers element-wise.
	value := reflect.ValueOf(dest)
	if value.Kind() == reflect.Pointer {
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}
	if err := c.validate.Struct(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "upstream payload failed validation")
	}
	return nil
}

// statusError maps an upstream HTTP failure onto the local error taxonomy,
// surfacing the server's own message when it sent one.
func statusError(status int, body []byte) error {
	message := fmt.Sprintf("upstream returned %d", status)
	var wire StatusResponse
	if err := json.Unmarshal(body, &wire); err == nil && wire.Message != "" {
		message = wire.Message
	}

	switch status {
	case http.StatusBadRequest:
		return pkgerrors.New(pkgerrors.CodeValidation, message)
	case http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	case http.StatusConflict:
		return pkgerrors.New(pkgerrors.CodeConflict, message)
	default:
		return pkgerrors.New(pkgerrors.CodeUpstream, message).WithDetails(map[string]any{"status": status})
	}
}

func (c *Client) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.base.String() + path
	}
	return c.base.ResolveReference(ref).String()
}
