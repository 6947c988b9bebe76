package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/posdesk/posd/internal/cachestore"
	catalogsvc "github.com/posdesk/posd/internal/catalog"
	checkoutsvc "github.com/posdesk/posd/internal/checkout"
	"github.com/posdesk/posd/internal/lifecycle"
	"github.com/posdesk/posd/internal/upstream"
	"github.com/posdesk/posd/pkg/config"
)

type stubUpstream struct{}

func (stubUpstream) Ping(context.Context) error { return nil }
func (stubUpstream) Categories(context.Context) (map[string]int, error) {
	return map[string]int{"drinks": 3}, nil
}
func (stubUpstream) EmailInvoice(context.Context, upstream.EmailInvoiceRequest) (*upstream.StatusResponse, error) {
	return &upstream.StatusResponse{Success: true}, nil
}

type stubCatalog struct{}

func (stubCatalog) SetFilter(string, string) bool { return false }
func (stubCatalog) SetPageSize(int) {}
func (stubCatalog) Load(context.Context, catalogsvc.LoadOptions) error { return nil }
func (stubCatalog) State() catalogsvc.Snapshot { return catalogsvc.Snapshot{} }

type stubCart struct{}

func (stubCart) Load(context.Context) ([]upstream.CartItem, error) { return nil, nil }
func (stubCart) Add(context.Context, string, int) ([]upstream.CartItem, error) {
	return nil, nil
}
func (stubCart) Update(context.Context, string, int) ([]upstream.CartItem, error) {
	return nil, nil
}
func (stubCart) Remove(context.Context, string) ([]upstream.CartItem, error) { return nil, nil }
func (stubCart) Clear(context.Context) ([]upstream.CartItem, error) { return nil, nil }
func (stubCart) Count() int { return 0 }
func (stubCart) Subtotal() decimal.Decimal { return decimal.Zero }
func (stubCart) Offline() bool { return false }

type stubCheckout struct{}

func (stubCheckout) Submit(context.Context, checkoutsvc.Request) (*checkoutsvc.Order, error) {
	return &checkoutsvc.Order{OrderID: "ORD-1"}, nil
}
func (stubCheckout) LastOrder() *checkoutsvc.Order { return nil }

type stubRenderer struct{}

func (stubRenderer) Render(*checkoutsvc.Order) (string, error) { return "<html></html>", nil }
func (stubRenderer) CompanyInfo() map[string]any { return nil }

type stubManager struct{}

func (stubManager) State() lifecycle.State { return lifecycle.StateActive }
func (stubManager) Names() cachestore.Names { return cachestore.NamesFor("v1") }
func (stubManager) SkipWaiting(context.Context) error { return nil }

func newTestRouter(proxy http.Handler) http.Handler {
	return NewRouter(Deps{
		Config: &config.Config{
			App:     config.AppConfig{Env: "dev"},
			Catalog: config.CatalogConfig{DefaultPageSize: 8, MaxPageSize: 48},
		},
		Upstream:  stubUpstream{},
		Catalog:   stubCatalog{},
		Cart:      stubCart{},
		Checkout:  stubCheckout{},
		Invoices:  stubRenderer{},
		Lifecycle: stubManager{},
		Proxy:     proxy,
		Registry:  prometheus.NewRegistry(),
	})
}

func TestRouterMountsLocalAPI(t *testing.T) {
	router := newTestRouter(nil)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health/live"},
		{http.MethodGet, "/health/ready"},
		{http.MethodGet, "/metrics"},
		{http.MethodGet, "/pos/v1/products"},
		{http.MethodGet, "/pos/v1/categories"},
		{http.MethodGet, "/pos/v1/cart"},
		{http.MethodGet, "/pos/v1/update"},
	}
	for _, tc := range paths {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s %s = %d, want 200", tc.method, tc.path, rec.Code)
		}
	}
}

func TestRouterSetsRequestID(t *testing.T) {
	router := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id header missing")
	}
}

func TestRouterUnclaimedPathsHitProxy(t *testing.T) {
	proxy := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "proxied "+r.URL.Path)
	})
	router := newTestRouter(proxy)

	for _, path := range []string{"/", "/static/js/pos.js", "/api/products/lazy", "/offline"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if !strings.HasPrefix(rec.Body.String(), "proxied ") {
			t.Errorf("%s not dispatched to proxy: %s", path, rec.Body.String())
		}
	}
}
