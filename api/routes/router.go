package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/posdesk/posd/api/controllers"
	"github.com/posdesk/posd/api/middleware"
	"github.com/posdesk/posd/pkg/config"
	"github.com/posdesk/posd/pkg/logger"
)

// Deps carries everything the router mounts. The proxy handler is last in
// the chain: any path the local API does not claim is treated as an
// intercepted page, asset, or origin API request.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Upstream interface {
		controllers.Pinger
		controllers.CategoryLister
		controllers.InvoiceMailer
	}
	Catalog   controllers.CatalogService
	Cart      controllers.CartService
	Checkout  controllers.CheckoutService
	Invoices  controllers.InvoiceRenderer
	Lifecycle controllers.UpdateManager
	Proxy     http.Handler
	Registry  *prometheus.Registry
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(d.Logger),
		middleware.RequestID(d.Logger),
		middleware.Logging(d.Logger),
		middleware.CORS(d.Config.App.UIOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(d.Config))
		r.Get("/ready", controllers.HealthReady(d.Config, d.Logger, d.Upstream))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/pos/v1", func(r chi.Router) {
		r.Get("/products", controllers.CatalogLoad(d.Catalog, d.Config.Catalog, d.Logger))
		r.Get("/categories", controllers.CatalogCategories(d.Upstream, d.Logger))

		r.Get("/cart", controllers.CartGet(d.Cart, d.Logger))
		r.Post("/cart/add", controllers.CartAdd(d.Cart, d.Logger))
		r.Post("/cart/update", controllers.CartUpdate(d.Cart, d.Logger))
		r.Post("/cart/remove", controllers.CartRemove(d.Cart, d.Logger))
		r.Post("/cart/clear", controllers.CartClear(d.Cart, d.Logger))

		r.Post("/checkout", controllers.CheckoutSubmit(d.Checkout, d.Logger))
		r.Get("/invoice", controllers.InvoiceGet(d.Checkout, d.Invoices, d.Logger))
		r.Post("/email-invoice", controllers.InvoiceEmail(d.Checkout, d.Invoices, d.Upstream, d.Logger))

		r.Get("/update", controllers.UpdateStatus(d.Lifecycle, d.Logger))
		r.Post("/update", controllers.UpdateApply(d.Lifecycle, d.Logger))
	})

	if d.Proxy != nil {
		r.Handle("/*", d.Proxy)
	}

	return r
}
