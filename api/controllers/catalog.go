package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/posdesk/posd/api/responses"
	"github.com/posdesk/posd/api/validators"
	catalogsvc "github.com/posdesk/posd/internal/catalog"
	"github.com/posdesk/posd/pkg/config"
	pkgerrors "github.com/posdesk/posd/pkg/errors"
	"github.com/posdesk/posd/pkg/logger"
)

// CatalogService is the data-layer surface the catalog endpoints drive.
type CatalogService interface {
	SetFilter(query, category string) bool
	SetPageSize(size int)
	Load(ctx context.Context, opts catalogsvc.LoadOptions) error
	State() catalogsvc.Snapshot
}

// CategoryLister fetches the category facet from the origin.
type CategoryLister interface {
	Categories(ctx context.Context) (map[string]int, error)
}

// CatalogLoad drives one catalog window. A filter change or an explicit
// reset=1 starts over from offset zero; otherwise the call extends the
// loaded list by one page.
func CatalogLoad(svc CatalogService, cfg config.CatalogConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		width, err := validators.ParseQueryInt(r, "width", 0, 0, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if width > 0 {
			svc.SetPageSize(catalogsvc.PageSizeForWidth(width, cfg.MaxPageSize))
		}

		query := r.URL.Query().Get("q")
		category := r.URL.Query().Get("category")
		reset := parseBool(r.URL.Query().Get("reset"))
		silent := parseBool(r.URL.Query().Get("silent"))
		if svc.SetFilter(query, category) {
			reset = true
		}

		if err := svc.Load(r.Context(), catalogsvc.LoadOptions{Reset: reset, Silent: silent}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state := svc.State()
		responses.WriteSuccess(w, map[string]any{
			"success":  true,
			"products": state.Products,
			"cursor":   state.Cursor,
			"filter":   state.Filter,
			"offline":  state.Offline,
		})
	}
}

// CatalogCategories proxies the category facet.
func CatalogCategories(client CategoryLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upstream client unavailable"))
			return
		}
		categories, err := client.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"success": true, "categories": categories})
	}
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(raw)
	return err == nil && value
}
