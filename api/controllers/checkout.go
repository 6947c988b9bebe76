package controllers

import (
	"context"
	"net/http"

	"github.com/posdesk/posd/api/responses"
	"github.com/posdesk/posd/api/validators"
	checkoutsvc "github.com/posdesk/posd/internal/checkout"
	pkgerrors "github.com/posdesk/posd/pkg/errors"
	"github.com/posdesk/posd/pkg/logger"
)

// CheckoutService commits a sale and remembers it.
type CheckoutService interface {
	Submit(ctx context.Context, req checkoutsvc.Request) (*checkoutsvc.Order, error)
	LastOrder() *checkoutsvc.Order
}

func CheckoutSubmit(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutsvc.Request
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Submit(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"success":        true,
			"order_id":       order.OrderID,
			"total":          order.Totals.Total,
			"change":         order.Totals.Change,
			"payment_method": order.PaymentMethod,
			"print_size":     order.PrintSize,
		})
	}
}
