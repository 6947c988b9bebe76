package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/posdesk/posd/api/responses"
	"github.com/posdesk/posd/api/validators"
	"github.com/posdesk/posd/internal/upstream"
	pkgerrors "github.com/posdesk/posd/pkg/errors"
	"github.com/posdesk/posd/pkg/logger"
)

// CartService is the reconciling cart surface the endpoints drive.
type CartService interface {
	Load(ctx context.Context) ([]upstream.CartItem, error)
	Add(ctx context.Context, productID string, quantity int) ([]upstream.CartItem, error)
	Update(ctx context.Context, productID string, quantity int) ([]upstream.CartItem, error)
	Remove(ctx context.Context, productID string) ([]upstream.CartItem, error)
	Clear(ctx context.Context) ([]upstream.CartItem, error)
	Count() int
	Subtotal() decimal.Decimal
	Offline() bool
}

type cartLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

func CartGet(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		items, err := svc.Load(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, svc, items, svc.Offline())
	}
}

func CartAdd(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartMutation(svc, logg, func(ctx context.Context, svc CartService, req cartLineRequest) ([]upstream.CartItem, error) {
		return svc.Add(ctx, req.ProductID, req.Quantity)
	})
}

func CartUpdate(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartMutation(svc, logg, func(ctx context.Context, svc CartService, req cartLineRequest) ([]upstream.CartItem, error) {
		return svc.Update(ctx, req.ProductID, req.Quantity)
	})
}

func CartRemove(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return cartMutation(svc, logg, func(ctx context.Context, svc CartService, req cartLineRequest) ([]upstream.CartItem, error) {
		return svc.Remove(ctx, req.ProductID)
	})
}

func CartClear(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		items, err := svc.Clear(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, svc, items, false)
	}
}

func cartMutation(svc CartService, logg *logger.Logger, call func(context.Context, CartService, cartLineRequest) ([]upstream.CartItem, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		var payload cartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := call(r.Context(), svc, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, svc, items, false)
	}
}

func writeCart(w http.ResponseWriter, svc CartService, items []upstream.CartItem, offline bool) {
	if items == nil {
		items = []upstream.CartItem{}
	}
	responses.WriteSuccess(w, map[string]any{
		"success":    true,
		"cart":       items,
		"cart_count": svc.Count(),
		"subtotal":   svc.Subtotal(),
		"offline":    offline,
	})
}
