package controllers

import (
	"context"
	"net/http"

	"github.com/posdesk/posd/api/responses"
	"github.com/posdesk/posd/api/validators"
	checkoutsvc "github.com/posdesk/posd/internal/checkout"
	"github.com/posdesk/posd/internal/invoice"
	"github.com/posdesk/posd/internal/upstream"
	pkgerrors "github.com/posdesk/posd/pkg/errors"
	"github.com/posdesk/posd/pkg/logger"
)

// InvoiceRenderer turns a completed order into printable HTML.
type InvoiceRenderer interface {
	Render(order *checkoutsvc.Order) (string, error)
	CompanyInfo() map[string]any
}

// InvoiceMailer forwards an invoice for email delivery.
type InvoiceMailer interface {
	EmailInvoice(ctx context.Context, req upstream.EmailInvoiceRequest) (*upstream.StatusResponse, error)
}

// InvoiceGet renders the most recent completed order as HTML for printing.
func InvoiceGet(svc CheckoutService, renderer InvoiceRenderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || renderer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice renderer unavailable"))
			return
		}

		html, err := renderer.Render(svc.LastOrder())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}
}

type emailInvoiceRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// InvoiceEmail forwards the last completed order to the origin's mail
// delivery endpoint.
func InvoiceEmail(svc CheckoutService, renderer InvoiceRenderer, mailer InvoiceMailer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || renderer == nil || mailer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice mailer unavailable"))
			return
		}

		var payload emailInvoiceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order := svc.LastOrder()
		if order == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "No completed order to invoice"))
			return
		}

		status, err := mailer.EmailInvoice(r.Context(), upstream.EmailInvoiceRequest{
			Email:       payload.Email,
			Subject:     payload.Subject,
			Message:     payload.Message,
			OrderData:   invoice.OrderData(order),
			CompanyInfo: renderer.CompanyInfo(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"success": status.Success,
			"message": status.Message,
		})
	}
}
