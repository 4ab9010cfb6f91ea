package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/avaldezco/sazonpos-backend/api/middleware"
	"github.com/avaldezco/sazonpos-backend/api/responses"
	"github.com/avaldezco/sazonpos-backend/api/validators"
	checkoutsvc "github.com/avaldezco/sazonpos-backend/internal/checkout"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/avaldezco/sazonpos-backend/pkg/logger"
)

type checkoutRequest struct {
	CustomerID    *uuid.UUID `json:"customer_id,omitempty"`
	TableLabel    *string    `json:"table_label,omitempty"`
	PaymentMethod string     `json:"payment_method" validate:"required"`
	CardSourceID  string     `json:"card_source_id"`
}

// Checkout turns the terminal's cart into a priced, persisted order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terminalID := middleware.TerminalIDFromContext(r.Context())
		if terminalID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "terminal context missing"))
			return
		}

		cashierID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Submit(r.Context(), checkoutsvc.SubmitInput{
			TerminalID:    terminalID,
			CashierUserID: cashierID,
			CashierRole:   middleware.RoleFromContext(r.Context()),
			CustomerID:    payload.CustomerID,
			TableLabel:    payload.TableLabel,
			PaymentMethod: payload.PaymentMethod,
			CardSourceID:  payload.CardSourceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
