package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/avaldezco/sazonpos-backend/api/middleware"
	"github.com/avaldezco/sazonpos-backend/api/responses"
	"github.com/avaldezco/sazonpos-backend/api/validators"
	cartsvc "github.com/avaldezco/sazonpos-backend/internal/cart"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/avaldezco/sazonpos-backend/pkg/logger"
)

type cartItemRequest struct {
	ProductID string              `json:"product_id" validate:"required"`
	Name      string              `json:"name" validate:"required"`
	BasePrice decimal.Decimal     `json:"base_price" validate:"required"`
	Size      *cartSizePayload    `json:"size,omitempty"`
	AddOns    []cartOptionPayload `json:"add_ons,omitempty"`
	Note      string              `json:"note"`
	Quantity  int                 `json:"quantity" validate:"required,min=1"`
}

type cartSizePayload struct {
	ID        string          `json:"id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Surcharge decimal.Decimal `json:"surcharge"`
}

type cartOptionPayload struct {
	ID        string          `json:"id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Surcharge decimal.Decimal `json:"surcharge"`
}

// An explicit zero quantity is valid and removes the line, so the field
// carries no required rule.
type cartQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

type cartStateResponse struct {
	Items      []cartsvc.LineItem       `json:"items"`
	Totals     cartsvc.Totals           `json:"totals"`
	Validation cartsvc.ValidationResult `json:"validation"`
}

func (r cartItemRequest) toInput() cartsvc.AddInput {
	input := cartsvc.AddInput{
		ProductID: r.ProductID,
		Name:      r.Name,
		BasePrice: r.BasePrice,
		Note:      r.Note,
		Quantity:  r.Quantity,
	}
	if r.Size != nil {
		input.Size = &cartsvc.SizeSelection{
			ID:        r.Size.ID,
			Name:      r.Size.Name,
			Surcharge: r.Size.Surcharge,
		}
	}
	for _, addOn := range r.AddOns {
		input.AddOns = append(input.AddOns, cartsvc.OptionSelection{
			ID:        addOn.ID,
			Name:      addOn.Name,
			Surcharge: addOn.Surcharge,
		})
	}
	return input
}

func terminalEngine(r *http.Request, sessions *cartsvc.Sessions) (*cartsvc.Engine, error) {
	terminalID := middleware.TerminalIDFromContext(r.Context())
	if terminalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "terminal context missing")
	}
	return sessions.Engine(terminalID)
}

func cartState(engine *cartsvc.Engine) cartStateResponse {
	return cartStateResponse{
		Items:      engine.Items(),
		Totals:     engine.Totals(),
		Validation: engine.Validate(),
	}
}

// CartFetch returns the terminal's in-progress cart with live totals.
func CartFetch(sessions *cartsvc.Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := terminalEngine(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartState(engine))
	}
}

// CartAddItem appends a configured product to the terminal's cart.
func CartAddItem(sessions *cartsvc.Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := terminalEngine(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		engine.Add(payload.toInput())
		responses.WriteSuccessStatus(w, http.StatusCreated, cartState(engine))
	}
}

// CartUpdateQuantity sets the quantity of one line. Zero removes the line.
func CartUpdateQuantity(sessions *cartsvc.Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := terminalEngine(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartItemID := chi.URLParam(r, "cartItemId")
		if cartItemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart item id required"))
			return
		}

		var payload cartQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		engine.UpdateQuantity(cartItemID, payload.Quantity)
		responses.WriteSuccess(w, cartState(engine))
	}
}

// CartReplaceItem swaps out one line's configuration wholesale while
// keeping its identity and position.
func CartReplaceItem(sessions *cartsvc.Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := terminalEngine(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartItemID := chi.URLParam(r, "cartItemId")
		if cartItemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart item id required"))
			return
		}

		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !engine.Replace(cartItemID, payload.toInput()) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found"))
			return
		}
		responses.WriteSuccess(w, cartState(engine))
	}
}

// CartRemoveItem drops one line from the terminal's cart.
func CartRemoveItem(sessions *cartsvc.Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := terminalEngine(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartItemID := chi.URLParam(r, "cartItemId")
		if cartItemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart item id required"))
			return
		}

		engine.Remove(cartItemID)
		responses.WriteSuccess(w, cartState(engine))
	}
}

// CartClear empties the terminal's cart.
func CartClear(sessions *cartsvc.Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := terminalEngine(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		engine.Clear()
		responses.WriteSuccess(w, cartState(engine))
	}
}
