package middleware

import (
	"net/http"
	"strings"

	"github.com/avaldezco/sazonpos-backend/api/responses"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/avaldezco/sazonpos-backend/pkg/logger"
)

// TerminalHeader identifies the register a request comes from. Each register
// carries exactly one in-progress cart.
const TerminalHeader = "X-Terminal-ID"

// TerminalContext extracts the register identifier from the request header
// and seeds the context with it. Routes behind it refuse requests without a
// terminal id.
func TerminalContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			terminalID := strings.TrimSpace(r.Header.Get(TerminalHeader))
			if terminalID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "terminal id header missing"))
				return
			}
			ctx := WithTerminalID(r.Context(), terminalID)
			if logg != nil {
				ctx = logg.WithTerminalID(ctx, terminalID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
