package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domcart "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	dominventory "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

var errInternal = errors.New("internal error")

func statusFor(err error) int {
	switch {
	case errors.Is(err, dominventory.ErrNotFound),
		errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, dompayment.ErrNotFound),
		errors.Is(err, domcart.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, domorder.ErrEmptyCart),
		errors.Is(err, dominventory.ErrInsufficientStock),
		errors.Is(err, dominventory.ErrInvalidQuantity),
		errors.Is(err, dominventory.ErrInvalidPrice),
		errors.Is(err, dominventory.ErrInvalidName),
		errors.Is(err, domcart.ErrInvalidQuantity),
		errors.Is(err, domorder.ErrInvalidQuantity),
		errors.Is(err, domorder.ErrInvalidAmount),
		errors.Is(err, domorder.ErrMissingProduct),
		errors.Is(err, dompayment.ErrInvalidAmount),
		errors.Is(err, dompayment.ErrInvalidOrderID),
		errors.Is(err, dompayment.ErrMissingRef):
		return http.StatusBadRequest
	case errors.Is(err, domorder.ErrInvalidStateTransition),
		errors.Is(err, domorder.ErrAlreadyCancelled),
		errors.Is(err, domorder.ErrConflict),
		errors.Is(err, dompayment.ErrAlreadyPaid),
		errors.Is(err, dompayment.ErrNotReopenable),
		errors.Is(err, dompayment.ErrConflict),
		errors.Is(err, dominventory.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, dompayment.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps err to a status. Server faults are logged and
// answered without detail.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logctx.FromOr(r.Context(), h.log).Error("request_failed",
			observability.F("status", status),
			observability.Err(err),
		)
		if status == http.StatusInternalServerError {
			err = errInternal
		}
	}
	writeError(w, status, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return application.NewValidation("malformed request body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
