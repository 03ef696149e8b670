package httppresentation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	dompayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

const headerWebhookSignature = "X-Razorpay-Signature"

// Webhook outcomes besides the reconciliation outcomes.
const (
	webhookRejected   = "rejected"
	webhookMalformed  = "malformed"
	webhookFlagged    = "flagged"
	webhookError      = "error"
	webhookEventOther = "other"
)

var (
	errBadSignature = errors.New("webhook: signature mismatch")
	errNoSecret     = errors.New("webhook: no secret configured")
)

type webhookVerifier struct {
	secret []byte
}

// verify checks sig, the hex HMAC-SHA256 of body, in constant time.
func (v *webhookVerifier) verify(body []byte, sig string) error {
	if len(v.secret) == 0 {
		return errNoSecret
	}
	got, err := hex.DecodeString(strings.TrimSpace(sig))
	if err != nil || len(got) == 0 {
		return errBadSignature
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return errBadSignature
	}
	return nil
}

type webhookEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	ErrorDescription string `json:"error_description"`
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity webhookEntity `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity webhookEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func (e webhookEnvelope) input() apppayment.ReconcileInput {
	pay := e.Payload.Payment.Entity
	ref := pay.OrderID
	if ref == "" {
		ref = e.Payload.Order.Entity.ID
	}
	return apppayment.ReconcileInput{
		EventType:          e.Event,
		ExternalOrderRef:   ref,
		ExternalPaymentRef: pay.ID,
		Reason:             pay.ErrorDescription,
	}
}

// handlePaymentWebhook verifies the gateway signature over the raw body
// before anything is parsed. Any 2xx acknowledges the delivery; a 5xx makes
// the gateway retry it.
func (h *Handler) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	logger := logctx.FromOr(r.Context(), h.log)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.countWebhook("", webhookMalformed)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.webhook.verify(body, r.Header.Get(headerWebhookSignature)); err != nil {
		h.countWebhook("", webhookRejected)
		logger.Warn("webhook_rejected", observability.Err(err))
		writeError(w, http.StatusUnauthorized, errBadSignature)
		return
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Event == "" {
		h.countWebhook("", webhookMalformed)
		writeError(w, http.StatusBadRequest, errors.New("webhook: malformed payload"))
		return
	}

	in := env.input()
	logger = logger.With(
		observability.F("event", in.EventType),
		observability.F("external_order_ref", in.ExternalOrderRef),
	)

	res, err := h.svc.Reconcile.Execute(logctx.With(r.Context(), logger), in)
	switch {
	case errors.Is(err, dompayment.ErrNotFound), errors.Is(err, application.ErrValidation):
		h.countWebhook(in.EventType, webhookFlagged)
		logger.Warn("webhook_unmatched_payment", observability.Err(err))
		writeJSON(w, http.StatusOK, map[string]string{"status": webhookFlagged})
	case err != nil:
		h.countWebhook(in.EventType, webhookError)
		logger.Error("webhook_reconcile_failed", observability.Err(err))
		writeError(w, http.StatusInternalServerError, errInternal)
	default:
		h.countWebhook(in.EventType, string(res.Outcome))
		writeJSON(w, http.StatusOK, map[string]string{"status": string(res.Outcome)})
	}
}

func (h *Handler) countWebhook(event, outcome string) {
	switch event {
	case apppayment.EventPaymentCaptured, apppayment.EventPaymentAuthorized,
		apppayment.EventPaymentFailed, apppayment.EventOrderPaid:
	default:
		event = webhookEventOther
	}
	h.hooks.Add(1,
		observability.L(observability.LabelEvent, event),
		observability.L(observability.LabelOutcome, outcome),
	)
}
