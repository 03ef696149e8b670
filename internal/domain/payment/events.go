package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventSucceeded = "payment.succeeded"
	EventFailed    = "payment.failed"
)

type PaymentSucceededEvent struct {
	PaymentID          string          `json:"payment_id"`
	OrderID            string          `json:"order_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	ExternalPaymentRef string          `json:"external_payment_ref"`
	OccurredAt         time.Time       `json:"occurred_at"`
}

func (PaymentSucceededEvent) EventName() string  { return EventSucceeded }
func (e PaymentSucceededEvent) EventKey() string { return e.OrderID }

func NewPaymentSucceededEvent(p *Payment) PaymentSucceededEvent {
	return PaymentSucceededEvent{
		PaymentID:          p.ID,
		OrderID:            p.OrderID,
		Amount:             p.Amount,
		Currency:           p.Currency,
		ExternalPaymentRef: p.ExternalPaymentRef,
		OccurredAt:         time.Now().UTC(),
	}
}

type PaymentFailedEvent struct {
	PaymentID          string    `json:"payment_id"`
	OrderID            string    `json:"order_id"`
	ExternalPaymentRef string    `json:"external_payment_ref"`
	Reason             string    `json:"reason,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

func (PaymentFailedEvent) EventName() string  { return EventFailed }
func (e PaymentFailedEvent) EventKey() string { return e.OrderID }

func NewPaymentFailedEvent(p *Payment, reason string) PaymentFailedEvent {
	return PaymentFailedEvent{
		PaymentID:          p.ID,
		OrderID:            p.OrderID,
		ExternalPaymentRef: p.ExternalPaymentRef,
		Reason:             reason,
		OccurredAt:         time.Now().UTC(),
	}
}
