package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("payment: not found")
	ErrConflict       = errors.New("payment: concurrent modification")
	ErrAlreadyPaid    = errors.New("payment: order already paid")
	ErrGateway        = errors.New("payment: gateway request failed")
	ErrInvalidAmount  = errors.New("payment: amount must be greater than zero")
	ErrMissingRef     = errors.New("payment: gateway order reference is required")
	ErrNotReopenable  = errors.New("payment: only failed payments can be retried")
	ErrInvalidOrderID = errors.New("payment: order id is required")
)

type Status string

const (
	StatusCreated Status = "CREATED"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Payment is the local record of one gateway order. There is at most one per
// internal order.
type Payment struct {
	ID                 string
	OrderID            string
	Amount             decimal.Decimal
	Currency           string
	Status             Status
	ExternalOrderRef   string
	ExternalPaymentRef string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func New(id, orderID string, amount decimal.Decimal, currency, externalOrderRef string) (*Payment, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if externalOrderRef == "" {
		return nil, ErrMissingRef
	}
	now := time.Now().UTC()
	return &Payment{
		ID:               id,
		OrderID:          orderID,
		Amount:           amount,
		Currency:         currency,
		Status:           StatusCreated,
		ExternalOrderRef: externalOrderRef,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Succeed records a capture. It reports false when the payment had already
// succeeded, so replays do nothing.
func (p *Payment) Succeed(externalPaymentRef string) bool {
	if p.Status == StatusSuccess {
		return false
	}
	p.Status = StatusSuccess
	if externalPaymentRef != "" {
		p.ExternalPaymentRef = externalPaymentRef
	}
	p.touch()
	return true
}

// Fail records a declined attempt. A successful payment never goes back to
// FAILED; a late failure event for it is ignored.
func (p *Payment) Fail(externalPaymentRef string) bool {
	if p.Status != StatusCreated {
		return false
	}
	p.Status = StatusFailed
	if externalPaymentRef != "" {
		p.ExternalPaymentRef = externalPaymentRef
	}
	p.touch()
	return true
}

// Reopen points a failed payment at a fresh gateway order so the customer can
// try again.
func (p *Payment) Reopen(externalOrderRef string) error {
	if p.Status != StatusFailed {
		return ErrNotReopenable
	}
	if externalOrderRef == "" {
		return ErrMissingRef
	}
	p.Status = StatusCreated
	p.ExternalOrderRef = externalOrderRef
	p.ExternalPaymentRef = ""
	p.touch()
	return nil
}

func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func (p *Payment) touch() {
	p.UpdatedAt = time.Now().UTC()
}

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a major-unit amount to the gateway's smallest currency
// unit, truncating any fraction of a minor unit.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).IntPart()
}
