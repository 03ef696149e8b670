package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

const (
	paymentService        = "payment-service"
	useCaseCreateIntent   = "payment.create_intent"
	gatewayPeer           = "payment_gateway"
	gatewayCreateOrder    = "create_order"
	gatewayFetchOrder     = "fetch_order"
	defaultCurrency       = "INR"
	defaultGatewayTimeout = 10 * time.Second
	receiptPrefix         = "order_"
	maxReceiptLen         = 40
)

var (
	ErrNotFound    = domain.ErrNotFound
	ErrAlreadyPaid = domain.ErrAlreadyPaid
	ErrGateway     = domain.ErrGateway
)

// CreateIntentUseCase opens (or returns) the gateway order a customer pays
// against. Concurrent calls for one order share a single gateway request.
type CreateIntentUseCase struct {
	orders   domorder.Repository
	payments domain.Repository
	gateway  domain.Gateway
	ids      IDGenerator
	currency string
	timeout  time.Duration
	group    singleflight.Group
	ins      application.Instruments
}

type IntentOption func(*CreateIntentUseCase)

func WithCurrency(code string) IntentOption {
	return func(uc *CreateIntentUseCase) {
		if code != "" {
			uc.currency = strings.ToUpper(code)
		}
	}
}

// WithGatewayTimeout bounds each gateway call.
func WithGatewayTimeout(d time.Duration) IntentOption {
	return func(uc *CreateIntentUseCase) {
		if d > 0 {
			uc.timeout = d
		}
	}
}

func NewCreateIntentUseCase(
	orders domorder.Repository,
	payments domain.Repository,
	gateway domain.Gateway,
	ids IDGenerator,
	tel observability.Observability,
	opts ...IntentOption,
) *CreateIntentUseCase {
	uc := &CreateIntentUseCase{
		orders:   orders,
		payments: payments,
		gateway:  gateway,
		ids:      ids,
		currency: defaultCurrency,
		timeout:  defaultGatewayTimeout,
		ins:      application.NewInstruments(tel, paymentService),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type CreateIntentInput struct {
	UserID  string
	OrderID string
}

type IntentResult struct {
	PaymentID        string
	OrderID          string
	Amount           decimal.Decimal
	Currency         string
	Status           domain.Status
	ExternalOrderRef string
	// KeyID is the gateway's public key, needed by the client checkout.
	KeyID string
	// Reused is true when an existing intent was returned unchanged.
	Reused bool
}

func (uc *CreateIntentUseCase) Execute(ctx context.Context, cmd CreateIntentInput) (_ *IntentResult, err error) {
	ctx, run := uc.ins.Begin(ctx, useCaseCreateIntent, "CreatePaymentIntent",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { run.End(err) }()

	if cmd.OrderID == "" {
		run.Fail("ORDER_ID_REQUIRED")
		return nil, application.NewValidation("order id is required")
	}

	o, err := uc.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		run.Fail("ORDER_LOOKUP_FAILED")
		return nil, application.WrapRepository(err, domorder.ErrNotFound)
	}
	if cmd.UserID != "" && !o.OwnedBy(cmd.UserID) {
		run.Fail("ORDER_NOT_OWNED")
		return nil, domorder.ErrNotFound
	}

	// The shared call must not die with whichever caller happened to start
	// it; each caller still stops waiting when its own ctx ends.
	shared := context.WithoutCancel(ctx)
	ch := uc.group.DoChan(cmd.OrderID, func() (any, error) {
		return uc.open(shared, cmd.OrderID)
	})

	select {
	case <-ctx.Done():
		run.Fail("CONTEXT_CANCELED")
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			run.Fail(intentFailureStatus(res.Err))
			return nil, res.Err
		}
		out := *res.Val.(*IntentResult)
		if res.Shared {
			run.Status("SHARED")
		}
		if out.Reused {
			run.Status("IDEMPOTENT_REPLAY")
		}
		run.With(
			observability.F("payment_id", out.PaymentID),
			observability.F("external_order_ref", out.ExternalOrderRef),
		)
		return &out, nil
	}
}

func (uc *CreateIntentUseCase) open(ctx context.Context, orderID string) (*IntentResult, error) {
	o, err := uc.orders.Get(ctx, orderID)
	if err != nil {
		return nil, application.WrapRepository(err, domorder.ErrNotFound)
	}
	if o.Status != domorder.StatusCreated {
		return nil, fmt.Errorf("%w: order is %s, payment needs %s",
			domorder.ErrInvalidStateTransition, o.Status, domorder.StatusCreated)
	}

	existing, err := uc.payments.FindByOrderID(ctx, orderID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		existing = nil
	case err != nil:
		return nil, application.WrapRepository(err)
	}

	if existing != nil {
		switch existing.Status {
		case domain.StatusSuccess:
			return nil, ErrAlreadyPaid
		case domain.StatusCreated:
			return uc.result(existing, true), nil
		}
	}

	remote, err := uc.createRemote(ctx, o)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return uc.reopen(ctx, existing, remote.ID)
	}

	p, err := domain.New(uc.ids.NewID(), o.ID, o.TotalAmount, uc.currency, remote.ID)
	if err != nil {
		return nil, application.NewValidation(err.Error())
	}
	if err := uc.payments.Insert(ctx, p); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Another instance won the race; its record is authoritative.
			uc.ins.Logger(ctx).Info("payment_intent_race_lost",
				observability.F("order_id", o.ID),
				observability.F("discarded_external_order_ref", remote.ID),
			)
			return uc.loadExisting(ctx, orderID)
		}
		return nil, application.WrapRepository(err)
	}
	return uc.result(p, false), nil
}

// reopen retries a FAILED payment against a fresh gateway order.
func (uc *CreateIntentUseCase) reopen(ctx context.Context, p *domain.Payment, ref string) (*IntentResult, error) {
	if err := p.Reopen(ref); err != nil {
		return nil, err
	}
	if err := uc.payments.UpdateIf(ctx, p, domain.StatusFailed); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return uc.loadExisting(ctx, p.OrderID)
		}
		return nil, application.WrapRepository(err)
	}
	return uc.result(p, false), nil
}

func (uc *CreateIntentUseCase) loadExisting(ctx context.Context, orderID string) (*IntentResult, error) {
	p, err := uc.payments.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, application.WrapRepository(err)
	}
	if p.Status == domain.StatusSuccess {
		return nil, ErrAlreadyPaid
	}
	return uc.result(p, true), nil
}

func (uc *CreateIntentUseCase) createRemote(ctx context.Context, o *domorder.Order) (domain.RemoteOrder, error) {
	gctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	done := uc.ins.External(gatewayPeer, gatewayCreateOrder)
	remote, err := uc.gateway.CreateOrder(gctx, domain.MinorUnits(o.TotalAmount), uc.currency, Receipt(o.ID))
	if err == nil && remote.ID == "" {
		err = errors.New("gateway returned an order without id")
	}
	done(err)
	if err != nil {
		return domain.RemoteOrder{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return remote, nil
}

func (uc *CreateIntentUseCase) result(p *domain.Payment, reused bool) *IntentResult {
	return &IntentResult{
		PaymentID:        p.ID,
		OrderID:          p.OrderID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           p.Status,
		ExternalOrderRef: p.ExternalOrderRef,
		KeyID:            uc.gateway.KeyID(),
		Reused:           reused,
	}
}

// Receipt derives the gateway receipt from an order id. Hyphens are dropped
// so a UUID fits the gateway's length limit.
func Receipt(orderID string) string {
	r := receiptPrefix + strings.ReplaceAll(orderID, "-", "")
	if len(r) > maxReceiptLen {
		r = r[:maxReceiptLen]
	}
	return r
}

func intentFailureStatus(err error) string {
	switch {
	case errors.Is(err, ErrGateway):
		return "GATEWAY_FAILED"
	case errors.Is(err, ErrAlreadyPaid):
		return "ALREADY_PAID"
	case errors.Is(err, domorder.ErrInvalidStateTransition):
		return "ORDER_NOT_PAYABLE"
	case errors.Is(err, domorder.ErrNotFound):
		return "ORDER_NOT_FOUND"
	default:
		return "REPO_FAILED"
	}
}
