package payment

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseReconcile     = "payment.reconcile"
	maxReconcileAttempts = 3
)

// Gateway event types this service acts on. Anything else is acknowledged
// and ignored.
const (
	EventPaymentCaptured   = "payment.captured"
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentFailed     = "payment.failed"
	EventOrderPaid         = "order.paid"
)

// Outcome says what a reconciliation did.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeUnmatched Outcome = "unmatched"
)

// OrderStatusUpdater is the internal order transition.
type OrderStatusUpdater = application.UseCase[apporder.UpdateStatusInput, *apporder.UpdateStatusResult]

// ReconcileUseCase applies verified gateway notifications. Deliveries may
// repeat and arrive in any order; applying one twice has the effect of
// applying it once.
type ReconcileUseCase struct {
	payments  domain.Repository
	orders    OrderStatusUpdater
	publisher domoutbox.Publisher
	ins       application.Instruments
}

func NewReconcileUseCase(
	payments domain.Repository,
	orders OrderStatusUpdater,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *ReconcileUseCase {
	return &ReconcileUseCase{
		payments:  payments,
		orders:    orders,
		publisher: publisher,
		ins:       application.NewInstruments(tel, paymentService),
	}
}

type ReconcileInput struct {
	EventType          string
	ExternalOrderRef   string
	ExternalPaymentRef string
	Reason             string
}

type ReconcileResult struct {
	Outcome   Outcome
	PaymentID string
	OrderID   string
}

// Execute handles one gateway event.
//
// A success event with no matching payment returns ErrNotFound together with
// OutcomeUnmatched; the caller acknowledges it and flags it for review.
func (uc *ReconcileUseCase) Execute(ctx context.Context, cmd ReconcileInput) (_ *ReconcileResult, err error) {
	ctx, run := uc.ins.Begin(ctx, useCaseReconcile, "ReconcilePayment",
		attribute.String("payment.event", cmd.EventType),
		attribute.String("payment.external_order_ref", cmd.ExternalOrderRef),
	)
	defer func() { run.End(err) }()

	switch cmd.EventType {
	case EventPaymentCaptured, EventPaymentAuthorized, EventOrderPaid:
		return uc.succeed(ctx, run, cmd)
	case EventPaymentFailed:
		return uc.fail(ctx, run, cmd)
	default:
		run.Status("EVENT_IGNORED")
		return &ReconcileResult{Outcome: OutcomeIgnored}, nil
	}
}

func (uc *ReconcileUseCase) succeed(ctx context.Context, run *application.Run, cmd ReconcileInput) (*ReconcileResult, error) {
	if cmd.ExternalOrderRef == "" {
		run.Fail("ORDER_REF_REQUIRED")
		return nil, application.NewValidation("external order reference is required")
	}

	var (
		p       *domain.Payment
		changed bool
	)
	for attempt := 1; ; attempt++ {
		var err error
		p, err = uc.payments.FindByExternalOrderRef(ctx, cmd.ExternalOrderRef)
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("PAYMENT_UNMATCHED")
			return &ReconcileResult{Outcome: OutcomeUnmatched}, ErrNotFound
		}
		if err != nil {
			run.Fail("PAYMENT_LOOKUP_FAILED")
			return nil, application.WrapRepository(err)
		}

		from := p.Status
		changed = p.Succeed(cmd.ExternalPaymentRef)
		if !changed {
			break
		}
		err = uc.payments.UpdateIf(ctx, p, from)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= maxReconcileAttempts {
			run.Fail("PAYMENT_UPDATE_FAILED")
			return nil, application.WrapRepository(err, domain.ErrConflict)
		}
	}

	res := &ReconcileResult{Outcome: OutcomeApplied, PaymentID: p.ID, OrderID: p.OrderID}
	if !changed {
		res.Outcome = OutcomeDuplicate
		run.Status("DUPLICATE")
	}

	// Always drive the order: a replay repairs an order left behind by a
	// crash between the two writes.
	upd, err := uc.orders.Execute(ctx, apporder.UpdateStatusInput{OrderID: p.OrderID, Status: domorder.StatusPaid})
	if upd == nil {
		upd = &apporder.UpdateStatusResult{}
	}
	switch {
	case errors.Is(err, domorder.ErrInvalidStateTransition):
		run.Status("ORDER_NOT_PAYABLE")
		run.Logger().Warn("payment_captured_for_closed_order",
			observability.F("order_id", p.OrderID),
			observability.F("payment_id", p.ID),
			observability.F("order_status", string(upd.Status)),
			observability.F("amount", p.Amount.StringFixed(2)),
		)
	case err != nil:
		// The payment is recorded; a redelivery will finish the order.
		run.Fail("ORDER_UPDATE_FAILED")
		return nil, err
	case !upd.Found:
		run.Logger().Warn("payment_order_missing",
			observability.F("order_id", p.OrderID),
			observability.F("payment_id", p.ID),
		)
	}

	if changed {
		_ = uc.ins.Publish(ctx, uc.publisher, domain.NewPaymentSucceededEvent(p))
	}
	run.With(
		observability.F("payment_id", p.ID),
		observability.F("order_id", p.OrderID),
		observability.F("reconcile_outcome", string(res.Outcome)),
	)
	return res, nil
}

func (uc *ReconcileUseCase) fail(ctx context.Context, run *application.Run, cmd ReconcileInput) (*ReconcileResult, error) {
	if cmd.ExternalOrderRef == "" {
		run.Status("ORDER_REF_MISSING")
		return &ReconcileResult{Outcome: OutcomeIgnored}, nil
	}

	for attempt := 1; ; attempt++ {
		p, err := uc.payments.FindByExternalOrderRef(ctx, cmd.ExternalOrderRef)
		if errors.Is(err, domain.ErrNotFound) {
			run.Status("PAYMENT_UNMATCHED")
			return &ReconcileResult{Outcome: OutcomeIgnored}, nil
		}
		if err != nil {
			run.Fail("PAYMENT_LOOKUP_FAILED")
			return nil, application.WrapRepository(err)
		}

		from := p.Status
		if !p.Fail(cmd.ExternalPaymentRef) {
			outcome := OutcomeDuplicate
			if from == domain.StatusSuccess {
				// A late failure for a captured payment.
				outcome = OutcomeIgnored
			}
			run.Status("UNCHANGED")
			return &ReconcileResult{Outcome: outcome, PaymentID: p.ID, OrderID: p.OrderID}, nil
		}
		err = uc.payments.UpdateIf(ctx, p, from)
		if err == nil {
			_ = uc.ins.Publish(ctx, uc.publisher, domain.NewPaymentFailedEvent(p, cmd.Reason))
			return &ReconcileResult{Outcome: OutcomeApplied, PaymentID: p.ID, OrderID: p.OrderID}, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= maxReconcileAttempts {
			run.Fail("PAYMENT_UPDATE_FAILED")
			return nil, application.WrapRepository(err, domain.ErrConflict)
		}
	}
}
