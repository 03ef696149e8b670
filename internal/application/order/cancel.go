package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	dominv "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseOrderCancel = "order.cancel"
	maxStatusAttempts  = 3

	MessageCancelled          = "Order cancelled successfully. Stock restored."
	MessageCancelledPaidOrder = "Order cancelled. Stock restored. Refund will be processed separately."
)

// CancelOrderUseCase cancels an order and returns its quantities to stock.
type CancelOrderUseCase struct {
	repo      domain.Repository
	stock     StockPort
	publisher domoutbox.Publisher
	ins       application.Instruments
}

func NewCancelOrderUseCase(
	repo domain.Repository,
	stock StockPort,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *CancelOrderUseCase {
	return &CancelOrderUseCase{
		repo:      repo,
		stock:     stock,
		publisher: publisher,
		ins:       application.NewInstruments(tel, orderService),
	}
}

type CancelOrderInput struct {
	// UserID restricts the cancel to the order's owner. Empty skips the check.
	UserID  string
	OrderID string
}

type CancelOrderResult struct {
	OrderID        string
	Status         domain.Status
	PriorStatus    domain.Status
	RefundRequired bool
	Message        string
}

// Execute moves the order to CANCELLED with a compare-and-set so that of two
// racing cancels only one restores stock. The stock credit is all or nothing;
// if it fails the status is put back.
func (uc *CancelOrderUseCase) Execute(ctx context.Context, cmd CancelOrderInput) (_ *CancelOrderResult, err error) {
	ctx, run := uc.ins.Begin(ctx, useCaseOrderCancel, "CancelOrder",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { run.End(err) }()

	if cmd.OrderID == "" {
		run.Fail("ORDER_ID_REQUIRED")
		return nil, application.NewValidation("order id is required")
	}

	var (
		entity *domain.Order
		prior  domain.Status
	)
	for attempt := 1; ; attempt++ {
		entity, err = uc.repo.Get(ctx, cmd.OrderID)
		if err != nil {
			run.Fail("ORDER_LOOKUP_FAILED")
			return nil, application.WrapRepository(err, domain.ErrNotFound)
		}
		if cmd.UserID != "" && !entity.OwnedBy(cmd.UserID) {
			run.Fail("ORDER_NOT_OWNED")
			return nil, ErrNotFound
		}

		prior, err = entity.Cancel()
		if err != nil {
			run.Fail("ALREADY_CANCELLED")
			return nil, err
		}

		err = uc.repo.CompareAndSetStatus(ctx, entity.ID, prior, domain.StatusCancelled)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= maxStatusAttempts {
			run.Fail("STATUS_UPDATE_FAILED")
			return nil, application.WrapRepository(err, domain.ErrNotFound, domain.ErrConflict)
		}
		run.Logger().Debug("order_status_conflict_retry", observability.F("attempt", attempt))
	}

	restock := entity.Restock()
	credits := make([]dominv.Adjustment, 0, len(restock))
	for _, l := range entity.Lines {
		if qty, ok := restock[l.ProductID]; ok {
			credits = append(credits, dominv.Adjustment{ProductID: l.ProductID, Delta: qty})
			delete(restock, l.ProductID)
		}
	}

	if serr := uc.stock.Apply(ctx, credits); serr != nil {
		run.Fail("STOCK_RESTORE_FAILED")
		rctx := context.WithoutCancel(ctx)
		if rerr := uc.repo.CompareAndSetStatus(rctx, entity.ID, domain.StatusCancelled, prior); rerr != nil {
			run.Logger().Error("order_cancel_revert_failed",
				observability.F("order_id", entity.ID),
				observability.F("prior_status", string(prior)),
				observability.F("error", rerr.Error()),
			)
			return nil, errors.Join(fmt.Errorf("order: restore stock: %w", serr), rerr)
		}
		return nil, fmt.Errorf("order: restore stock: %w", serr)
	}

	message := MessageCancelled
	refund := prior == domain.StatusPaid
	if refund {
		message = MessageCancelledPaidOrder
		run.Logger().Warn("order_cancelled_after_payment",
			observability.F("order_id", entity.ID),
			observability.F("total_amount", entity.TotalAmount.StringFixed(2)),
		)
	}

	_ = uc.ins.Publish(ctx, uc.publisher, domain.NewOrderCancelledEvent(entity, prior))

	run.With(
		observability.F("order_id", entity.ID),
		observability.F("prior_status", string(prior)),
	)
	return &CancelOrderResult{
		OrderID:        entity.ID,
		Status:         domain.StatusCancelled,
		PriorStatus:    prior,
		RefundRequired: refund,
		Message:        message,
	}, nil
}
