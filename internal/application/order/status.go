package order

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseOrderStatus = "order.update_status"

// UpdateStatusUseCase is the internal transition used by payment
// reconciliation. Cancelling goes through CancelOrderUseCase, which also
// restores stock.
type UpdateStatusUseCase struct {
	repo      domain.Repository
	publisher domoutbox.Publisher
	ins       application.Instruments
}

func NewUpdateStatusUseCase(repo domain.Repository, publisher domoutbox.Publisher, tel observability.Observability) *UpdateStatusUseCase {
	return &UpdateStatusUseCase{
		repo:      repo,
		publisher: publisher,
		ins:       application.NewInstruments(tel, orderService),
	}
}

type UpdateStatusInput struct {
	OrderID string
	Status  domain.Status
}

type UpdateStatusResult struct {
	// Found is false when no order has the id; nothing happened then.
	Found   bool
	Changed bool
	Status  domain.Status
}

// Execute applies the transition. A missing order is not an error. A
// transition the lifecycle forbids returns ErrInvalidStateTransition and
// leaves the order as it was.
func (uc *UpdateStatusUseCase) Execute(ctx context.Context, cmd UpdateStatusInput) (_ *UpdateStatusResult, err error) {
	ctx, run := uc.ins.Begin(ctx, useCaseOrderStatus, "UpdateOrderStatus",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.target_status", string(cmd.Status)),
	)
	defer func() { run.End(err) }()

	if cmd.OrderID == "" {
		run.Fail("ORDER_ID_REQUIRED")
		return nil, application.NewValidation("order id is required")
	}
	if !cmd.Status.Valid() {
		run.Fail("STATUS_INVALID")
		return nil, application.NewValidation("unknown order status " + string(cmd.Status))
	}
	if cmd.Status == domain.StatusCancelled {
		run.Fail("CANCEL_NOT_ALLOWED")
		return nil, application.NewValidation("use cancel to cancel an order")
	}

	for attempt := 1; ; attempt++ {
		entity, gerr := uc.repo.Get(ctx, cmd.OrderID)
		if errors.Is(gerr, domain.ErrNotFound) {
			run.Status("ORDER_NOT_FOUND")
			return &UpdateStatusResult{}, nil
		}
		if gerr != nil {
			run.Fail("ORDER_LOOKUP_FAILED")
			return nil, application.WrapRepository(gerr)
		}

		from := entity.Status
		changed, terr := entity.TransitionTo(cmd.Status)
		if terr != nil {
			run.Fail("INVALID_TRANSITION")
			return &UpdateStatusResult{Found: true, Status: from}, terr
		}
		if !changed {
			run.Status("UNCHANGED")
			return &UpdateStatusResult{Found: true, Status: from}, nil
		}

		err = uc.repo.CompareAndSetStatus(ctx, entity.ID, from, entity.Status)
		if err == nil {
			if entity.Status == domain.StatusPaid {
				_ = uc.ins.Publish(ctx, uc.publisher, domain.NewOrderPaidEvent(entity))
			}
			return &UpdateStatusResult{Found: true, Changed: true, Status: entity.Status}, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= maxStatusAttempts {
			run.Fail("STATUS_UPDATE_FAILED")
			return nil, application.WrapRepository(err, domain.ErrNotFound, domain.ErrConflict)
		}
		run.Logger().Debug("order_status_conflict_retry", observability.F("attempt", attempt))
	}
}
