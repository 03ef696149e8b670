package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseFetchRemote = "payment.fetch_remote"

// FetchRemoteUseCase reads the gateway's view of an order, for support and
// for checking a payment by hand when a webhook went missing.
type FetchRemoteUseCase struct {
	orders   domorder.Repository
	payments domain.Repository
	gateway  domain.Gateway
	ins      application.Instruments
}

func NewFetchRemoteUseCase(
	orders domorder.Repository,
	payments domain.Repository,
	gateway domain.Gateway,
	tel observability.Observability,
) *FetchRemoteUseCase {
	return &FetchRemoteUseCase{
		orders:   orders,
		payments: payments,
		gateway:  gateway,
		ins:      application.NewInstruments(tel, paymentService),
	}
}

type FetchRemoteInput struct {
	// UserID, when set, must own the order the payment belongs to.
	UserID           string
	ExternalOrderRef string
}

type FetchRemoteResult struct {
	Local  *domain.Payment
	Remote domain.RemoteOrder
}

// Execute looks the reference up locally first, so only references this
// service issued reach the gateway. A payment on someone else's order is
// reported as not found.
func (uc *FetchRemoteUseCase) Execute(ctx context.Context, cmd FetchRemoteInput) (_ *FetchRemoteResult, err error) {
	externalOrderRef := cmd.ExternalOrderRef
	ctx, run := uc.ins.Begin(ctx, useCaseFetchRemote, "FetchRemoteOrder",
		attribute.String("payment.external_order_ref", externalOrderRef),
	)
	defer func() { run.End(err) }()

	if externalOrderRef == "" {
		run.Fail("ORDER_REF_REQUIRED")
		return nil, application.NewValidation("external order reference is required")
	}
	local, err := uc.payments.FindByExternalOrderRef(ctx, externalOrderRef)
	if err != nil {
		run.Fail("PAYMENT_LOOKUP_FAILED")
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, application.WrapRepository(err)
	}
	if cmd.UserID != "" {
		o, oerr := uc.orders.Get(ctx, local.OrderID)
		switch {
		case errors.Is(oerr, domorder.ErrNotFound) || (oerr == nil && !o.OwnedBy(cmd.UserID)):
			run.Fail("ORDER_NOT_OWNED")
			return nil, ErrNotFound
		case oerr != nil:
			run.Fail("ORDER_LOOKUP_FAILED")
			return nil, application.WrapRepository(oerr)
		}
	}

	done := uc.ins.External(gatewayPeer, gatewayFetchOrder)
	remote, err := uc.gateway.FetchOrder(ctx, externalOrderRef)
	done(err)
	if err != nil {
		run.Fail("GATEWAY_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return &FetchRemoteResult{Local: local, Remote: remote}, nil
}
