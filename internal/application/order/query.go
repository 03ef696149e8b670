package order

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

// Queries serves read-only order lookups scoped to their owner.
type Queries struct {
	repo     domain.Repository
	payments PaymentLookup
	ins      application.Instruments
}

func NewQueries(repo domain.Repository, payments PaymentLookup, tel observability.Observability) *Queries {
	return &Queries{repo: repo, payments: payments, ins: application.NewInstruments(tel, orderService)}
}

type OrderView struct {
	Order *domain.Order
	// Payment is nil until a payment intent has been created.
	Payment *dompay.Payment
}

// Get returns the order when userID owns it. Someone else's order is
// reported as not found.
func (q *Queries) Get(ctx context.Context, userID, orderID string) (*OrderView, error) {
	if orderID == "" {
		return nil, application.NewValidation("order id is required")
	}
	o, err := q.repo.Get(ctx, orderID)
	if err != nil {
		return nil, application.WrapRepository(err, domain.ErrNotFound)
	}
	if userID != "" && !o.OwnedBy(userID) {
		return nil, ErrNotFound
	}
	view := &OrderView{Order: o}
	if q.payments == nil {
		return view, nil
	}
	p, err := q.payments.FindByOrderID(ctx, orderID)
	switch {
	case err == nil:
		view.Payment = p
	case errors.Is(err, dompay.ErrNotFound):
	default:
		q.ins.Logger(ctx).Warn("order_payment_lookup_failed",
			observability.F("order_id", orderID),
			observability.F("error", err.Error()),
		)
	}
	return view, nil
}

func (q *Queries) List(ctx context.Context, userID string) ([]*domain.Order, error) {
	if userID == "" {
		return nil, application.NewValidation("user id is required")
	}
	orders, err := q.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, application.WrapRepository(err)
	}
	return orders, nil
}
