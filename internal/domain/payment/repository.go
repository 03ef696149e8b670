package payment

import "context"

type Repository interface {
	// Insert fails with ErrConflict when the order already has a payment or
	// the gateway reference is taken.
	Insert(ctx context.Context, p *Payment) error
	FindByOrderID(ctx context.Context, orderID string) (*Payment, error)
	FindByExternalOrderRef(ctx context.Context, ref string) (*Payment, error)
	// UpdateIf stores p only while the persisted status is still from;
	// ErrConflict otherwise.
	UpdateIf(ctx context.Context, p *Payment, from Status) error
}
