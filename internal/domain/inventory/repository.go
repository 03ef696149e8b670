package inventory

import (
	"context"
)

type Repository interface {
	Insert(ctx context.Context, product *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	// Update writes name and price. Stock in the store is left as it is.
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id string) error
	// Adjust applies delta as one indivisible read-check-write and returns the
	// resulting stock. It fails with a *StockError when the result would be
	// negative and with ErrNotFound for an unknown product.
	Adjust(ctx context.Context, productID string, delta int) (int, error)
}

// BatchAdjuster is implemented by stores that can apply several adjustments
// in one transaction: either every delta lands or none does.
type BatchAdjuster interface {
	AdjustAll(ctx context.Context, adjs []Adjustment) error
}
