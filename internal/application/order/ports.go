package order

import (
	"context"

	domcart "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	dominv "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

type IDGenerator interface {
	NewID() string
}

// CartPort hands a user's cart to checkout.
type CartPort interface {
	// Take returns the lines and empties the cart atomically.
	Take(ctx context.Context, userID string) ([]domcart.Line, error)
	// Restore returns lines to the cart when checkout fails after Take.
	Restore(ctx context.Context, userID string, lines []domcart.Line) error
}

// StockPort is the inventory ledger as seen by the order lifecycle.
type StockPort interface {
	Get(ctx context.Context, productID string) (*dominv.Product, error)
	// Apply lands every adjustment or none.
	Apply(ctx context.Context, adjs []dominv.Adjustment) error
}

// PaymentLookup finds the payment attached to an order, if any.
type PaymentLookup interface {
	FindByOrderID(ctx context.Context, orderID string) (*dompay.Payment, error)
}
