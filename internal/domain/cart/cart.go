package cart

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidQuantity = errors.New("cart: quantity must be greater than zero")
	ErrLineNotFound    = errors.New("cart: item not in cart")
	ErrLimitExceeded   = errors.New("cart: quantity exceeds limit")
)

// Line is one product in a user's cart. A cart holds at most one line per
// product; adding the same product again merges quantities.
type Line struct {
	UserID    string
	ProductID string
	Quantity  int
	UpdatedAt time.Time
}

type Repository interface {
	// Merge adds quantity to the user's line for productID, creating it when
	// absent. When the merged quantity would exceed limit the line is left
	// unchanged and ErrLimitExceeded is returned.
	Merge(ctx context.Context, userID, productID string, quantity, limit int) (*Line, error)
	// List returns the user's lines ordered by product id.
	List(ctx context.Context, userID string) ([]Line, error)
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
	// Take returns the user's lines ordered by product id and empties the
	// cart in the same step. A line added after Take stays in the cart.
	Take(ctx context.Context, userID string) ([]Line, error)
	// Restore adds lines back into the cart, merging with whatever is there.
	// No limit applies.
	Restore(ctx context.Context, userID string, lines []Line) error
}
