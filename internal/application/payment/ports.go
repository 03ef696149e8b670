package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

type IDGenerator interface {
	NewID() string
}

// Notification is the confirmation sent to a customer once their payment
// succeeds.
type Notification struct {
	Recipient string
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
}

// Notifier delivers confirmations. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Directory resolves the address a user's notifications go to.
type Directory interface {
	EmailFor(ctx context.Context, userID string) (string, error)
}
