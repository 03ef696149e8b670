package payment

import "context"

// RemoteOrder is the gateway's view of an order.
type RemoteOrder struct {
	ID          string `json:"id"`
	AmountMinor int64  `json:"amount"`
	AmountPaid  int64  `json:"amount_paid"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
	Attempts    int    `json:"attempts"`
	CreatedAt   int64  `json:"created_at"`
}

// Gateway is the external payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (RemoteOrder, error)
	FetchOrder(ctx context.Context, id string) (RemoteOrder, error)
	// KeyID is the public key the client needs to open the checkout.
	KeyID() string
}
