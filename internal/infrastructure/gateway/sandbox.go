package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"

	"github.com/google/uuid"
)

// Sandbox is an in-process gateway for local runs without credentials. It
// remembers the orders it created so FetchOrder answers consistently.
type Sandbox struct {
	mu     sync.Mutex
	orders map[string]dompay.RemoteOrder
	keyID  string
}

func NewSandbox(keyID string) *Sandbox {
	if keyID == "" {
		keyID = "rzp_test_sandbox"
	}
	return &Sandbox{orders: make(map[string]dompay.RemoteOrder), keyID: keyID}
}

func (s *Sandbox) KeyID() string { return s.keyID }

func (s *Sandbox) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (dompay.RemoteOrder, error) {
	if err := ctx.Err(); err != nil {
		return dompay.RemoteOrder{}, err
	}
	o := dompay.RemoteOrder{
		ID:          "order_" + uuid.NewString()[:14],
		AmountMinor: amountMinor,
		Currency:    currency,
		Receipt:     receipt,
		Status:      "created",
		CreatedAt:   time.Now().Unix(),
	}
	s.mu.Lock()
	s.orders[o.ID] = o
	s.mu.Unlock()
	return o, nil
}

func (s *Sandbox) FetchOrder(ctx context.Context, id string) (dompay.RemoteOrder, error) {
	if err := ctx.Err(); err != nil {
		return dompay.RemoteOrder{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return dompay.RemoteOrder{}, &APIError{StatusCode: 404, Code: "BAD_REQUEST_ERROR", Description: fmt.Sprintf("order %s does not exist", id)}
	}
	return o, nil
}
