package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventCreated   = "order.created"
	EventPaid      = "order.paid"
	EventCancelled = "order.cancelled"
)

// OrderCreatedEvent is emitted once an order and its stock debits are committed.
type OrderCreatedEvent struct {
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	Lines       []Line          `json:"lines"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func (OrderCreatedEvent) EventName() string  { return EventCreated }
func (e OrderCreatedEvent) EventKey() string { return e.OrderID }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Lines:       append([]Line(nil), o.Lines...),
		TotalAmount: o.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
}

type OrderPaidEvent struct {
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func (OrderPaidEvent) EventName() string  { return EventPaid }
func (e OrderPaidEvent) EventKey() string { return e.OrderID }

func NewOrderPaidEvent(o *Order) OrderPaidEvent {
	return OrderPaidEvent{
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
}

// OrderCancelledEvent carries the status the order left. RefundRequired is set
// when that status was PAID; refunds are handled outside this service.
type OrderCancelledEvent struct {
	OrderID        string    `json:"order_id"`
	UserID         string    `json:"user_id"`
	PriorStatus    Status    `json:"prior_status"`
	RefundRequired bool      `json:"refund_required"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (OrderCancelledEvent) EventName() string  { return EventCancelled }
func (e OrderCancelledEvent) EventKey() string { return e.OrderID }

func NewOrderCancelledEvent(o *Order, prior Status) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:        o.ID,
		UserID:         o.UserID,
		PriorStatus:    prior,
		RefundRequired: prior == StatusPaid,
		OccurredAt:     time.Now().UTC(),
	}
}
