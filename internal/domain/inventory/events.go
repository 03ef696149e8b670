package inventory

import "time"

const (
	FailureReasonNotFound          = "not_found"
	FailureReasonInsufficientStock = "insufficient_stock"
	FailureReasonPersistenceError  = "persist_error"
)

const EventStockAdjusted = "inventory.stock_adjusted"

// StockAdjustedEvent is emitted when an operator changes stock outside of
// checkout, e.g. a delivery intake or a stock correction.
type StockAdjustedEvent struct {
	ProductID  string    `json:"product_id"`
	Delta      int       `json:"delta"`
	Stock      int       `json:"stock"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (StockAdjustedEvent) EventName() string  { return EventStockAdjusted }
func (e StockAdjustedEvent) EventKey() string { return e.ProductID }

func NewStockAdjustedEvent(productID string, delta, stock int) StockAdjustedEvent {
	return StockAdjustedEvent{
		ProductID:  productID,
		Delta:      delta,
		Stock:      stock,
		OccurredAt: time.Now().UTC(),
	}
}
