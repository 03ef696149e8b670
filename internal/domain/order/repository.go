package order

import (
	"context"
	"time"
)

type Repository interface {
	// Insert stores the order together with its lines.
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	// CompareAndSetStatus stores to only while the persisted status is still
	// from. It fails with ErrConflict when another writer got there first and
	// with ErrNotFound when the order does not exist.
	CompareAndSetStatus(ctx context.Context, id string, from, to Status) error
}

// Reporter is the read side sales reporting runs on.
type Reporter interface {
	// ListByStatus returns the orders in status created at or after since,
	// oldest first. A zero since means no lower bound.
	ListByStatus(ctx context.Context, status Status, since time.Time) ([]*Order, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}
