package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrConflict               = errors.New("order: concurrent modification")
	ErrEmptyCart              = errors.New("order: cart is empty")
	ErrAlreadyCancelled       = errors.New("order: already cancelled")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
	ErrInvalidQuantity        = errors.New("order: quantity must be greater than zero")
	ErrInvalidAmount          = errors.New("order: amount must be zero or greater")
	ErrMissingProduct         = errors.New("order: line has no product")
)

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Line is a product snapshot taken when the order was placed. UnitPrice does
// not follow later catalog changes.
type Line struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID          string
	UserID      string
	Lines       []Line
	TotalAmount decimal.Decimal
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New builds a CREATED order whose total is the sum of its line totals.
func New(id, userID string, lines []Line) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	total := decimal.Zero
	copied := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, ErrMissingProduct
		}
		if l.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if l.UnitPrice.IsNegative() {
			return nil, ErrInvalidAmount
		}
		total = total.Add(l.Total())
		copied = append(copied, l)
	}

	now := time.Now().UTC()
	return &Order{
		ID:          id,
		UserID:      userID,
		Lines:       copied,
		TotalAmount: total,
		Status:      StatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// OwnedBy reports whether userID placed the order.
func (o *Order) OwnedBy(userID string) bool {
	return o != nil && o.UserID == userID
}

// MarkPaid moves the order to PAID. Paying a PAID order changes nothing and
// reports false.
func (o *Order) MarkPaid() (bool, error) {
	return o.apply(func(s OrderState) (OrderState, error) { return s.OnPaid(o) })
}

// Cancel moves the order to CANCELLED and returns the status it left.
func (o *Order) Cancel() (Status, error) {
	prior := o.Status
	if _, err := o.apply(func(s OrderState) (OrderState, error) { return s.OnCancelled(o) }); err != nil {
		return prior, err
	}
	return prior, nil
}

// TransitionTo drives the order towards target. It reports whether anything
// changed; a transition the lifecycle forbids fails with
// ErrInvalidStateTransition.
func (o *Order) TransitionTo(target Status) (bool, error) {
	switch target {
	case StatusPaid:
		return o.MarkPaid()
	case StatusCancelled:
		if o.Status == StatusCancelled {
			return false, nil
		}
		_, err := o.Cancel()
		return err == nil, err
	case StatusCreated:
		if o.Status == StatusCreated {
			return false, nil
		}
		return false, ErrInvalidStateTransition
	}
	return false, ErrInvalidStateTransition
}

func (o *Order) apply(step func(OrderState) (OrderState, error)) (bool, error) {
	current, err := stateFor(o.Status)
	if err != nil {
		return false, err
	}
	next, err := step(current)
	if err != nil {
		return false, err
	}
	if next.Status() == o.Status {
		return false, nil
	}
	o.Status = next.Status()
	o.touch()
	return true, nil
}

// Restock returns the per-product quantities this order holds.
func (o *Order) Restock() map[string]int {
	out := make(map[string]int, len(o.Lines))
	for _, l := range o.Lines {
		out[l.ProductID] += l.Quantity
	}
	return out
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Lines = append([]Line(nil), o.Lines...)
	return &cp
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
