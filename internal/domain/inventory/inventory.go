package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("inventory: product not found")
	ErrConflict          = errors.New("inventory: product already exists")
	ErrInvalidQuantity   = errors.New("inventory: quantity must not be negative")
	ErrInvalidPrice      = errors.New("inventory: price must be zero or greater")
	ErrInvalidName       = errors.New("inventory: name is required")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// StockError describes a debit that would have taken stock below zero.
// errors.Is(err, ErrInsufficientStock) holds for it.
type StockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Stock     int
	UpdatedAt time.Time
}

func NewProduct(id, name string, price decimal.Decimal, stock int) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Product{
		ID:        id,
		Name:      name,
		Price:     price,
		Stock:     stock,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// Apply adds delta to the stock. A result below zero leaves the product
// untouched and returns a *StockError.
func (p *Product) Apply(delta int) error {
	if p.Stock+delta < 0 {
		return &StockError{ProductID: p.ID, Requested: -delta, Available: p.Stock}
	}
	p.Stock += delta
	p.touch()
	return nil
}

// Covers reports whether quantity can be debited right now. The answer is a
// hint; only Apply under the store's atomicity decides.
func (p *Product) Covers(quantity int) bool {
	return p != nil && quantity <= p.Stock
}

// Revise changes the catalog details. Stock is not touched; it only moves
// through Apply.
func (p *Product) Revise(name string, price decimal.Decimal) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	if price.IsNegative() {
		return ErrInvalidPrice
	}
	p.Name = name
	p.Price = price
	p.touch()
	return nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}

// Adjustment is one signed stock change. Negative deltas debit.
type Adjustment struct {
	ProductID string
	Delta     int
}

// Inverse returns the adjustments that undo adjs, in reverse order.
func Inverse(adjs []Adjustment) []Adjustment {
	out := make([]Adjustment, 0, len(adjs))
	for i := len(adjs) - 1; i >= 0; i-- {
		out = append(out, Adjustment{ProductID: adjs[i].ProductID, Delta: -adjs[i].Delta})
	}
	return out
}
