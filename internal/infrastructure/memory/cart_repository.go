package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
)

// CartRepository holds carts in memory keyed by user and product.
type CartRepository struct {
	mu    sync.Mutex
	carts map[string]map[string]domain.Line
}

func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]map[string]domain.Line)}
}

func (r *CartRepository) Merge(ctx context.Context, userID, productID string, quantity, limit int) (*domain.Line, error) {
	_ = ctx
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lines, ok := r.carts[userID]
	if !ok {
		lines = make(map[string]domain.Line)
		r.carts[userID] = lines
	}
	line := lines[productID]
	if line.Quantity+quantity > limit {
		return nil, domain.ErrLimitExceeded
	}
	line.UserID = userID
	line.ProductID = productID
	line.Quantity += quantity
	line.UpdatedAt = time.Now().UTC()
	lines[productID] = line
	return &line, nil
}

func (r *CartRepository) List(ctx context.Context, userID string) ([]domain.Line, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := r.carts[userID]
	out := make([]domain.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (r *CartRepository) Remove(ctx context.Context, userID, productID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := r.carts[userID]
	if _, ok := lines[productID]; !ok {
		return domain.ErrLineNotFound
	}
	delete(lines, productID)
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}

func (r *CartRepository) Take(ctx context.Context, userID string) ([]domain.Line, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := r.carts[userID]
	delete(r.carts, userID)
	out := make([]domain.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (r *CartRepository) Restore(ctx context.Context, userID string, lines []domain.Line) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		cart = make(map[string]domain.Line)
		r.carts[userID] = cart
	}
	now := time.Now().UTC()
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		line := cart[l.ProductID]
		line.UserID = userID
		line.ProductID = l.ProductID
		line.Quantity += l.Quantity
		line.UpdatedAt = now
		cart[l.ProductID] = line
	}
	return nil
}
