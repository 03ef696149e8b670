package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
)

// InventoryRepository keeps products in memory. Each product has its own
// lock, so adjustments to different products never wait on each other.
type InventoryRepository struct {
	mu    sync.RWMutex
	items map[string]*stockEntry
}

type stockEntry struct {
	mu      sync.Mutex
	product domain.Product
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		items: make(map[string]*stockEntry),
	}
}

func (r *InventoryRepository) Insert(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("inventory repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[p.ID]; exists {
		return domain.ErrConflict
	}
	r.items[p.ID] = &stockEntry{product: *p.Clone()}
	return nil
}

func (r *InventoryRepository) Get(ctx context.Context, productID string) (*domain.Product, error) {
	_ = ctx
	e, ok := r.entry(productID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.product.Clone(), nil
}

func (r *InventoryRepository) List(ctx context.Context) ([]*domain.Product, error) {
	_ = ctx
	r.mu.RLock()
	entries := make([]*stockEntry, 0, len(r.items))
	for _, e := range r.items {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.product.Clone())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InventoryRepository) Update(ctx context.Context, p *domain.Product) error {
	_ = ctx
	e, ok := r.entry(p.ID)
	if !ok {
		return domain.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.product.Name = p.Name
	e.product.Price = p.Price
	e.product.UpdatedAt = p.UpdatedAt
	p.Stock = e.product.Stock
	return nil
}

func (r *InventoryRepository) Delete(ctx context.Context, productID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[productID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, productID)
	return nil
}

func (r *InventoryRepository) Adjust(ctx context.Context, productID string, delta int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e, ok := r.entry(productID)
	if !ok {
		return 0, domain.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.product.Apply(delta); err != nil {
		return e.product.Stock, err
	}
	return e.product.Stock, nil
}

func (r *InventoryRepository) entry(productID string) (*stockEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[productID]
	return e, ok
}
