package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

// PaymentRepository indexes payments by order and by gateway reference. Both
// indexes are unique.
type PaymentRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Payment
	byOrder map[string]string
	byRef   map[string]string
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		byID:    make(map[string]*domain.Payment),
		byOrder: make(map[string]string),
		byRef:   make(map[string]string),
	}
}

func (r *PaymentRepository) Insert(ctx context.Context, p *domain.Payment) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("payment repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.byOrder[p.OrderID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.byRef[p.ExternalOrderRef]; exists {
		return domain.ErrConflict
	}
	r.byID[p.ID] = p.Clone()
	r.byOrder[p.OrderID] = p.ID
	r.byRef[p.ExternalOrderRef] = p.ID
	return nil
}

func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *PaymentRepository) FindByExternalOrderRef(ctx context.Context, ref string) (*domain.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRef[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *PaymentRepository) UpdateIf(ctx context.Context, p *domain.Payment, from domain.Status) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("payment repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Status != from {
		return domain.ErrConflict
	}
	if p.ExternalOrderRef != current.ExternalOrderRef {
		if owner, taken := r.byRef[p.ExternalOrderRef]; taken && owner != p.ID {
			return domain.ErrConflict
		}
		delete(r.byRef, current.ExternalOrderRef)
		r.byRef[p.ExternalOrderRef] = p.ID
	}
	r.byID[p.ID] = p.Clone()
	return nil
}
