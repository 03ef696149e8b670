package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedIDs struct{ id string }

func (f fixedIDs) NewID() string { return f.id }

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func TestCatalog_CreateProduct(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewInventoryRepository()
	catalog := NewCatalog(repo, NewLedger(repo, nil), fixedIDs{id: "generated"}, nil, nil)

	p, err := catalog.CreateProduct(ctx, CreateProductInput{Name: "Mug", Price: decimal.RequireFromString("5.00"), Stock: 10})
	require.NoError(t, err)
	assert.Equal(t, "generated", p.ID)

	_, err = catalog.CreateProduct(ctx, CreateProductInput{ID: "generated", Name: "Mug", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = catalog.CreateProduct(ctx, CreateProductInput{ID: "x", Name: "", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, application.ErrValidation)

	got, err := catalog.Get(ctx, "generated")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)

	list, err := catalog.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCatalog_Restock_PublishesAdjustment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewInventoryRepository()
	seed(t, repo, "A", 1)
	pub := &recordingPublisher{}
	catalog := NewCatalog(repo, NewLedger(repo, nil), fixedIDs{}, pub, nil)

	stock, err := catalog.Restock(ctx, "A", 4)
	require.NoError(t, err)
	assert.Equal(t, 5, stock)

	require.Len(t, pub.events, 1)
	ev, ok := pub.events[0].(domain.StockAdjustedEvent)
	require.True(t, ok)
	assert.Equal(t, "A", ev.ProductID)
	assert.Equal(t, 4, ev.Delta)
	assert.Equal(t, 5, ev.Stock)

	_, err = catalog.Restock(ctx, "A", -6)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Len(t, pub.events, 1)
}

func TestCatalog_UpdateProduct_KeepsStock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewInventoryRepository()
	seed(t, repo, "A", 7)
	catalog := NewCatalog(repo, NewLedger(repo, nil), fixedIDs{}, nil, nil)

	p, err := catalog.UpdateProduct(ctx, "A", UpdateProductInput{Name: " Big mug ", Price: decimal.RequireFromString("8.50")})
	require.NoError(t, err)
	assert.Equal(t, "Big mug", p.Name)
	assert.Equal(t, 7, p.Stock)

	got, err := catalog.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "8.50", got.Price.StringFixed(2))
	assert.Equal(t, 7, got.Stock)

	tests := []struct {
		name string
		id   string
		in   UpdateProductInput
		want error
	}{
		{name: "unknown product", id: "nope", in: UpdateProductInput{Name: "x", Price: decimal.NewFromInt(1)}, want: domain.ErrNotFound},
		{name: "blank name", id: "A", in: UpdateProductInput{Name: "  ", Price: decimal.NewFromInt(1)}, want: application.ErrValidation},
		{name: "negative price", id: "A", in: UpdateProductInput{Name: "x", Price: decimal.NewFromInt(-1)}, want: application.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.UpdateProduct(ctx, tt.id, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCatalog_DeleteProduct(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewInventoryRepository()
	seed(t, repo, "A", 1)
	catalog := NewCatalog(repo, NewLedger(repo, nil), fixedIDs{}, nil, nil)

	require.NoError(t, catalog.DeleteProduct(ctx, "A"))
	_, err := catalog.Get(ctx, "A")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, catalog.DeleteProduct(ctx, "A"), domain.ErrNotFound)
}
