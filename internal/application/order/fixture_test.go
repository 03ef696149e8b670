package order

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	appcart "github.com/Zhima-Mochi/minishop-checkout/internal/application/cart"
	appinventory "github.com/Zhima-Mochi/minishop-checkout/internal/application/inventory"
	dominv "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/obstest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) NewID() string { return fmt.Sprintf("order-%d", s.n.Add(1)) }

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

func (p *recordingPublisher) named(name string) []domoutbox.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domoutbox.Event
	for _, e := range p.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	products *memory.InventoryRepository
	orders   *memory.OrderRepository
	payments *memory.PaymentRepository
	ledger   *appinventory.Ledger
	carts    *appcart.Service
	pub      *recordingPublisher
	rec      *obstest.Recorder

	create    *CreateOrderUseCase
	cancel    *CancelOrderUseCase
	status    *UpdateStatusUseCase
	query     *Queries
	analytics *Analytics
}

// newFixture seeds A (stock 10 at 5.00) and B (stock 2 at 10.00).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		products: memory.NewInventoryRepository(),
		orders:   memory.NewOrderRepository(),
		payments: memory.NewPaymentRepository(),
		pub:      &recordingPublisher{},
		rec:      obstest.New(),
	}
	f.addProduct(t, "A", "5.00", 10)
	f.addProduct(t, "B", "10.00", 2)

	f.ledger = appinventory.NewLedger(f.products, f.rec)
	f.carts = appcart.NewService(memory.NewCartRepository(), f.ledger, f.rec)
	f.create = NewCreateOrderUseCase(f.orders, f.carts, f.ledger, &seqIDs{}, f.pub, f.rec)
	f.cancel = NewCancelOrderUseCase(f.orders, f.ledger, f.pub, f.rec)
	f.status = NewUpdateStatusUseCase(f.orders, f.pub, f.rec)
	f.query = NewQueries(f.orders, f.payments, f.rec)
	f.analytics = NewAnalytics(f.orders, f.rec)
	return f
}

func (f *fixture) addProduct(t *testing.T, id, price string, stock int) {
	t.Helper()
	p, err := dominv.NewProduct(id, "product "+id, decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	require.NoError(t, f.products.Insert(context.Background(), p))
}

func (f *fixture) addToCart(t *testing.T, userID, productID string, qty int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), userID, productID, qty)
	require.NoError(t, err)
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

// placeOrder fills the cart with 3 A and 2 B and checks out.
func (f *fixture) placeOrder(t *testing.T, userID string) *CreateOrderResult {
	t.Helper()
	f.addToCart(t, userID, "A", 3)
	f.addToCart(t, userID, "B", 2)
	res, err := f.create.Execute(context.Background(), CreateOrderInput{UserID: userID})
	require.NoError(t, err)
	return res
}
