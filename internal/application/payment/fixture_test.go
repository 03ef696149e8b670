package payment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/obstest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) NewID() string { return fmt.Sprintf("pay-%d", s.n.Add(1)) }

// fakeGateway numbers the orders it creates: order_ext1, order_ext2, ...
type fakeGateway struct {
	mu      sync.Mutex
	calls   int
	fetches int
	err     error
	delay   time.Duration
	orders  map[string]domain.RemoteOrder
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{orders: make(map[string]domain.RemoteOrder)}
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (domain.RemoteOrder, error) {
	g.mu.Lock()
	g.calls++
	n, err, delay := g.calls, g.err, g.delay
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return domain.RemoteOrder{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.RemoteOrder{}, err
	}
	o := domain.RemoteOrder{
		ID:          fmt.Sprintf("order_ext%d", n),
		AmountMinor: amountMinor,
		Currency:    currency,
		Receipt:     receipt,
		Status:      "created",
	}
	g.mu.Lock()
	g.orders[o.ID] = o
	g.mu.Unlock()
	return o, nil
}

func (g *fakeGateway) FetchOrder(_ context.Context, id string) (domain.RemoteOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	if g.err != nil {
		return domain.RemoteOrder{}, g.err
	}
	o, ok := g.orders[id]
	if !ok {
		return domain.RemoteOrder{}, fmt.Errorf("remote order %s does not exist", id)
	}
	return o, nil
}

func (g *fakeGateway) fail(err error) {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
}

func (g *fakeGateway) fetchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetches
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

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
	orders   *memory.OrderRepository
	payments *memory.PaymentRepository
	gateway  *fakeGateway
	pub      *recordingPublisher
	rec      *obstest.Recorder

	intents   *CreateIntentUseCase
	reconcile *ReconcileUseCase
	remote    *FetchRemoteUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders:   memory.NewOrderRepository(),
		payments: memory.NewPaymentRepository(),
		gateway:  newFakeGateway(),
		pub:      &recordingPublisher{},
		rec:      obstest.New(),
	}
	status := apporder.NewUpdateStatusUseCase(f.orders, f.pub, f.rec)
	f.intents = NewCreateIntentUseCase(f.orders, f.payments, f.gateway, &seqIDs{}, f.rec, WithGatewayTimeout(time.Second))
	f.reconcile = NewReconcileUseCase(f.payments, status, f.pub, f.rec)
	f.remote = NewFetchRemoteUseCase(f.orders, f.payments, f.gateway, f.rec)
	return f
}

// placeOrder stores a CREATED order for userID worth 35.00.
func (f *fixture) placeOrder(t *testing.T, id, userID string) *domorder.Order {
	t.Helper()
	o, err := domorder.New(id, userID, []domorder.Line{
		{ProductID: "A", Quantity: 3, UnitPrice: decimal.RequireFromString("5.00")},
		{ProductID: "B", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
	})
	require.NoError(t, err)
	require.NoError(t, f.orders.Insert(context.Background(), o))
	return o
}

func (f *fixture) openIntent(t *testing.T, orderID, userID string) *IntentResult {
	t.Helper()
	res, err := f.intents.Execute(context.Background(), CreateIntentInput{UserID: userID, OrderID: orderID})
	require.NoError(t, err)
	return res
}

func (f *fixture) orderStatus(t *testing.T, id string) domorder.Status {
	t.Helper()
	o, err := f.orders.Get(context.Background(), id)
	require.NoError(t, err)
	return o.Status
}

func (f *fixture) payment(t *testing.T, orderID string) *domain.Payment {
	t.Helper()
	p, err := f.payments.FindByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	return p
}
