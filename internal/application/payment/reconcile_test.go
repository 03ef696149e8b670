package payment

import (
	"context"
	"sync"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captured(ref string) ReconcileInput {
	return ReconcileInput{EventType: EventPaymentCaptured, ExternalOrderRef: ref, ExternalPaymentRef: "pay_1"}
}

func TestReconcile_Captured_MarksPaymentAndOrderPaid(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.placeOrder(t, "o1", "u1")
	intent := f.openIntent(t, "o1", "u1")

	res, err := f.reconcile.Execute(context.Background(), captured(intent.ExternalOrderRef))
	require.NoError(t, err)

	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, intent.PaymentID, res.PaymentID)
	assert.Equal(t, "o1", res.OrderID)

	p := f.payment(t, "o1")
	assert.Equal(t, domain.StatusSuccess, p.Status)
	assert.Equal(t, "pay_1", p.ExternalPaymentRef)
	assert.Equal(t, domorder.StatusPaid, f.orderStatus(t, "o1"))

	require.Len(t, f.pub.named(domain.EventSucceeded), 1)
	assert.Len(t, f.pub.named(domorder.EventPaid), 1)
}

func TestReconcile_Captured_ReplayIsDuplicate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.placeOrder(t, "o1", "u1")
	intent := f.openIntent(t, "o1", "u1")

	_, err := f.reconcile.Execute(context.Background(), captured(intent.ExternalOrderRef))
	require.NoError(t, err)
	res, err := f.reconcile.Execute(context.Background(), captured(intent.ExternalOrderRef))
	require.NoError(t, err)

	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Len(t, f.pub.named(domain.EventSucceeded), 1)
	assert.Len(t, f.pub.named(domorder.EventPaid), 1)
}

func TestReconcile_Captured_ConcurrentDeliveriesApplyOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.placeOrder(t, "o1", "u1")
	intent := f.openIntent(t, "o1", "u1")

	const deliveries = 8
	var wg sync.WaitGroup
	outcomes := make([]Outcome, deliveries)
	errs := make([]error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.reconcile.Execute(context.Background(), captured(intent.ExternalOrderRef))
			errs[i] = err
			if err == nil {
				outcomes[i] = res.Outcome
			}
		}(i)
	}
	wg.Wait()

	applied := 0
	for i := range errs {
		require.NoError(t, errs[i])
		if outcomes[i] == OutcomeApplied {
			applied++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Len(t, f.pub.named(domain.EventSucceeded), 1)
	assert.Equal(t, domorder.StatusPaid, f.orderStatus(t, "o1"))
}

func TestReconcile_Captured_Unmatched(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res, err := f.reconcile.Execute(context.Background(), captured("order_unknown"))
	require.ErrorIs(t, err, ErrNotFound)
	require.NotNil(t, res)
	assert.Equal(t, OutcomeUnmatched, res.Outcome)
	assert.Empty(t, f.pub.named(domain.EventSucceeded))
}

func TestReconcile_Captured_RequiresRef(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.reconcile.Execute(context.Background(), captured(""))
	assert.ErrorIs(t, err, application.ErrValidation)
}

func TestReconcile_Captured_ClosedOrderIsFlagged(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.placeOrder(t, "o1", "u1")
	intent := f.openIntent(t, "o1", "u1")
	require.NoError(t, f.orders.CompareAndSetStatus(context.Background(), "o1", domorder.StatusCreated, domorder.StatusCancelled))

	res, err := f.reconcile.Execute(context.Background(), captured(intent.ExternalOrderRef))
	require.NoError(t, err)

	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, domain.StatusSuccess, f.payment(t, "o1").Status)
	assert.Equal(t, domorder.StatusCancelled, f.orderStatus(t, "o1"))
	assert.True(t, f.rec.Logged("payment_captured_for_closed_order"))
	assert.Empty(t, f.pub.named(domorder.EventPaid))
}

func TestReconcile_Captured_AfterFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.placeOrder(t, "o1", "u1")
	intent := f.openIntent(t, "o1", "u1")

	_, err := f.reconcile.Execute(context.Background(), ReconcileInput{EventType: EventPaymentFailed, ExternalOrderRef: intent.ExternalOrderRef})
	require.NoError(t, err)
	res, err := f.reconcile.Execute(context.Background(), captured(intent.ExternalOrderRef))
	require.NoError(t, err)

	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, domain.StatusSuccess, f.payment(t, "o1").Status)
	assert.Equal(t, domorder.StatusPaid, f.orderStatus(t, "o1"))
}

func TestReconcile_Failed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.placeOrder(t, "o1", "u1")
	intent := f.openIntent(t, "o1", "u1")
	failed := ReconcileInput{EventType: EventPaymentFailed, ExternalOrderRef: intent.ExternalOrderRef, Reason: "card declined"}

	res, err := f.reconcile.Execute(context.Background(), failed)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, domain.StatusFailed, f.payment(t, "o1").Status)
	assert.Equal(t, domorder.StatusCreated, f.orderStatus(t, "o1"))

	res, err = f.reconcile.Execute(context.Background(), failed)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)

	events := f.pub.named(domain.EventFailed)
	require.Len(t, events, 1)
	assert.Equal(t, "card declined", events[0].(domain.PaymentFailedEvent).Reason)
}

func TestReconcile_Failed_AfterSuccessIsIgnored(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.placeOrder(t, "o1", "u1")
	intent := f.openIntent(t, "o1", "u1")
	_, err := f.reconcile.Execute(context.Background(), captured(intent.ExternalOrderRef))
	require.NoError(t, err)

	res, err := f.reconcile.Execute(context.Background(), ReconcileInput{EventType: EventPaymentFailed, ExternalOrderRef: intent.ExternalOrderRef})
	require.NoError(t, err)

	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, domain.StatusSuccess, f.payment(t, "o1").Status)
	assert.Empty(t, f.pub.named(domain.EventFailed))
}

func TestReconcile_TolerantInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   ReconcileInput
	}{
		{name: "unknown event", in: ReconcileInput{EventType: "refund.created", ExternalOrderRef: "order_ext1"}},
		{name: "failed without ref", in: ReconcileInput{EventType: EventPaymentFailed}},
		{name: "failed for unknown ref", in: ReconcileInput{EventType: EventPaymentFailed, ExternalOrderRef: "order_unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			res, err := f.reconcile.Execute(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, OutcomeIgnored, res.Outcome)
			assert.Empty(t, f.pub.events)
		})
	}
}
