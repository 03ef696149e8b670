package order

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateStatus_PaidIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	placed := f.placeOrder(t, "u1")

	res, err := f.status.Execute(ctx, UpdateStatusInput{OrderID: placed.OrderID, Status: domain.StatusPaid})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.True(t, res.Changed)

	res, err = f.status.Execute(ctx, UpdateStatusInput{OrderID: placed.OrderID, Status: domain.StatusPaid})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, domain.StatusPaid, res.Status)

	assert.Len(t, f.pub.named(domain.EventPaid), 1)
}

func TestUpdateStatus_MissingOrderIsANoop(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res, err := f.status.Execute(context.Background(), UpdateStatusInput{OrderID: "gone", Status: domain.StatusPaid})
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestUpdateStatus_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.status.Execute(ctx, UpdateStatusInput{Status: domain.StatusPaid})
	assert.ErrorIs(t, err, application.ErrValidation)
	_, err = f.status.Execute(ctx, UpdateStatusInput{OrderID: "o", Status: "SHIPPED"})
	assert.ErrorIs(t, err, application.ErrValidation)
	_, err = f.status.Execute(ctx, UpdateStatusInput{OrderID: "o", Status: domain.StatusCancelled})
	assert.ErrorIs(t, err, application.ErrValidation)
}

func TestQueries_GetAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	placed := f.placeOrder(t, "u1")

	view, err := f.query.Get(ctx, "u1", placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, placed.OrderID, view.Order.ID)
	assert.Nil(t, view.Payment)

	p, err := dompay.New("pay1", placed.OrderID, decimal.RequireFromString("35.00"), "INR", "ref1")
	require.NoError(t, err)
	require.NoError(t, f.payments.Insert(ctx, p))
	view, err = f.query.Get(ctx, "u1", placed.OrderID)
	require.NoError(t, err)
	require.NotNil(t, view.Payment)
	assert.Equal(t, "pay1", view.Payment.ID)

	_, err = f.query.Get(ctx, "u2", placed.OrderID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := f.query.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = f.query.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, list)
}
