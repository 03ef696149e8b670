package inventory

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewProduct("p1", "  ", decimal.NewFromInt(1), 1)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = NewProduct("p1", "Mug", decimal.NewFromInt(-1), 1)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = NewProduct("p1", "Mug", decimal.NewFromInt(1), -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	p, err := NewProduct("p1", " Mug ", decimal.NewFromInt(1), 0)
	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Name)
}

func TestProduct_Apply_NeverGoesNegative(t *testing.T) {
	t.Parallel()

	p, err := NewProduct("p1", "Mug", decimal.NewFromInt(5), 2)
	require.NoError(t, err)

	require.NoError(t, p.Apply(-2))
	assert.Equal(t, 0, p.Stock)

	err = p.Apply(-1)
	require.ErrorIs(t, err, ErrInsufficientStock)
	var se *StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StockError{ProductID: "p1", Requested: 1, Available: 0}, *se)
	assert.Equal(t, 0, p.Stock)

	require.NoError(t, p.Apply(5))
	assert.Equal(t, 5, p.Stock)
	assert.True(t, p.Covers(5))
	assert.False(t, p.Covers(6))
}

func TestInverse_ReversesAndNegates(t *testing.T) {
	t.Parallel()

	got := Inverse([]Adjustment{{ProductID: "A", Delta: -3}, {ProductID: "B", Delta: -2}})
	assert.Equal(t, []Adjustment{{ProductID: "B", Delta: 2}, {ProductID: "A", Delta: 3}}, got)
	assert.Empty(t, Inverse(nil))
}

func TestProduct_Revise(t *testing.T) {
	t.Parallel()

	p, err := NewProduct("p1", "Mug", decimal.NewFromInt(5), 3)
	require.NoError(t, err)

	require.NoError(t, p.Revise(" Cup ", decimal.NewFromInt(6)))
	assert.Equal(t, "Cup", p.Name)
	assert.Equal(t, 3, p.Stock)

	assert.ErrorIs(t, p.Revise("", decimal.NewFromInt(1)), ErrInvalidName)
	assert.ErrorIs(t, p.Revise("Cup", decimal.NewFromInt(-1)), ErrInvalidPrice)
	assert.Equal(t, "6", p.Price.String())
}
