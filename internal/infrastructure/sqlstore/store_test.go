package sqlstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	dominv "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/sqlstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open(context.Background(), sqlstore.Options{
		Driver:      sqlstore.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "checkout.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedProduct(t *testing.T, repo *sqlstore.InventoryRepository, id, price string, stock int) {
	t.Helper()
	p, err := dominv.NewProduct(id, "product "+id, decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(context.Background(), p))
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	_, err := sqlstore.Open(context.Background(), sqlstore.Options{Driver: sqlstore.DriverSQLite})
	assert.Error(t, err)

	_, err = sqlstore.Open(context.Background(), sqlstore.Options{Driver: "oracle", DSN: "x"})
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestInventoryRepository_InsertGetList(t *testing.T) {
	t.Parallel()
	repo := openStore(t).Inventory()
	ctx := context.Background()

	seedProduct(t, repo, "B", "10.00", 2)
	seedProduct(t, repo, "A", "5.50", 10)

	p, err := repo.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "5.50", p.Price.StringFixed(2))
	assert.Equal(t, 10, p.Stock)

	_, err = repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, dominv.ErrNotFound)

	dup, err := dominv.NewProduct("A", "again", decimal.NewFromInt(1), 1)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Insert(ctx, dup), dominv.ErrConflict)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].ID)
	assert.Equal(t, "B", all[1].ID)
}

func TestInventoryRepository_Adjust(t *testing.T) {
	t.Parallel()
	repo := openStore(t).Inventory()
	ctx := context.Background()
	seedProduct(t, repo, "A", "5.00", 3)

	stock, err := repo.Adjust(ctx, "A", -2)
	require.NoError(t, err)
	assert.Equal(t, 1, stock)

	stock, err = repo.Adjust(ctx, "A", -2)
	var se *dominv.StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.Requested)
	assert.Equal(t, 1, se.Available)
	assert.Equal(t, 1, stock)

	stock, err = repo.Adjust(ctx, "A", 4)
	require.NoError(t, err)
	assert.Equal(t, 5, stock)

	_, err = repo.Adjust(ctx, "missing", 1)
	assert.ErrorIs(t, err, dominv.ErrNotFound)
}

func TestInventoryRepository_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	repo := openStore(t).Inventory()
	ctx := context.Background()
	seedProduct(t, repo, "A", "5.00", 3)

	p, err := repo.Get(ctx, "A")
	require.NoError(t, err)
	require.NoError(t, p.Revise("Renamed", decimal.RequireFromString("7.25")))
	p.Stock = 99
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "7.25", got.Price.StringFixed(2))
	assert.Equal(t, 3, got.Stock, "update never writes stock")

	ghost, err := dominv.NewProduct("ghost", "x", decimal.NewFromInt(1), 0)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Update(ctx, ghost), dominv.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "A"))
	_, err = repo.Get(ctx, "A")
	assert.ErrorIs(t, err, dominv.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "A"), dominv.ErrNotFound)
}

func TestInventoryRepository_Adjust_ConcurrentDebitsNeverOversell(t *testing.T) {
	t.Parallel()
	repo := openStore(t).Inventory()
	seedProduct(t, repo, "A", "5.00", 10)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Adjust(context.Background(), "A", -1); err == nil {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	p, err := repo.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 10, oks)
	assert.Equal(t, 0, p.Stock)
}

func TestInventoryRepository_AdjustAll_RollsBackOnShortage(t *testing.T) {
	t.Parallel()
	repo := openStore(t).Inventory()
	ctx := context.Background()
	seedProduct(t, repo, "A", "5.00", 10)
	seedProduct(t, repo, "B", "10.00", 1)

	err := repo.AdjustAll(ctx, []dominv.Adjustment{
		{ProductID: "A", Delta: -3},
		{ProductID: "B", Delta: -2},
	})
	var se *dominv.StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "B", se.ProductID)

	a, err := repo.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 10, a.Stock)

	require.NoError(t, repo.AdjustAll(ctx, []dominv.Adjustment{
		{ProductID: "B", Delta: -1},
		{ProductID: "A", Delta: -3},
	}))
	a, err = repo.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 7, a.Stock)
}

func newOrder(t *testing.T, id, userID string, createdAt time.Time) *domorder.Order {
	t.Helper()
	o, err := domorder.New(id, userID, []domorder.Line{
		{ProductID: "A", Quantity: 3, UnitPrice: decimal.RequireFromString("5.00")},
		{ProductID: "B", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
	})
	require.NoError(t, err)
	o.CreatedAt = createdAt
	o.UpdatedAt = createdAt
	return o
}

func TestOrderRepository_RoundTrip(t *testing.T) {
	t.Parallel()
	repo := openStore(t).Orders()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.Insert(ctx, newOrder(t, "o1", "u1", now.Add(-time.Minute))))
	require.NoError(t, repo.Insert(ctx, newOrder(t, "o2", "u1", now)))
	require.NoError(t, repo.Insert(ctx, newOrder(t, "o3", "u2", now)))
	assert.ErrorIs(t, repo.Insert(ctx, newOrder(t, "o1", "u1", now)), domorder.ErrConflict)

	got, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, domorder.StatusCreated, got.Status)
	assert.Equal(t, "35.00", got.TotalAmount.StringFixed(2))
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "A", got.Lines[0].ProductID)
	assert.Equal(t, 3, got.Lines[0].Quantity)
	assert.Equal(t, "B", got.Lines[1].ProductID)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domorder.ErrNotFound)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "o2", list[0].ID)
	assert.Equal(t, "o1", list[1].ID)
}

func TestOrderRepository_CompareAndSetStatus(t *testing.T) {
	t.Parallel()
	repo := openStore(t).Orders()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, newOrder(t, "o1", "u1", time.Now().UTC())))

	require.NoError(t, repo.CompareAndSetStatus(ctx, "o1", domorder.StatusCreated, domorder.StatusPaid))
	assert.ErrorIs(t, repo.CompareAndSetStatus(ctx, "o1", domorder.StatusCreated, domorder.StatusCancelled), domorder.ErrConflict)
	assert.ErrorIs(t, repo.CompareAndSetStatus(ctx, "missing", domorder.StatusCreated, domorder.StatusPaid), domorder.ErrNotFound)

	got, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPaid, got.Status)
}

func TestOrderRepository_Reporting(t *testing.T) {
	t.Parallel()
	repo := openStore(t).Orders()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.Insert(ctx, newOrder(t, "old", "u1", now.Add(-72*time.Hour))))
	require.NoError(t, repo.Insert(ctx, newOrder(t, "o2", "u1", now)))
	require.NoError(t, repo.Insert(ctx, newOrder(t, "o1", "u2", now)))
	require.NoError(t, repo.Insert(ctx, newOrder(t, "open", "u2", now)))
	for _, id := range []string{"old", "o1", "o2"} {
		require.NoError(t, repo.CompareAndSetStatus(ctx, id, domorder.StatusCreated, domorder.StatusPaid))
	}

	paid, err := repo.ListByStatus(ctx, domorder.StatusPaid, time.Time{})
	require.NoError(t, err)
	require.Len(t, paid, 3)
	assert.Equal(t, "old", paid[0].ID)
	assert.Equal(t, "o1", paid[1].ID)
	assert.Equal(t, "o2", paid[2].ID)
	assert.Len(t, paid[1].Lines, 2)

	recent, err := repo.ListByStatus(ctx, domorder.StatusPaid, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[domorder.StatusPaid])
	assert.Equal(t, 1, counts[domorder.StatusCreated])
	assert.Zero(t, counts[domorder.StatusCancelled])
}

func TestPaymentRepository_UniqueAndConditionalUpdate(t *testing.T) {
	t.Parallel()
	repo := openStore(t).Payments()
	ctx := context.Background()

	p, err := dompay.New("pay-1", "o1", decimal.RequireFromString("35.00"), "INR", "order_ext1")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, p))

	sameOrder, err := dompay.New("pay-2", "o1", decimal.RequireFromString("35.00"), "INR", "order_ext2")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Insert(ctx, sameOrder), dompay.ErrConflict)

	sameRef, err := dompay.New("pay-3", "o2", decimal.RequireFromString("10.00"), "INR", "order_ext1")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Insert(ctx, sameRef), dompay.ErrConflict)

	byRef, err := repo.FindByExternalOrderRef(ctx, "order_ext1")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", byRef.ID)
	assert.Equal(t, "35.00", byRef.Amount.StringFixed(2))

	require.True(t, byRef.Succeed("pay_abc"))
	require.NoError(t, repo.UpdateIf(ctx, byRef, dompay.StatusCreated))
	assert.ErrorIs(t, repo.UpdateIf(ctx, byRef, dompay.StatusCreated), dompay.ErrConflict)

	got, err := repo.FindByOrderID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, dompay.StatusSuccess, got.Status)
	assert.Equal(t, "pay_abc", got.ExternalPaymentRef)

	_, err = repo.FindByOrderID(ctx, "o9")
	assert.ErrorIs(t, err, dompay.ErrNotFound)
}

func TestUserDirectory_SurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "checkout.db")
	open := func() *sqlstore.Store {
		s, err := sqlstore.Open(ctx, sqlstore.Options{Driver: sqlstore.DriverSQLite, DSN: dsn, AutoMigrate: true})
		require.NoError(t, err)
		return s
	}

	first := open()
	users := first.Users()
	require.NoError(t, users.Remember(ctx, "u1", "old@example.com"))
	require.NoError(t, users.Remember(ctx, "u1", "new@example.com"))
	require.NoError(t, users.Remember(ctx, "u1", "new@example.com"))
	require.NoError(t, users.Remember(ctx, "u2", ""))
	require.NoError(t, first.Close())

	second := open()
	t.Cleanup(func() { _ = second.Close() })

	email, err := second.Users().EmailFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", email)

	_, err = second.Users().EmailFor(ctx, "u2")
	assert.ErrorIs(t, err, sqlstore.ErrUnknownUser)
}
