package ledger

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Growthvoodoo/Capty-shopify/pkg/database"
	"github.com/Growthvoodoo/Capty-shopify/pkg/database/dbtest"
	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shop = "demo.myshopify.com"

func setupService(t *testing.T) (*Service, *database.Client) {
	t.Helper()
	db := dbtest.Open(t)
	return NewService(db, logger.Nop()), db
}

func insertOrder(t *testing.T, db *database.Client, orderID string, total, commission float64, at time.Time) {
	t.Helper()
	query, args := db.Builder().
		Insert(ordersTable).
		Columns("shop", "order_id", "total_price", "currency_code", "commission_amount", "commission_rate", "created_at").
		Values(shop, orderID, total, "USD", commission, 0.10, at).
		Query()
	_, err := db.DB.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2024-03", MonthKey(time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)))
	assert.Equal(t, "2024-04", MonthKey(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))

	// 2024-04-01 01:00 in UTC+2 is still March in UTC
	loc := time.FixedZone("UTC+2", 2*3600)
	assert.Equal(t, "2024-03", MonthKey(time.Date(2024, 4, 1, 1, 0, 0, 0, loc)))
}

func TestMonthRange(t *testing.T) {
	start, end, err := MonthRange("2024-12")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), end)

	_, _, err = MonthRange("2024/12")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestUpsertMonthly(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - creates then increments", func(t *testing.T) {
		svc, db := setupService(t)

		require.NoError(t, svc.UpsertMonthly(ctx, db.DB, Delta{Shop: shop, Month: "2024-03", Orders: 1, Sales: 100, Commission: 10}))
		require.NoError(t, svc.UpsertMonthly(ctx, db.DB, Delta{Shop: shop, Month: "2024-03", Orders: 1, Sales: 50, Commission: 5}))

		row, err := svc.Get(ctx, shop, "2024-03")
		require.NoError(t, err)
		assert.Equal(t, 2, row.TotalOrders)
		assert.InDelta(t, 150.0, row.TotalSales, 1e-9)
		assert.InDelta(t, 15.0, row.TotalCommission, 1e-9)
		assert.False(t, row.IsPaid)
		assert.Nil(t, row.PaidAt)
	})

	t.Run("Success - months are separate rows", func(t *testing.T) {
		svc, db := setupService(t)

		require.NoError(t, svc.UpsertMonthly(ctx, db.DB, Delta{Shop: shop, Month: "2024-03", Orders: 1, Sales: 10, Commission: 1}))
		require.NoError(t, svc.UpsertMonthly(ctx, db.DB, Delta{Shop: shop, Month: "2024-04", Orders: 1, Sales: 20, Commission: 2}))

		rows, err := svc.ListByShop(ctx, shop)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "2024-04", rows[0].Month)
		assert.Equal(t, "2024-03", rows[1].Month)
	})

	t.Run("Success - concurrent increments are not lost", func(t *testing.T) {
		svc, db := setupService(t)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, svc.UpsertMonthly(ctx, db.DB, Delta{Shop: shop, Month: "2024-03", Orders: 1, Sales: 10, Commission: 1}))
			}()
		}
		wg.Wait()

		row, err := svc.Get(ctx, shop, "2024-03")
		require.NoError(t, err)
		assert.Equal(t, 20, row.TotalOrders)
		assert.InDelta(t, 200.0, row.TotalSales, 1e-9)
		assert.InDelta(t, 20.0, row.TotalCommission, 1e-9)
	})

	t.Run("Failure - invalid month", func(t *testing.T) {
		svc, db := setupService(t)

		err := svc.UpsertMonthly(ctx, db.DB, Delta{Shop: shop, Month: "March"})
		assert.ErrorIs(t, err, ErrInvalidMonth)
	})
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Get(context.Background(), shop, "2024-03")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSummarize(t *testing.T) {
	sum := Summarize([]Monthly{
		{TotalOrders: 2, TotalSales: 200, TotalCommission: 20, IsPaid: true},
		{TotalOrders: 1, TotalSales: 50, TotalCommission: 5},
		{TotalOrders: 3, TotalSales: 30, TotalCommission: 3},
	})

	assert.Equal(t, 6, sum.TotalOrders)
	assert.InDelta(t, 280.0, sum.TotalSales, 1e-9)
	assert.InDelta(t, 20.0, sum.Paid, 1e-9)
	assert.InDelta(t, 8.0, sum.Owed, 1e-9)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	march := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("Success - consistent month is left alone", func(t *testing.T) {
		svc, db := setupService(t)
		insertOrder(t, db, "1", 100, 10, march)
		require.NoError(t, svc.UpsertMonthly(ctx, db.DB, Delta{Shop: shop, Month: "2024-03", Orders: 1, Sales: 100, Commission: 10}))

		repair, err := svc.Reconcile(ctx, shop, "2024-03")
		require.NoError(t, err)
		assert.False(t, repair.Repaired)
		assert.Equal(t, 1, repair.After.TotalOrders)
	})

	t.Run("Success - drift is repaired", func(t *testing.T) {
		svc, db := setupService(t)
		insertOrder(t, db, "1", 100, 10, march)
		insertOrder(t, db, "2", 40, 4, march)
		// orders outside the month are ignored
		insertOrder(t, db, "3", 999, 99.9, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, svc.UpsertMonthly(ctx, db.DB, Delta{Shop: shop, Month: "2024-03", Orders: 1, Sales: 100, Commission: 10}))

		repair, err := svc.Reconcile(ctx, shop, "2024-03")
		require.NoError(t, err)
		assert.True(t, repair.Repaired)
		require.NotNil(t, repair.Before)
		assert.Equal(t, 1, repair.Before.TotalOrders)
		assert.Equal(t, 2, repair.After.TotalOrders)
		assert.InDelta(t, 140.0, repair.After.TotalSales, 1e-9)
		assert.InDelta(t, 14.0, repair.After.TotalCommission, 1e-9)
	})

	t.Run("Success - missing row is created", func(t *testing.T) {
		svc, db := setupService(t)
		insertOrder(t, db, "1", 100, 10, march)

		repair, err := svc.Reconcile(ctx, shop, "2024-03")
		require.NoError(t, err)
		assert.True(t, repair.Repaired)
		assert.Nil(t, repair.Before)

		row, err := svc.Get(ctx, shop, "2024-03")
		require.NoError(t, err)
		assert.Equal(t, 1, row.TotalOrders)
	})

	t.Run("Success - empty month stays empty", func(t *testing.T) {
		svc, _ := setupService(t)

		repair, err := svc.Reconcile(ctx, shop, "2024-03")
		require.NoError(t, err)
		assert.False(t, repair.Repaired)

		_, err = svc.Get(ctx, shop, "2024-03")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReconcile_OrderDuringRepair(t *testing.T) {
	ctx := context.Background()
	march := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	db, err := database.Open(database.Options{
		Driver: "sqlite3",
		URL:    "file:" + filepath.Join(t.TempDir(), "ledger.sqlite"),
		Pool:   database.DefaultPoolConfig(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	svc := NewService(db, logger.Nop())
	insertOrder(t, db, "1", 100, 10, march)
	insertOrder(t, db, "2", 40, 4, march)
	require.NoError(t, svc.UpsertMonthly(ctx, db.DB, Delta{Shop: shop, Month: "2024-03", Orders: 1, Sales: 100, Commission: 10}))

	orderDone := make(chan error, 1)
	svc.locked = func() {
		go func() {
			orderDone <- db.InTx(ctx, func(tx *sql.Tx) error {
				query, args := db.Builder().
					Insert(ordersTable).
					Columns("shop", "order_id", "total_price", "currency_code", "commission_amount", "commission_rate", "created_at").
					Values(shop, "3", 60.0, "USD", 6.0, 0.10, march).
					Query()
				if _, err := tx.ExecContext(ctx, query, args...); err != nil {
					return err
				}
				return svc.UpsertMonthly(ctx, tx, Delta{Shop: shop, Month: "2024-03", Orders: 1, Sales: 60, Commission: 6})
			})
		}()
		// give the order a chance to run ahead of the repair
		select {
		case err := <-orderDone:
			orderDone <- err
		case <-time.After(200 * time.Millisecond):
		}
	}

	repair, err := svc.Reconcile(ctx, shop, "2024-03")
	require.NoError(t, err)
	require.NoError(t, <-orderDone)

	assert.True(t, repair.Repaired)
	row, err := svc.Get(ctx, shop, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 3, row.TotalOrders)
	assert.InDelta(t, 200.0, row.TotalSales, 1e-9)
	assert.InDelta(t, 20.0, row.TotalCommission, 1e-9)
}

func TestSelectMonth_LocksOnPostgres(t *testing.T) {
	pg, err := database.Open(database.Options{Driver: "postgres", URL: "postgres://capty@localhost:5432/capty?sslmode=disable"})
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })

	query, _ := NewService(pg, logger.Nop()).selectMonth(shop, "2024-03", true)
	assert.Contains(t, query, "FOR UPDATE")
	query, _ = NewService(pg, logger.Nop()).selectMonth(shop, "2024-03", false)
	assert.NotContains(t, query, "FOR UPDATE")

	svc, _ := setupService(t)
	query, _ = svc.selectMonth(shop, "2024-03", true)
	assert.NotContains(t, query, "FOR UPDATE")
}

func TestMarkPaid(t *testing.T) {
	ctx := context.Background()
	paidAt := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		svc, db := setupService(t)
		svc.WithClock(func() time.Time { return paidAt })
		insertOrder(t, db, "1", 100, 10, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, svc.UpsertMonthly(ctx, db.DB, Delta{Shop: shop, Month: "2024-04", Orders: 1, Sales: 100, Commission: 10}))
		require.NoError(t, svc.UpsertMonthly(ctx, db.DB, Delta{Shop: shop, Month: "2024-05", Orders: 1, Sales: 30, Commission: 3}))

		require.NoError(t, svc.MarkPaid(ctx, shop, "2024-04"))

		row, err := svc.Get(ctx, shop, "2024-04")
		require.NoError(t, err)
		assert.True(t, row.IsPaid)
		require.NotNil(t, row.PaidAt)
		assert.True(t, paidAt.Equal(*row.PaidAt))

		var paid bool
		require.NoError(t, db.DB.QueryRowContext(ctx, "SELECT commission_paid FROM attributed_orders WHERE order_id = '1'").Scan(&paid))
		assert.True(t, paid)

		rows, err := svc.ListByShop(ctx, shop)
		require.NoError(t, err)
		sum := Summarize(rows)
		assert.InDelta(t, 10.0, sum.Paid, 1e-9)
		assert.InDelta(t, 3.0, sum.Owed, 1e-9)
	})

	t.Run("Failure - unknown month", func(t *testing.T) {
		svc, _ := setupService(t)

		err := svc.MarkPaid(ctx, shop, "2024-04")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestShops(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpsertMonthly(ctx, db.DB, Delta{Shop: "b.myshopify.com", Month: "2024-03", Orders: 1}))
	require.NoError(t, svc.UpsertMonthly(ctx, db.DB, Delta{Shop: "a.myshopify.com", Month: "2024-03", Orders: 1}))
	require.NoError(t, svc.UpsertMonthly(ctx, db.DB, Delta{Shop: "a.myshopify.com", Month: "2024-04", Orders: 1}))

	shops, err := svc.Shops(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.myshopify.com", "b.myshopify.com"}, shops)
}
