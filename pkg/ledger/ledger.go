// Package ledger keeps the per-shop monthly commission totals.
//
// Rows are only ever changed by atomic increments (UpsertMonthly) or by an
// explicit repair from the attributed orders (Reconcile), so concurrent
// webhook deliveries never lose an update.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/Growthvoodoo/Capty-shopify/pkg/database"
	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
)

const (
	table       = "monthly_commissions"
	ordersTable = "attributed_orders"
	monthLayout = "2006-01"
)

var (
	// ErrNotFound is returned when no ledger row exists for a shop and month
	ErrNotFound = errors.New("ledger entry not found")
	// ErrInvalidMonth is returned for month keys not in YYYY-MM form
	ErrInvalidMonth = errors.New("invalid month key")
)

var columns = []string{
	"id", "shop", "month", "total_orders", "total_sales", "total_commission",
	"is_paid", "paid_at", "created_at", "updated_at",
}

// Monthly is one shop's commission totals for a calendar month
type Monthly struct {
	ID              int
	Shop            string
	Month           string
	TotalOrders     int
	TotalSales      float64
	TotalCommission float64
	IsPaid          bool
	PaidAt          *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Delta is an increment applied to a monthly row
type Delta struct {
	Shop       string
	Month      string
	Orders     int
	Sales      float64
	Commission float64
}

// Summary aggregates ledger rows into owed and paid totals
type Summary struct {
	TotalOrders int
	TotalSales  float64
	Owed        float64
	Paid        float64
}

// Repair describes the outcome of a reconciliation
type Repair struct {
	Shop     string
	Month    string
	Before   *Monthly
	After    Monthly
	Repaired bool
}

// Service handles ledger operations
type Service struct {
	db  *database.Client
	log logger.Logger
	now func() time.Time

	// called by Reconcile once the ledger row is locked
	locked func()
}

// NewService creates a new ledger service
func NewService(db *database.Client, log logger.Logger) *Service {
	return &Service{
		db:  db,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for timestamps
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// MonthKey returns the ledger month of t in UTC
func MonthKey(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

// MonthRange returns the half-open UTC interval covered by a month key
func MonthRange(month string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(monthLayout, month, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// UpsertMonthly adds d to the row for (d.Shop, d.Month), creating it when
// missing. The increment is a single statement so it is safe under
// concurrent callers. exec may be a transaction.
func (s *Service) UpsertMonthly(ctx context.Context, exec database.Executor, d Delta) error {
	if _, _, err := MonthRange(d.Month); err != nil {
		return err
	}
	now := s.now()

	query, args := s.db.Builder().
		Insert(table).
		Columns("shop", "month", "total_orders", "total_sales", "total_commission", "is_paid", "created_at", "updated_at").
		Values(d.Shop, d.Month, d.Orders, d.Sales, d.Commission, false, now, now).
		OnConflict(
			entsql.ConflictColumns("shop", "month"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.Add("total_orders", d.Orders)
				u.Add("total_sales", d.Sales)
				u.Add("total_commission", d.Commission)
				u.Set("updated_at", now)
			}),
		).
		Query()

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert monthly commission: %w", err)
	}
	return nil
}

// insertMonthly creates the row for d unless one exists and reports whether it did
func (s *Service) insertMonthly(ctx context.Context, exec database.Executor, d Delta) (bool, error) {
	now := s.now()
	query, args := s.db.Builder().
		Insert(table).
		Columns("shop", "month", "total_orders", "total_sales", "total_commission", "is_paid", "created_at", "updated_at").
		Values(d.Shop, d.Month, d.Orders, d.Sales, d.Commission, false, now, now).
		OnConflict(entsql.ConflictColumns("shop", "month"), entsql.DoNothing()).
		Query()

	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to create monthly commission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to create monthly commission: %w", err)
	}
	return n > 0, nil
}

// Get returns the ledger row for a shop and month
func (s *Service) Get(ctx context.Context, shop, month string) (*Monthly, error) {
	return s.get(ctx, s.db.DB, shop, month)
}

func (s *Service) get(ctx context.Context, exec database.Executor, shop, month string) (*Monthly, error) {
	query, args := s.selectMonth(shop, month, false)
	return s.queryMonth(ctx, exec, query, args)
}

// selectMonth renders the lookup of one ledger row. With lock the row is
// selected FOR UPDATE on postgres; sqlite transactions already hold the
// database write lock.
func (s *Service) selectMonth(shop, month string, lock bool) (string, []any) {
	sel := s.db.Builder().
		Select(columns...).
		From(entsql.Table(table)).
		Where(entsql.And(entsql.EQ("shop", shop), entsql.EQ("month", month))).
		Limit(1)
	if lock && s.db.Dialect() == dialect.Postgres {
		sel.ForUpdate()
	}
	return sel.Query()
}

func (s *Service) queryMonth(ctx context.Context, exec database.Executor, query string, args []any) (*Monthly, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly commission: %w", err)
	}
	defer rows.Close()

	list, err := scanMonthly(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

// ListByShop returns every ledger row of a shop, newest month first
func (s *Service) ListByShop(ctx context.Context, shop string) ([]Monthly, error) {
	query, args := s.db.Builder().
		Select(columns...).
		From(entsql.Table(table)).
		Where(entsql.EQ("shop", shop)).
		OrderBy(entsql.Desc("month")).
		Query()

	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly commissions: %w", err)
	}
	defer rows.Close()

	return scanMonthly(rows)
}

// Shops returns every shop that has at least one ledger row
func (s *Service) Shops(ctx context.Context) ([]string, error) {
	query, args := s.db.Builder().
		Select("shop").
		Distinct().
		From(entsql.Table(table)).
		OrderBy("shop").
		Query()

	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger shops: %w", err)
	}
	defer rows.Close()

	var shops []string
	for rows.Next() {
		var shop string
		if err := rows.Scan(&shop); err != nil {
			return nil, fmt.Errorf("failed to scan shop: %w", err)
		}
		shops = append(shops, shop)
	}
	return shops, rows.Err()
}

// Summarize splits the commission of rows into owed (unpaid) and paid totals
func Summarize(rows []Monthly) Summary {
	var sum Summary
	for _, r := range rows {
		sum.TotalOrders += r.TotalOrders
		sum.TotalSales += r.TotalSales
		if r.IsPaid {
			sum.Paid += r.TotalCommission
		} else {
			sum.Owed += r.TotalCommission
		}
	}
	return sum
}

// Reconcile recomputes a month from the attributed orders and overwrites the
// ledger row when it has drifted. The row is locked before the orders are
// summed, so an order committing meanwhile applies its increment after the
// repair instead of being overwritten by it.
func (s *Service) Reconcile(ctx context.Context, shop, month string) (*Repair, error) {
	start, end, err := MonthRange(month)
	if err != nil {
		return nil, err
	}

	repair := &Repair{Shop: shop, Month: month}
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		query, args := s.selectMonth(shop, month, true)
		current, err := s.queryMonth(ctx, tx, query, args)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if s.locked != nil {
			s.locked()
		}

		want, err := s.totalsFromOrders(ctx, tx, shop, start, end)
		if err != nil {
			return err
		}

		if current == nil {
			if want.Orders == 0 {
				return nil
			}
			created, err := s.insertMonthly(ctx, tx, want)
			if err != nil {
				return err
			}
			if !created {
				// an order created the row after the lookup; the next run repairs it
				return nil
			}
		} else {
			repair.Before = current
			if matches(current, want) {
				repair.After = *current
				return nil
			}
			query, args := s.db.Builder().
				Update(table).
				Set("total_orders", want.Orders).
				Set("total_sales", want.Sales).
				Set("total_commission", want.Commission).
				Set("updated_at", s.now()).
				Where(entsql.And(entsql.EQ("shop", shop), entsql.EQ("month", month))).
				Query()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to repair monthly commission: %w", err)
			}
		}

		after, err := s.get(ctx, tx, shop, month)
		if err != nil {
			return err
		}
		repair.After = *after
		repair.Repaired = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if repair.Repaired {
		s.log.Warn("ledger drift repaired",
			"shop", shop,
			"month", month,
			"total_orders", repair.After.TotalOrders,
			"total_commission", repair.After.TotalCommission,
		)
	}
	return repair, nil
}

// MarkPaid settles a month: the ledger row and its orders are flagged paid
func (s *Service) MarkPaid(ctx context.Context, shop, month string) error {
	start, end, err := MonthRange(month)
	if err != nil {
		return err
	}
	now := s.now()

	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		query, args := s.db.Builder().
			Update(table).
			Set("is_paid", true).
			Set("paid_at", now).
			Set("updated_at", now).
			Where(entsql.And(entsql.EQ("shop", shop), entsql.EQ("month", month))).
			Query()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to mark month paid: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}

		query, args = s.db.Builder().
			Update(ordersTable).
			Set("commission_paid", true).
			Where(entsql.And(
				entsql.EQ("shop", shop),
				entsql.GTE("created_at", start),
				entsql.LT("created_at", end),
			)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to mark orders paid: %w", err)
		}
		return nil
	})
}

func (s *Service) totalsFromOrders(ctx context.Context, exec database.Executor, shop string, start, end time.Time) (Delta, error) {
	query, args := s.db.Builder().
		Select(
			entsql.Count("*"),
			"COALESCE(SUM(total_price), 0)",
			"COALESCE(SUM(commission_amount), 0)",
		).
		From(entsql.Table(ordersTable)).
		Where(entsql.And(
			entsql.EQ("shop", shop),
			entsql.GTE("created_at", start),
			entsql.LT("created_at", end),
		)).
		Query()

	d := Delta{Shop: shop, Month: MonthKey(start)}
	if err := exec.QueryRowContext(ctx, query, args...).Scan(&d.Orders, &d.Sales, &d.Commission); err != nil {
		return Delta{}, fmt.Errorf("failed to sum attributed orders: %w", err)
	}
	return d, nil
}

func matches(m *Monthly, d Delta) bool {
	return m.TotalOrders == d.Orders &&
		math.Abs(m.TotalSales-d.Sales) < 0.005 &&
		math.Abs(m.TotalCommission-d.Commission) < 0.005
}

func scanMonthly(rows *sql.Rows) ([]Monthly, error) {
	var list []Monthly
	for rows.Next() {
		var (
			m      Monthly
			paidAt sql.NullTime
		)
		if err := rows.Scan(
			&m.ID, &m.Shop, &m.Month, &m.TotalOrders, &m.TotalSales, &m.TotalCommission,
			&m.IsPaid, &paidAt, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan monthly commission: %w", err)
		}
		if paidAt.Valid {
			t := paidAt.Time
			m.PaidAt = &t
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read monthly commissions: %w", err)
	}
	return list, nil
}
