// Package attribution credits Shopify orders to Capty referrals and books
// their commission in the monthly ledger.
package attribution

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/Growthvoodoo/Capty-shopify/pkg/clicks"
	"github.com/Growthvoodoo/Capty-shopify/pkg/commission"
	"github.com/Growthvoodoo/Capty-shopify/pkg/database"
	"github.com/Growthvoodoo/Capty-shopify/pkg/ledger"
	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
)

const table = "attributed_orders"

// DefaultRecentLimit is the number of orders returned by ListRecent when no limit is given
const DefaultRecentLimit = 50

// Outcome is what happened to an order
type Outcome string

const (
	OutcomeUnattributed Outcome = "unattributed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeAttributed   Outcome = "attributed"
)

// ClickFinder looks up the click an order was attributed to
type ClickFinder interface {
	FindByClickID(ctx context.Context, shop, clickID string) (*clicks.ClickEvent, error)
}

// LedgerWriter applies commission increments inside the caller's transaction
type LedgerWriter interface {
	UpsertMonthly(ctx context.Context, exec database.Executor, d ledger.Delta) error
}

// Result describes a processed order
type Result struct {
	Outcome        Outcome
	OrderID        string
	Reference      string
	Month          string
	Commission     commission.Quote
	ClickedProduct string
}

// AttributedOrder is a stored order credited to a referral
type AttributedOrder struct {
	ID               int
	Shop             string
	OrderID          string
	OrderName        string
	ClickID          string
	UserID           string
	TotalPrice       float64
	CurrencyCode     string
	CommissionAmount float64
	CommissionRate   float64
	OrderStatus      string
	CommissionPaid   bool
	CreatedAt        time.Time
}

// Reference returns the Capty reference of the order
func (o AttributedOrder) Reference() string {
	return commission.OrderReference(o.OrderID, o.ClickID)
}

// Service handles order attribution
type Service struct {
	db     *database.Client
	clicks ClickFinder
	ledger LedgerWriter
	calc   *commission.Calculator
	log    logger.Logger
	now    func() time.Time
}

// NewService creates a new attribution service
func NewService(db *database.Client, clicks ClickFinder, ledger LedgerWriter, calc *commission.Calculator, log logger.Logger) *Service {
	return &Service{
		db:     db,
		clicks: clicks,
		ledger: ledger,
		calc:   calc,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock that decides the order timestamp and ledger month
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ProcessOrder attributes an order to its click, if any. The order row and the
// ledger increment are written in one transaction, and an order already
// stored for the shop is reported as a duplicate without touching the ledger.
func (s *Service) ProcessOrder(ctx context.Context, shop string, order Order) (Result, error) {
	res := Result{OrderID: order.ID}
	if len(order.ID) > maxOrderID {
		return res, fmt.Errorf("%w: order id longer than %d bytes", ErrInvalidOrder, maxOrderID)
	}
	order = order.normalized()
	if !order.Attributed() {
		res.Outcome = OutcomeUnattributed
		return res, nil
	}

	// Enrichment only: the commission is owed even when the click is unknown.
	click, err := s.clicks.FindByClickID(ctx, shop, order.ClickID)
	switch {
	case errors.Is(err, clicks.ErrNotFound):
		s.log.Info("no click record for order", "shop", shop, "order_id", order.ID, "click_id", order.ClickID)
	case err != nil:
		s.log.Warn("click lookup failed", "shop", shop, "order_id", order.ID, "error", err)
	default:
		res.ClickedProduct = click.ProductHandle
		if res.ClickedProduct == "" {
			res.ClickedProduct = click.ProductID
		}
		if order.UserID == "" {
			order.UserID = click.UserID
		}
	}

	now := s.now()
	quote := s.calc.Compute(order.TotalPrice, order.Currency)
	res.Commission = quote
	res.Month = ledger.MonthKey(now)
	res.Reference = commission.OrderReference(order.ID, order.ClickID)

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		query, args := s.db.Builder().
			Insert(table).
			Columns(
				"shop", "order_id", "order_name", "click_id", "user_id", "total_price", "currency_code",
				"commission_amount", "commission_rate", "order_status", "commission_paid", "created_at",
			).
			Values(
				shop, order.ID, order.Name, order.ClickID, nullable(order.UserID), order.TotalPrice, quote.Currency,
				quote.Amount, quote.Rate, order.FinancialStatus, false, now,
			).
			OnConflict(entsql.ConflictColumns("shop", "order_id"), entsql.DoNothing()).
			Query()

		r, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert attributed order: %w", err)
		}
		n, err := r.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to insert attributed order: %w", err)
		}
		if n == 0 {
			res.Outcome = OutcomeDuplicate
			return nil
		}

		if err := s.ledger.UpsertMonthly(ctx, tx, ledger.Delta{
			Shop:       shop,
			Month:      res.Month,
			Orders:     1,
			Sales:      order.TotalPrice,
			Commission: quote.Amount,
		}); err != nil {
			return err
		}
		res.Outcome = OutcomeAttributed
		return nil
	})
	if err != nil {
		return Result{OrderID: order.ID}, err
	}

	return res, nil
}

// ListRecent returns the newest attributed orders of a shop
func (s *Service) ListRecent(ctx context.Context, shop string, limit int) ([]AttributedOrder, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	query, args := s.db.Builder().
		Select(
			"id", "shop", "order_id", "order_name", "click_id", "user_id", "total_price", "currency_code",
			"commission_amount", "commission_rate", "order_status", "commission_paid", "created_at",
		).
		From(entsql.Table(table)).
		Where(entsql.EQ("shop", shop)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(limit).
		Query()

	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attributed orders: %w", err)
	}
	defer rows.Close()

	var orders []AttributedOrder
	for rows.Next() {
		var (
			o               AttributedOrder
			clickID, userID sql.NullString
		)
		if err := rows.Scan(
			&o.ID, &o.Shop, &o.OrderID, &o.OrderName, &clickID, &userID, &o.TotalPrice, &o.CurrencyCode,
			&o.CommissionAmount, &o.CommissionRate, &o.OrderStatus, &o.CommissionPaid, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attributed order: %w", err)
		}
		o.ClickID = clickID.String
		o.UserID = userID.String
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attributed orders: %w", err)
	}
	return orders, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
