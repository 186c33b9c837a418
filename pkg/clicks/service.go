// Package clicks records referral clicks. A click is identified by the pair
// (shop, click id) and is never updated once written.
package clicks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/Growthvoodoo/Capty-shopify/pkg/database"
	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
)

const (
	table        = "click_events"
	maxUserAgent = 1024
	maxField     = 255
)

// MaxIDLength is the longest click or user id that is stored
const MaxIDLength = maxField

var (
	// ErrMissingShop is returned when a click has no shop domain
	ErrMissingShop = errors.New("missing shop")
	// ErrNotFound is returned when no click exists for the identity
	ErrNotFound = errors.New("click not found")
)

// Click is the data captured when a shopper follows a referral link
type Click struct {
	Shop          string
	ClickID       string
	UserID        string
	ProductID     string
	ProductHandle string
	IPAddress     string
	UserAgent     string
}

// ClickEvent is a stored click
type ClickEvent struct {
	ID            int
	Shop          string
	ClickID       string
	UserID        string
	ProductID     string
	ProductHandle string
	IPAddress     string
	UserAgent     string
	CreatedAt     time.Time
}

// Service reads and writes click events
type Service struct {
	db  *database.Client
	log logger.Logger
	now func() time.Time
}

// NewService creates a new click service
func NewService(db *database.Client, log logger.Logger) *Service {
	return &Service{
		db:  db,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// RecordClick stores a click. It reports whether a new row was written: a
// click without id is skipped and a repeated (shop, click id) keeps the first
// write.
func (s *Service) RecordClick(ctx context.Context, click Click) (bool, error) {
	shop := strings.TrimSpace(click.Shop)
	if shop == "" {
		return false, ErrMissingShop
	}
	clickID := NormalizeID(click.ClickID)
	if clickID == "" {
		s.log.Debug("click without id skipped", "shop", shop)
		return false, nil
	}

	query, args := s.db.Builder().
		Insert(table).
		Columns("shop", "click_id", "user_id", "product_id", "product_handle", "ip_address", "user_agent", "created_at").
		Values(
			shop,
			clickID,
			nullable(NormalizeID(click.UserID)),
			nullable(Truncate(click.ProductID, maxField)),
			nullable(Truncate(click.ProductHandle, maxField)),
			Truncate(click.IPAddress, maxField),
			Truncate(click.UserAgent, maxUserAgent),
			s.now(),
		).
		OnConflict(entsql.ConflictColumns("shop", "click_id"), entsql.DoNothing()).
		Query()

	res, err := s.db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to record click: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record click: %w", err)
	}
	if n == 0 {
		s.log.Debug("duplicate click ignored", "shop", shop, "click_id", clickID)
		return false, nil
	}
	return true, nil
}

// FindByClickID returns the click recorded for a shop and click id
func (s *Service) FindByClickID(ctx context.Context, shop, clickID string) (*ClickEvent, error) {
	query, args := s.db.Builder().
		Select("id", "shop", "click_id", "user_id", "product_id", "product_handle", "ip_address", "user_agent", "created_at").
		From(entsql.Table(table)).
		Where(entsql.And(entsql.EQ("shop", shop), entsql.EQ("click_id", NormalizeID(clickID)))).
		Limit(1).
		Query()

	var (
		ev                               ClickEvent
		userID, productID, productHandle sql.NullString
	)
	err := s.db.DB.QueryRowContext(ctx, query, args...).Scan(
		&ev.ID, &ev.Shop, &ev.ClickID, &userID, &productID, &productHandle,
		&ev.IPAddress, &ev.UserAgent, &ev.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find click: %w", err)
	}
	ev.UserID = userID.String
	ev.ProductID = productID.String
	ev.ProductHandle = productHandle.String
	return &ev, nil
}

// CountByShop returns the number of clicks recorded for a shop
func (s *Service) CountByShop(ctx context.Context, shop string) (int, error) {
	query, args := s.db.Builder().
		Select(entsql.Count("*")).
		From(entsql.Table(table)).
		Where(entsql.EQ("shop", shop)).
		Query()

	var n int
	if err := s.db.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return n, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// NormalizeID trims an id and cuts it to MaxIDLength. Clicks and orders
// store ids through it so a long id read from either side still matches.
func NormalizeID(id string) string {
	return Truncate(strings.TrimSpace(id), MaxIDLength)
}

// Truncate cuts s to at most n bytes without splitting a rune
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
