// Package sessions stores the Shopify sessions created when a shop installs
// the app. The install flow writes them; webhooks read and remove them.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/Growthvoodoo/Capty-shopify/pkg/database"
)

const table = "sessions"

// ErrNotFound is returned when a shop has no session
var ErrNotFound = errors.New("session not found")

// Session is an installed shop's access grant
type Session struct {
	ID          string
	Shop        string
	State       string
	IsOnline    bool
	Scope       string
	ExpiresAt   *time.Time
	AccessToken string
	UserID      *int64
}

// Store handles session persistence
type Store struct {
	db *database.Client
}

// NewStore creates a new session store
func NewStore(db *database.Client) *Store {
	return &Store{db: db}
}

// Save inserts or replaces a session by id
func (s *Store) Save(ctx context.Context, sess Session) error {
	if sess.ID == "" || sess.Shop == "" {
		return fmt.Errorf("session id and shop are required")
	}

	var expires, userID, scope any
	if sess.ExpiresAt != nil {
		expires = sess.ExpiresAt.UTC()
	}
	if sess.UserID != nil {
		userID = *sess.UserID
	}
	if sess.Scope != "" {
		scope = sess.Scope
	}

	query, args := s.db.Builder().
		Insert(table).
		Columns("id", "shop", "state", "is_online", "scope", "expires_at", "access_token", "user_id").
		Values(sess.ID, sess.Shop, sess.State, sess.IsOnline, scope, expires, sess.AccessToken, userID).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()

	if _, err := s.db.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// FindByShop returns the offline session of a shop, falling back to any session
func (s *Store) FindByShop(ctx context.Context, shop string) (*Session, error) {
	query, args := s.db.Builder().
		Select("id", "shop", "state", "is_online", "scope", "expires_at", "access_token", "user_id").
		From(entsql.Table(table)).
		Where(entsql.EQ("shop", shop)).
		OrderBy("is_online", "id").
		Limit(1).
		Query()

	var (
		sess    Session
		scope   sql.NullString
		expires sql.NullTime
		userID  sql.NullInt64
	)
	err := s.db.DB.QueryRowContext(ctx, query, args...).Scan(
		&sess.ID, &sess.Shop, &sess.State, &sess.IsOnline, &scope, &expires, &sess.AccessToken, &userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	sess.Scope = scope.String
	if expires.Valid {
		t := expires.Time
		sess.ExpiresAt = &t
	}
	if userID.Valid {
		id := userID.Int64
		sess.UserID = &id
	}
	return &sess, nil
}

// Exists reports whether the shop has at least one session
func (s *Store) Exists(ctx context.Context, shop string) (bool, error) {
	_, err := s.FindByShop(ctx, shop)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteByShop removes every session of a shop and returns how many were removed
func (s *Store) DeleteByShop(ctx context.Context, shop string) (int64, error) {
	query, args := s.db.Builder().
		Delete(table).
		Where(entsql.EQ("shop", shop)).
		Query()

	res, err := s.db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return n, nil
}
