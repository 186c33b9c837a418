package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"github.com/Growthvoodoo/Capty-shopify/pkg/database/migrate"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Executor is satisfied by both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Client holds the database handles shared by every store
type Client struct {
	Driver  *entsql.Driver
	DB      *sql.DB
	dialect string
}

// PoolConfig holds connection pool configuration
type PoolConfig struct {
	MaxOpenConns    int           // Maximum number of open connections
	MaxIdleConns    int           // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum amount of time a connection may be reused
	ConnMaxIdleTime time.Duration // Maximum amount of time a connection may be idle
}

// SSLConfig holds SSL/TLS configuration for postgres connections
type SSLConfig struct {
	Mode         string // disable, require, verify-ca, verify-full
	CertPath     string // Path to client certificate
	KeyPath      string // Path to client key
	RootCertPath string // Path to root CA certificate
}

// Options configures Open
type Options struct {
	Driver string // sqlite3 or postgres
	URL    string
	Pool   PoolConfig
	SSL    *SSLConfig
}

// DefaultPoolConfig returns the pool used by the API process
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// BuildConnectionString adds SSL parameters to a postgres connection URL
func BuildConnectionString(baseURL string, sslCfg *SSLConfig) (string, error) {
	if sslCfg == nil {
		return baseURL, nil
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}

	query := parsedURL.Query()

	// Overrides any sslmode already present in the URL
	if sslCfg.Mode != "" {
		query.Set("sslmode", sslCfg.Mode)
	}
	if sslCfg.CertPath != "" {
		query.Set("sslcert", sslCfg.CertPath)
	}
	if sslCfg.KeyPath != "" {
		query.Set("sslkey", sslCfg.KeyPath)
	}
	if sslCfg.RootCertPath != "" {
		query.Set("sslrootcert", sslCfg.RootCertPath)
	}

	parsedURL.RawQuery = query.Encode()

	return parsedURL.String(), nil
}

// SQLiteBusyTimeout is how long a sqlite writer waits for the lock, in ms
const SQLiteBusyTimeout = 5000

// sqliteDSN turns on foreign keys, which the ent migrator requires. File
// databases run without the shared cache, with IMMEDIATE transactions and a
// busy timeout, so concurrent writers queue for the lock. In-memory databases
// keep the shared cache and are reported so the pool can be capped at one
// connection.
func sqliteDSN(dsn string) (string, bool) {
	path, rawQuery, _ := strings.Cut(dsn, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		query = url.Values{}
	}

	memory := strings.Contains(path, ":memory:") || query.Get("mode") == "memory"
	if query.Get("_fk") == "" && query.Get("_foreign_keys") == "" {
		query.Set("_fk", "1")
	}
	if !memory {
		if query.Get("cache") == "shared" {
			query.Del("cache")
		}
		if query.Get("_txlock") == "" {
			query.Set("_txlock", "immediate")
		}
		if query.Get("_busy_timeout") == "" && query.Get("_timeout") == "" {
			query.Set("_busy_timeout", strconv.Itoa(SQLiteBusyTimeout))
		}
	}
	return path + "?" + query.Encode(), memory
}

// Open connects to the configured database and wraps it in an ent SQL driver
func Open(opts Options) (*Client, error) {
	var (
		name    string
		connStr string
		err     error
	)

	switch opts.Driver {
	case dialect.Postgres, "postgresql":
		name = dialect.Postgres
		connStr, err = BuildConnectionString(opts.URL, opts.SSL)
		if err != nil {
			return nil, fmt.Errorf("failed building connection string: %w", err)
		}
		if opts.SSL != nil && opts.SSL.Mode != "" && opts.SSL.Mode != "disable" {
			log.Printf("🔒 Database SSL enabled (mode: %s)", opts.SSL.Mode)
		}
	case dialect.SQLite, "sqlite", "":
		var memory bool
		name = dialect.SQLite
		connStr, memory = sqliteDSN(opts.URL)
		if memory {
			opts.Pool.MaxOpenConns = 1
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := sql.Open(name, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed opening connection to %s: %w", name, err)
	}

	if opts.Pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.Pool.MaxOpenConns)
	}
	if opts.Pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.Pool.MaxIdleConns)
	}
	db.SetConnMaxLifetime(opts.Pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.Pool.ConnMaxIdleTime)

	return &Client{
		Driver:  entsql.OpenDB(name, db),
		DB:      db,
		dialect: name,
	}, nil
}

// Migrate creates or updates the tables used by the service
func (c *Client) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(c.Driver)
	if err != nil {
		return fmt.Errorf("failed creating migrator: %w", err)
	}
	if err := m.Create(ctx, migrate.Tables...); err != nil {
		return fmt.Errorf("failed creating schema resources: %w", err)
	}
	return nil
}

// Dialect returns the ent dialect name of the connection
func (c *Client) Dialect() string {
	return c.dialect
}

// Builder returns a SQL builder rendering statements for the connection dialect
func (c *Client) Builder() *entsql.DialectBuilder {
	return entsql.Dialect(c.dialect)
}

// InTx runs fn inside a transaction, rolling back when fn fails
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.Driver.Close()
}

// Ping checks if the database is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Stats returns database connection pool statistics
func (c *Client) Stats() sql.DBStats {
	return c.DB.Stats()
}
