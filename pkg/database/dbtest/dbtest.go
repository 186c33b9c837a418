// Package dbtest opens migrated in-memory sqlite databases for tests.
package dbtest

import (
	"context"
	"strings"
	"testing"

	"github.com/Growthvoodoo/Capty-shopify/pkg/database"
	"github.com/stretchr/testify/require"
)

// Open returns a migrated client backed by a private in-memory sqlite database.
// The pool is capped at one connection so every statement sees the same
// database and concurrent writers queue instead of failing with SQLITE_BUSY.
func Open(t *testing.T) *database.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	client, err := database.Open(database.Options{
		Driver: "sqlite3",
		URL:    "file:" + name + "?mode=memory&cache=shared&_fk=1",
		Pool:   database.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1},
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Migrate(context.Background()))
	return client
}
