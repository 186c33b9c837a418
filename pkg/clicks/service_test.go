package clicks

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/Growthvoodoo/Capty-shopify/pkg/database/dbtest"
	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	return NewService(dbtest.Open(t), logger.Nop())
}

func TestRecordClick(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - stores click", func(t *testing.T) {
		svc := setupService(t)

		created, err := svc.RecordClick(ctx, Click{
			Shop:          "demo.myshopify.com",
			ClickID:       "click-123",
			UserID:        "user-9",
			ProductHandle: "blue-shirt",
			IPAddress:     "203.0.113.7",
			UserAgent:     "Mozilla/5.0",
		})
		require.NoError(t, err)
		assert.True(t, created)

		ev, err := svc.FindByClickID(ctx, "demo.myshopify.com", "click-123")
		require.NoError(t, err)
		assert.Equal(t, "user-9", ev.UserID)
		assert.Equal(t, "blue-shirt", ev.ProductHandle)
		assert.Empty(t, ev.ProductID)
		assert.Equal(t, "203.0.113.7", ev.IPAddress)
		assert.False(t, ev.CreatedAt.IsZero())
	})

	t.Run("Success - duplicate keeps first write", func(t *testing.T) {
		svc := setupService(t)

		created, err := svc.RecordClick(ctx, Click{Shop: "demo.myshopify.com", ClickID: "c1", UserID: "first"})
		require.NoError(t, err)
		assert.True(t, created)

		created, err = svc.RecordClick(ctx, Click{Shop: "demo.myshopify.com", ClickID: "c1", UserID: "second"})
		require.NoError(t, err)
		assert.False(t, created)

		ev, err := svc.FindByClickID(ctx, "demo.myshopify.com", "c1")
		require.NoError(t, err)
		assert.Equal(t, "first", ev.UserID)

		n, err := svc.CountByShop(ctx, "demo.myshopify.com")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("Success - same click id in another shop", func(t *testing.T) {
		svc := setupService(t)

		_, err := svc.RecordClick(ctx, Click{Shop: "a.myshopify.com", ClickID: "c1"})
		require.NoError(t, err)
		created, err := svc.RecordClick(ctx, Click{Shop: "b.myshopify.com", ClickID: "c1"})
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("Success - missing click id is skipped", func(t *testing.T) {
		svc := setupService(t)

		created, err := svc.RecordClick(ctx, Click{Shop: "demo.myshopify.com"})
		require.NoError(t, err)
		assert.False(t, created)

		n, err := svc.CountByShop(ctx, "demo.myshopify.com")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Failure - missing shop", func(t *testing.T) {
		svc := setupService(t)

		_, err := svc.RecordClick(ctx, Click{ClickID: "c1"})
		assert.ErrorIs(t, err, ErrMissingShop)
	})

	t.Run("Success - long user agent is truncated", func(t *testing.T) {
		svc := setupService(t)

		_, err := svc.RecordClick(ctx, Click{Shop: "demo.myshopify.com", ClickID: "c1", UserAgent: strings.Repeat("é", 600)})
		require.NoError(t, err)

		ev, err := svc.FindByClickID(ctx, "demo.myshopify.com", "c1")
		require.NoError(t, err)
		assert.LessOrEqual(t, len(ev.UserAgent), maxUserAgent)
		assert.Equal(t, strings.Repeat("é", 512), ev.UserAgent)
	})
}

func TestRecordClick_Concurrent(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.RecordClick(ctx, Click{Shop: "demo.myshopify.com", ClickID: "same"})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestFindByClickID_NotFound(t *testing.T) {
	svc := setupService(t)

	_, err := svc.FindByClickID(context.Background(), "demo.myshopify.com", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByClickID_ScopedByShop(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.RecordClick(ctx, Click{Shop: "a.myshopify.com", ClickID: "c1"})
	require.NoError(t, err)

	_, err = svc.FindByClickID(ctx, "b.myshopify.com", "c1")
	assert.ErrorIs(t, err, ErrNotFound)
}
