package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Growthvoodoo/Capty-shopify/config"
	"github.com/Growthvoodoo/Capty-shopify/pkg/api/handlers"
	"github.com/Growthvoodoo/Capty-shopify/pkg/clicks"
	"github.com/Growthvoodoo/Capty-shopify/pkg/database"
	"github.com/Growthvoodoo/Capty-shopify/pkg/export"
	"github.com/Growthvoodoo/Capty-shopify/pkg/ledger"
	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testShop = "demo.myshopify.com"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabaseDriver: "sqlite3",
		DatabaseURL:    "file:" + filepath.Join(t.TempDir(), "capty.sqlite") + "?_fk=1",
		CommissionRate: 0.10,
		LogLevel:       "error",
	}
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(cfg)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	out, err := run(t, testConfig(t), "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema up to date (sqlite3)")
}

func TestSeedAndLedger(t *testing.T) {
	cfg := testConfig(t)
	month := ledger.MonthKey(time.Now())

	out, err := run(t, cfg, "seed", "--shop", testShop, "--clicks", "5", "--orders", "4", "--organic", "0", "--seed", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "5 clicks, 4 attributed orders, 0 organic orders")

	out, err = run(t, cfg, "ledger", "list", "--shop", testShop)
	require.NoError(t, err)
	assert.Contains(t, out, "MONTH")
	assert.Contains(t, out, month)
	assert.Contains(t, out, "owed")

	out, err = run(t, cfg, "ledger", "mark-paid", "--shop", testShop, "--month", month)
	require.NoError(t, err)
	assert.Contains(t, out, "Marked "+testShop+" "+month+" as paid")

	out, err = run(t, cfg, "ledger", "list", "--shop", testShop)
	require.NoError(t, err)
	assert.Contains(t, out, "owed 0.00")

	_, err = run(t, cfg, "ledger", "mark-paid", "--shop", testShop, "--month", "1999-01")
	assert.ErrorContains(t, err, "no commission row")

	out, err = run(t, cfg, "ledger", "list", "--shop", "other.myshopify.com")
	require.NoError(t, err)
	assert.Contains(t, out, "No commissions for other.myshopify.com")
}

func TestLedgerExport(t *testing.T) {
	cfg := testConfig(t)
	_, err := run(t, cfg, "seed", "--shop", testShop, "--clicks", "3", "--orders", "3", "--organic", "0", "--seed", "3")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "statement.xlsx")
	out, err := run(t, cfg, "ledger", "export", "--shop", testShop, "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "(1 months, 3 orders)")

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(export.OrdersSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	_, err = run(t, cfg, "ledger", "export", "--shop", testShop)
	assert.ErrorContains(t, err, "nothing to do")

	_, err = run(t, cfg, "ledger", "export", "--shop", testShop, "--upload")
	assert.ErrorContains(t, err, "bucket is not configured")
}

func TestLedger_RequiresShop(t *testing.T) {
	_, err := run(t, testConfig(t), "ledger", "list")
	assert.Error(t, err)
}

func TestReconcile(t *testing.T) {
	cfg := testConfig(t)
	month := ledger.MonthKey(time.Now())

	_, err := run(t, cfg, "seed", "--shop", testShop, "--clicks", "2", "--orders", "3", "--organic", "0", "--seed", "7")
	require.NoError(t, err)

	t.Run("all shops", func(t *testing.T) {
		out, err := run(t, cfg, "reconcile")
		require.NoError(t, err)
		assert.Contains(t, out, "Checked 2 rows across 1 shops: 0 repaired, 0 failed")
	})

	t.Run("repairs a drifted row", func(t *testing.T) {
		db, err := database.Open(database.Options{Driver: cfg.DatabaseDriver, URL: cfg.DatabaseURL})
		require.NoError(t, err)
		_, err = db.DB.Exec(`UPDATE monthly_commissions SET total_orders = 99`)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		out, err := run(t, cfg, "reconcile", "--shop", testShop, "--month", month)
		require.NoError(t, err)
		assert.Contains(t, out, "repaired: 3 orders")

		out, err = run(t, cfg, "reconcile", "--shop", testShop, "--month", month)
		require.NoError(t, err)
		assert.Contains(t, out, "is consistent")
	})

	t.Run("shop without month", func(t *testing.T) {
		_, err := run(t, cfg, "reconcile", "--shop", testShop)
		assert.ErrorContains(t, err, "must be given together")
	})
}

func TestSimulate(t *testing.T) {
	cfg := testConfig(t)

	db, err := database.Open(database.Options{Driver: cfg.DatabaseDriver, URL: cfg.DatabaseURL})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	clickService := clicks.NewService(db, logger.Nop())

	e := echo.New()
	e.GET("/api/proxy", handlers.NewReferralHandler(clickService, nil, logger.Nop(), time.Second).Redirect)
	app := httptest.NewServer(e)
	t.Cleanup(app.Close)

	var (
		mu      sync.Mutex
		updates []map[string]map[string]string
	)
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cart/update.js" {
			http.NotFound(w, r)
			return
		}
		var body map[string]map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		updates = append(updates, body)
		mu.Unlock()
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(store.Close)

	out, err := run(t, cfg, "simulate",
		"--shop", testShop,
		"--product", "blue-shirt",
		"--app-url", app.URL,
		"--store-url", store.URL,
		"--click-id", "sim-click-1",
		"--user-id", "qa_user",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Landing page:  https://demo.myshopify.com/products/blue-shirt?capty_click_id=sim-click-1&capty_user_id=qa_user")
	assert.Contains(t, out, "Cart updates:  2 sent, 0 failed")

	mu.Lock()
	require.Len(t, updates, 2)
	assert.Equal(t, "sim-click-1", updates[0]["attributes"]["capty_click_id"])
	assert.Equal(t, "qa_user", updates[1]["attributes"]["capty_user_id"])
	mu.Unlock()

	event, err := clickService.FindByClickID(context.Background(), testShop, "sim-click-1")
	require.NoError(t, err)
	assert.Equal(t, "blue-shirt", event.ProductHandle)
}

func TestSimulate_StoreRejectsCart(t *testing.T) {
	cfg := testConfig(t)

	e := echo.New()
	e.GET("/api/proxy", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "https://"+testShop+"?capty_click_id="+c.QueryParam("capty_click_id"))
	})
	app := httptest.NewServer(e)
	t.Cleanup(app.Close)

	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	t.Cleanup(store.Close)

	out, err := run(t, cfg, "simulate", "--shop", testShop, "--app-url", app.URL, "--store-url", store.URL)
	assert.ErrorContains(t, err, "status 422")
	assert.Contains(t, out, "2 sent, 2 failed")
}
