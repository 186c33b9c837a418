package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Growthvoodoo/Capty-shopify/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// captureLog redirects the standard logger to a buffer while fn runs
func captureLog(fn func()) string {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)
	fn()
	return buf.String()
}

func TestErrorHelpers(t *testing.T) {
	internal := errors.New(`pq: duplicate key value violates unique constraint "attributedorder_shop_order_id"`)

	tests := []struct {
		name       string
		call       func(c echo.Context) error
		wantStatus int
		wantCode   string
	}{
		{"validation", func(c echo.Context) error { return ValidationError(c, internal) }, http.StatusBadRequest, "validation_error"},
		{"bad request", func(c echo.Context) error { return BadRequestError(c, "missing_shop", "Missing shop parameter") }, http.StatusBadRequest, "missing_shop"},
		{"database", func(c echo.Context) error { return DatabaseError(c, internal) }, http.StatusInternalServerError, "database_error"},
		{"internal", func(c echo.Context) error { return InternalError(c, internal) }, http.StatusInternalServerError, "internal_error"},
		{"unauthorized", func(c echo.Context) error { return UnauthorizedError(c, "bad key") }, http.StatusUnauthorized, "unauthorized"},
		{"not found", func(c echo.Context) error { return NotFoundError(c, "shop") }, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/api/commissions")
			require.NoError(t, tt.call(c))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
			assert.Equal(t, tt.wantCode, parseBody(t, rec).Error)
			assert.NotContains(t, rec.Body.String(), "pq:")
		})
	}
}

func TestInternalError_LogsCause(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/webhooks")

	out := captureLog(func() {
		_ = InternalError(c, errors.New("connection refused"))
	})

	assert.Contains(t, out, "[INTERNAL ERROR]")
	assert.Contains(t, out, "/webhooks")
	assert.Contains(t, out, "connection refused")
}

func TestBadRequestError_ExposesMessage(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/api/proxy")
	_ = BadRequestError(c, "missing_shop", "Missing shop parameter")

	assert.Equal(t, "Missing shop parameter", parseBody(t, rec).Message)
}
