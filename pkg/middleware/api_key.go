package middleware

import (
	"crypto/subtle"

	apierrors "github.com/Growthvoodoo/Capty-shopify/pkg/api/errors"
	"github.com/labstack/echo/v4"
)

// APIKeyHeader carries the shared secret of the commission feed
const APIKeyHeader = "x-capty-api-key"

// RequireAPIKey rejects requests whose header does not carry key.
// An empty key rejects every request.
func RequireAPIKey(header, key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get(header)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return apierrors.UnauthorizedError(c, "invalid or missing "+header)
			}
			return next(c)
		}
	}
}
