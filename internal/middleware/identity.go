package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// IdentityContextKey is where the authenticated identity is stored on the
// echo context.
const IdentityContextKey = "identity"

// identityHeader carries the identity asserted by the upstream auth service.
const identityHeader = "X-Auth-User"

// Identity protects routes that require an authenticated caller. Token
// validation happens in the auth service in front of us; by the time a
// request reaches this middleware the header carries a verified username.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.Request().Header.Get(identityHeader)
			if user == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "no authenticated identity")
			}

			c.Set(IdentityContextKey, user)
			return next(c)
		}
	}
}
