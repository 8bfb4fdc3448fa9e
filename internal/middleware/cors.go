package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"jsonrelay/internal/cors"
)

// CORS returns an Echo middleware that sets the CORS headers from policy on
// every response, before any handler or error path runs. OPTIONS requests are
// answered here with 200 and an empty body; nothing downstream executes.
func CORS(policy *cors.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			policy.Apply(c.Response().Header(), c.Request().Header.Get(echo.HeaderOrigin))

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}

			return next(c)
		}
	}
}
