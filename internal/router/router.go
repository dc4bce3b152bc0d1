package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/Serious-senpai/pet-house/internal/handler" // route handlers
)

// RegisterRoutes registers the public routes on e.  The service exposes a
// single health-check endpoint at "/".  Route-level middleware such as the
// response cache or the rate limiter is passed through mw.
func RegisterRoutes(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	e.GET("/", handler.Root, mw...)
}
