package handler // declare the package name; contains HTTP handlers

import (
    "net/http" // net/http provides status codes

    "github.com/labstack/echo/v4" // echo is the web framework used for this project

    "github.com/Serious-senpai/pet-house/internal/model" // response envelope
)

// Root answers GET / for health checking.  It always returns 200 with an
// empty envelope and touches no state.
func Root(c echo.Context) error {
    return c.JSON(http.StatusOK, model.Empty())
}
