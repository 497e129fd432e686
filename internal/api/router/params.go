// Package router binds the knowledge base operations to HTTP routes.
package router

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
)

const apiPrefix = "/api/v1"

func paramID(c echo.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.NewValidation(fmt.Sprintf("invalid %s %q", name, raw))
	}
	return id, nil
}

func queryID(c echo.Context, name string) (int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, apperr.NewValidation(fmt.Sprintf("%s query parameter is required", name))
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.NewValidation(fmt.Sprintf("invalid %s %q", name, raw))
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.NewValidation(fmt.Sprintf("invalid %s %q", name, raw))
	}
	return n, nil
}

func queryBool(c echo.Context, name string, def bool) (bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.NewValidation(fmt.Sprintf("invalid %s %q", name, raw))
	}
	return b, nil
}
