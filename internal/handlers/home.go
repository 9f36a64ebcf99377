package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ecoh2o/portal/internal/catalog"
)

// HomeHandler serves the public marketing pages. They are static catalog data;
// no authentication involved.
type HomeHandler struct{}

func NewHomeHandler() *HomeHandler {
	return &HomeHandler{}
}

// Home returns the landing page payload: the water products and waste plans
// with their published FCFA rates.
func (h *HomeHandler) Home(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"products": catalog.Products(),
		"plans":    catalog.Plans(),
	})
}

// Health is the liveness probe.
func (h *HomeHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
