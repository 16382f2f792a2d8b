package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (c *Controller) ListCharts(ctx echo.Context) error {
	charts, err := c.charts.ListCharts(ctx.Request().Context())
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, charts)
}

func (c *Controller) ListExplorers(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.explorers.All())
}
