package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ougirez/databaker/internal/pkg/bakecache"
	"github.com/ougirez/databaker/internal/pkg/render"
	"github.com/ougirez/databaker/internal/service/countryprofile"
	"github.com/ougirez/databaker/internal/service/indicators"
)

// PreviewCountryProfile renders a country page from current data. Every request gets its
// own cache, so edits show up without restarting the server.
func (c *Controller) PreviewCountryProfile(ctx echo.Context) error {
	profiles := countryprofile.NewService(indicators.NewService(c.store, bakecache.New()), c.countries, c.baseURL)

	page, err := profiles.Page(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return err
	}

	html, err := c.renderer.Render(render.PageCountryProfile, page)
	if err != nil {
		return err
	}

	return ctx.HTML(http.StatusOK, html)
}
