package controller

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/ougirez/databaker/internal/pkg/constants"
	"github.com/ougirez/databaker/internal/pkg/countries"
	"github.com/ougirez/databaker/internal/pkg/render"
	"github.com/ougirez/databaker/internal/pkg/store"
	"github.com/ougirez/databaker/internal/service/charts"
	"github.com/ougirez/databaker/internal/service/dataset"
	"github.com/ougirez/databaker/internal/service/denormalize"
	"github.com/ougirez/databaker/internal/service/explorer"
)

type Controller struct {
	store     store.Store
	datasets  *dataset.Service
	charts    *charts.Service
	explorers *explorer.Catalog
	countries *countries.List
	renderer  render.Renderer
	runner    *denormalize.Runner
	baseURL   string
}

type Deps struct {
	Store     store.Store
	Explorers *explorer.Catalog
	Countries *countries.List
	Renderer  render.Renderer
	Runner    *denormalize.Runner
	BaseURL   string
}

func NewController(deps Deps) *Controller {
	return &Controller{
		store:     deps.Store,
		datasets:  dataset.NewService(deps.Store),
		charts:    charts.NewService(deps.Store, deps.BaseURL),
		explorers: deps.Explorers,
		countries: deps.Countries,
		renderer:  deps.Renderer,
		runner:    deps.Runner,
		baseURL:   deps.BaseURL,
	}
}

func paramID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, constants.ErrBadRequest
	}
	return id, nil
}
