package controller

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ougirez/databaker/internal/service/dataset"
)

func (c *Controller) GetDatasetCSV(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	d, err := c.datasets.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}

	// the status is committed below, so every store read has to happen before it
	export, err := c.datasets.LoadExport(ctx.Request().Context(), id)
	if err != nil {
		return err
	}

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	resp.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", dataset.Filename(d)+".csv"))
	resp.WriteHeader(http.StatusOK)

	return export.Write(ctx.Request().Context(), resp)
}

func (c *Controller) GetDatasetDatapackage(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	pkg, err := c.datasets.Datapackage(ctx.Request().Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, pkg)
}

type setTagsRequest struct {
	TagIDs []int64 `json:"tagIds" validate:"dive,gt=0"`
}

func (c *Controller) SetDatasetTags(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	var req setTagsRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	if err := c.datasets.SetTags(ctx.Request().Context(), id, req.TagIDs); err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, map[string]bool{"success": true})
}
