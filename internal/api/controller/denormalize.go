package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ougirez/databaker/internal/service/denormalize"
)

type denormalizeRequest struct {
	VariableIDs []int64 `json:"variableIds" validate:"omitempty,dive,gt=0"`
}

type denormalizeResponse struct {
	Background       bool     `json:"background"`
	VariableIDs      []int64  `json:"variableIds,omitempty"`
	RowsWritten      int      `json:"rowsWritten"`
	DroppedOrphans   int      `json:"droppedOrphans"`
	MissingCountries []string `json:"missingCountries,omitempty"`
	DurationMs       int64    `json:"durationMs"`
}

func newDenormalizeResponse(res denormalize.Result) denormalizeResponse {
	return denormalizeResponse{
		VariableIDs:      res.VariableIDs,
		RowsWritten:      res.RowsWritten,
		DroppedOrphans:   res.Dropped.Orphans(),
		MissingCountries: res.MissingCountries,
		DurationMs:       res.Duration.Milliseconds(),
	}
}

// Denormalize regenerates country_latest_data. Without variableIds every indicator
// variable is refreshed.
func (c *Controller) Denormalize(ctx echo.Context) error {
	var req denormalizeRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	ids := req.VariableIDs
	if len(ids) == 0 {
		ids = nil
	}

	res, err := c.runner.Run(ctx.Request().Context(), ids)
	if err != nil {
		return err
	}

	if !c.runner.Awaits() {
		return ctx.JSON(http.StatusAccepted, denormalizeResponse{Background: true})
	}
	return ctx.JSON(http.StatusOK, newDenormalizeResponse(res))
}

type denormalizeStatusResponse struct {
	Running    int                  `json:"running"`
	Last       *denormalizeResponse `json:"last,omitempty"`
	Error      string               `json:"error,omitempty"`
	FinishedAt *time.Time           `json:"finishedAt,omitempty"`
}

// DenormalizeStatus reports the outcome of the most recent run, including background runs.
func (c *Controller) DenormalizeStatus(ctx echo.Context) error {
	status := c.runner.Status()

	resp := denormalizeStatusResponse{Running: status.Running}
	if status.Last != nil {
		last := newDenormalizeResponse(status.Last.Result)
		last.Background = !c.runner.Awaits()
		resp.Last = &last
		if status.Last.Err != nil {
			resp.Error = status.Last.Err.Error()
		}
		resp.FinishedAt = &status.FinishedAt
	}
	return ctx.JSON(http.StatusOK, resp)
}
