package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/ougirez/databaker/internal/api/controller"
	"github.com/ougirez/databaker/internal/pkg/logger"
)

type APIService struct {
	router *echo.Echo
}

func (svc *APIService) Serve(addr string) {
	logger.Fatal(context.Background(), svc.router.Start(addr))
}

func (svc *APIService) Shutdown(ctx context.Context) error {
	return svc.router.Shutdown(ctx)
}

// Router exposes the echo instance, mostly for tests.
func (svc *APIService) Router() *echo.Echo {
	return svc.router
}

func NewAPIService(cntrl *controller.Controller, allowOrigins []string) (*APIService, error) {
	svc := &APIService{router: echo.New()}

	svc.router.HideBanner = true
	svc.router.JSONSerializer = NewJSONSerializer()
	svc.router.Validator = NewValidator()
	svc.router.Binder = NewBinder()
	svc.router.Use(middleware.Logger())
	svc.router.Use(middleware.Recover())
	svc.router.HTTPErrorHandler = httpErrorHandler
	svc.router.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{echo.GET, echo.PUT, echo.POST, echo.DELETE},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	api := svc.router.Group("/api/v1", svc.AuthMiddleware)

	datasets := api.Group("/datasets")
	datasets.GET("/:id/csv", cntrl.GetDatasetCSV)
	datasets.GET("/:id/datapackage", cntrl.GetDatasetDatapackage)
	datasets.PUT("/:id/tags", cntrl.SetDatasetTags)

	api.GET("/charts", cntrl.ListCharts)
	api.GET("/explorers", cntrl.ListExplorers)

	countries := api.Group("/countries")
	countries.GET("/:slug/preview", cntrl.PreviewCountryProfile)

	api.POST("/denormalize", cntrl.Denormalize)
	api.GET("/denormalize", cntrl.DenormalizeStatus)

	return svc, nil
}
