package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-pricewatch/docs"
	"go-pricewatch/internal/api/handler"
	"go-pricewatch/pkg/router"
)

// Deps are the components the routes are served from. Metrics is optional.
type Deps struct {
	Exports *handler.ExportHandler
	DB      handler.Pinger
	Metrics http.Handler
}

func RegisterRoutes(r *router.Router, d Deps) {
	r.GET("/healthz", handler.Health(d.DB))

	r.GET("/api/v1/exports", d.Exports.ListExportTypes)
	r.GET("/api/v1/exports/download", d.Exports.Download)
	r.GET("/api/v1/exports/runs", d.Exports.ListRuns)
	r.GET("/api/v1/exports/runs/*", d.Exports.GetRun)

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}
	r.Handle("/swagger/*", httpSwagger.WrapHandler)
}
