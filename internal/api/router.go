package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jingxuan-bi/report-service/internal/config"
	"github.com/jingxuan-bi/report-service/internal/database"
	"github.com/jingxuan-bi/report-service/internal/export"
	"github.com/jingxuan-bi/report-service/internal/sqltemplate"
)

// NewRouter wires every endpoint under /api/v1.
func NewRouter(cfg *config.Config, templates *sqltemplate.Manager, db *database.Manager, runner *export.Runner, store export.JobStore) http.Handler {
	reports := NewReportHandler(cfg, templates, db)
	exports := NewExportHandler(runner, store)
	system := NewSystemHandler(db, templates)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Query.Timeout + 30*time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Server.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", system.Health)
		r.Get("/health/db", system.HealthDB)

		r.Get("/templates", system.Templates)
		r.Post("/templates/reload", system.ReloadTemplates)
		r.Post("/templates/reload/{name}", system.ReloadTemplates)

		r.Route("/report", func(r chi.Router) {
			r.Post("/order/detail", reports.OrderDetail)
			r.Get("/order/filter-options", reports.OrderFilterOptions)
			r.Post("/{reportType}/query", reports.Query)
			r.Post("/{reportType}/count", reports.Count)
		})

		r.Route("/export", func(r chi.Router) {
			r.Get("/jobs", exports.List)
			r.Get("/jobs/{id}", exports.Get)
			r.Get("/download/{id}", exports.Download)
			r.Post("/{reportType}", exports.Create)
		})
	})

	return r
}
