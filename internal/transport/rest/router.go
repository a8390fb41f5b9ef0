package rest

import (
	"log/slog"

	"github.com/frahmantamala/expense-tracker/api"
	"github.com/frahmantamala/expense-tracker/internal/category"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/internal/transport/middleware"
	"github.com/frahmantamala/expense-tracker/internal/transport/swagger"
	"github.com/go-chi/chi"
)

type RouterOptions struct {
	AllowedOrigins []string
	// ExposeStack adds panic stacks to 500 responses.
	ExposeStack bool
}

func NewRouter() *chi.Mux {
	return chi.NewRouter()
}

func RegisterAllRoutes(router *chi.Mux, health *HealthHandler, expenseHandler *expense.Handler, categoryHandler *category.Handler, opts RouterOptions, logger *slog.Logger) {
	if health == nil {
		health = NewHealthHandler()
	}

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger, opts.ExposeStack))

	swagger.Mount(router, api.Document)

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", health.healthCheckHandler)
		r.Get("/ping", health.pingHandler)

		if categoryHandler != nil {
			r.Get("/categories", categoryHandler.GetCategories)
		}

		if expenseHandler != nil {
			r.Route("/expenses", expenseHandler.Routes)
		}
	})
}
