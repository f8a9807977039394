package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/filesystem"

	"github.com/cardiopredict/web/internal/domain"
	"github.com/cardiopredict/web/internal/metrics"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler, rec *metrics.Recorder) {
	// Health check and metrics
	app.Get("/health", handler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(rec.Handler()))

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   staticFiles(),
		MaxAge: 3600,
	}))

	// Pages
	app.Get("/", handler.staticPage("home", "Overview", nil))
	app.Get("/about", handler.staticPage("about", "Methodology", fiber.Map{
		"ElevatedThreshold": domain.ElevatedThreshold,
		"HighThreshold":     domain.HighThreshold,
	}))
	app.Get("/disclaimer", handler.staticPage("disclaimer", "Legal", nil))
	app.Get("/predict", handler.PredictPage)
	app.Post("/predict", handler.SubmitForm)
	app.Post("/predict/reset", handler.ResetForm)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		api.Get("/assessment", handler.GetAssessment)
		api.Post("/assessment", handler.SubmitAssessment)
		api.Delete("/assessment", handler.ResetAssessment)
		api.Get("/insights", handler.GetInsights)
	}
}
