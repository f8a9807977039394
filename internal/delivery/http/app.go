package http

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/cardiopredict/web/internal/metrics"
	"github.com/cardiopredict/web/internal/service"
	"github.com/cardiopredict/web/pkg/logger"
)

// Version is reported by /health.
const Version = "1.0.0"

// Deps carries everything the web layer needs.
type Deps struct {
	Assessments *service.AssessmentService
	Insights    *service.InsightsService
	Backend     service.HealthChecker
	Audit       service.AuditRepository
	Metrics     *metrics.Recorder

	// SessionTTL sets the session cookie lifetime.
	SessionTTL time.Duration
	// SettleWait is how long a form POST waits for the prediction before
	// redirecting to the pending view.
	SettleWait time.Duration
	// ShowErrorDetail prints error text on the diagnostic page.
	ShowErrorDetail bool
	// AccessLog enables per-request logging.
	AccessLog bool
}

// NewApp builds the fiber application with middleware and routes.
func NewApp(deps Deps) *fiber.App {
	log := logger.New("http")

	// Immutable: form values and the session id outlive the request buffer
	app := fiber.New(fiber.Config{
		AppName:      "CardioPredict Web v" + Version,
		Immutable:    true,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: ErrorBoundary(log, deps.ShowErrorDetail),
		Views:        NewViewEngine(),
		ViewsLayout:  "layouts/main",
	})

	// Middleware
	app.Use(recoverMiddleware(log))
	if deps.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
			Output: os.Stdout,
		}))
	}
	app.Use("/api", cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	SetupRoutes(app, NewHandler(deps), deps.Metrics)
	return app
}
