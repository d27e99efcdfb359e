package server

import (
	"log"
	"strings"

	"pv-analysis-be/internal/bootstrap"
	"pv-analysis-be/internal/config"
	"pv-analysis-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins(cfg),
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	// Routes
	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

// corsOrigins merges the shell's own allowed origins with every configured
// module origin, so module REST calls pass CORS with the same table that
// gates the websocket handshakes.
func corsOrigins(cfg *config.Config) string {
	seen := make(map[string]bool)
	var origins []string
	for _, origin := range strings.Split(cfg.App.CorsAllowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" && !seen[origin] {
			seen[origin] = true
			origins = append(origins, origin)
		}
	}
	for _, origin := range cfg.Modules.Origins {
		if !seen[origin] {
			seen[origin] = true
			origins = append(origins, origin)
		}
	}
	return strings.Join(origins, ",")
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.ProjectController.RegisterRoutes(api)
	c.TransportHandler.RegisterRoutes(api)
}
