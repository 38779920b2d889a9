package router

import (
	"fmt"

	mainapp "trendforge/app"
	handler "trendforge/internal/handler"
	"trendforge/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func Setup() {
	app := fiber.New(fiber.Config{})
	app.Use(cors.New())
	app.Use(recover.New())
	setupRouter(app)
	port := mainapp.Config("WEB_PORT")
	if len(port) == 0 {
		port = "3636"
	}
	fmt.Println("port=", port)
	app.Listen(":" + port)
}

func setupRouter(fiber_app *fiber.App) {
	api := fiber_app.Group("/api", logger.New())

	api.Get("/test.json", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": true, "message": "Pong"})
	})

	// Trend research lifecycle
	trends := api.Group("/research/trends")
	trends.Post("/", handler.TriggerTrendResearch)
	trends.Get("/", handler.ListTrendResearch)
	trends.Get("/:id", handler.GetTrendResearch)
	trends.Patch("/:id/selected", handler.SetTrendSelected)
	trends.Post("/:id/cancel", handler.CancelTrendResearch)

	// Worker callback, shared-key protected
	api.Post("/callbacks/research", middleware.APIKeyAuth(), handler.ResearchCallback)

	// Push tokens
	api.Post("/device_tokens", handler.CreateDeviceToken)
}
