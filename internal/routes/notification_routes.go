package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/internal/controllers"
	"github.com/muthuabi/coros-vite-sub000/internal/middleware"
)

func NotificationRoutes(api fiber.Router, h *controllers.NotificationHandler) {
	n := api.Group("/notifications", middleware.RequireAuth())
	n.Get("/", h.List)
	n.Patch("/read-all", h.MarkAllRead)
	n.Patch("/:id/read", h.MarkRead)
}

func SearchRoutes(api fiber.Router, h *controllers.SearchHandler) {
	api.Get("/search", h.Do)
}
