package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/internal/controllers"
	"github.com/muthuabi/coros-vite-sub000/internal/middleware"
)

func CommentRoutes(api fiber.Router, h *controllers.CommentHandler) {
	authed := middleware.RequireAuth()

	// GET /api/posts/:id/comments?limit=20&cursor=...
	api.Get("/posts/:id/comments", h.List)
	api.Post("/posts/:id/comments", authed, h.Create)

	c := api.Group("/comments", authed)
	c.Put("/:id", h.Update)
	c.Delete("/:id", h.Delete)
	c.Post("/:id/like", h.Like)
}
