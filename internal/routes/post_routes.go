package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/internal/controllers"
	"github.com/muthuabi/coros-vite-sub000/internal/middleware"
)

func PostRoutes(api fiber.Router, h *controllers.PostHandler) {
	authed := middleware.RequireAuth()
	p := api.Group("/posts")

	p.Post("/", authed, h.Create)
	p.Get("/", h.Feed)
	p.Get("/trending-tags", h.TrendingTags)

	p.Get("/:id", h.Get)
	p.Put("/:id", authed, h.Update)
	p.Delete("/:id", authed, h.Delete)

	p.Post("/:id/vote", authed, h.Vote)
	p.Post("/:id/like", authed, h.Like)
	p.Post("/:id/poll", authed, h.PollVote)

	// Q&A
	p.Get("/:id/answers", h.Answers)
	p.Post("/:id/answers", authed, h.Answer)
	p.Post("/:id/accept/:answerId", authed, h.Accept)
	p.Delete("/:id/accept", authed, h.Unaccept)

	p.Get("/:id/viewers", authed, h.Viewers)
}
