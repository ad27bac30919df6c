package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/internal/controllers"
	"github.com/muthuabi/coros-vite-sub000/internal/middleware"
)

func RoomRoutes(api fiber.Router, h *controllers.RoomHandler) {
	authed := middleware.RequireAuth()
	r := api.Group("/rooms")

	r.Post("/", authed, h.Create)
	r.Get("/", h.List)
	r.Get("/trending", h.Trending)

	r.Get("/:id", h.Get)
	r.Put("/:id", authed, h.Update)
	r.Delete("/:id", authed, h.Delete)
	r.Get("/:id/stats", h.Stats)
	r.Get("/:id/posts", h.Posts)

	// membership
	r.Post("/:id/join", authed, h.Join)
	r.Delete("/:id/join", authed, h.CancelJoin)
	r.Post("/:id/leave", authed, h.Leave)
	r.Get("/:id/members", h.Members)
	r.Post("/:id/members", authed, h.AddMember)
	r.Delete("/:id/members/:userId", authed, h.RemoveMember)
	r.Get("/:id/requests", authed, h.Requests)
	r.Post("/:id/requests/:userId", authed, h.HandleRequest)

	// room admins
	r.Post("/:id/admins/:userId", authed, h.Promote)
	r.Delete("/:id/admins/:userId", authed, h.Demote)
	r.Post("/:id/pins/:postId", authed, h.TogglePin)
}
