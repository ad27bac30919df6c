package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/internal/controllers"
	"github.com/muthuabi/coros-vite-sub000/internal/middleware"
)

func UserRoutes(api fiber.Router, h *controllers.UserHandler) {
	authed := middleware.RequireAuth()
	u := api.Group("/user")

	u.Get("/", middleware.RequireSiteAdmin(), h.List)

	u.Get("/me", authed, h.Me)
	u.Put("/me", authed, h.UpdateMe)
	u.Put("/me/password", authed, h.ChangePassword)

	// static segments before /:id
	u.Get("/search", h.Search)
	u.Get("/by-username/:username", h.ByUsername)

	u.Get("/:id", h.Get)
	u.Post("/:id/follow", authed, h.Follow)
	u.Delete("/:id/follow", authed, h.Unfollow)
	u.Get("/:id/followers", h.Followers)
	u.Get("/:id/following", h.Following)
	u.Get("/:id/rooms", h.Rooms)
	u.Get("/:id/posts", h.Posts)
	u.Patch("/:id/role", middleware.RequireSiteAdmin(), h.SetRole)
}
