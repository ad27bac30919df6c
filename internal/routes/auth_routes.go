package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/internal/controllers"
)

func AuthRoutes(app *fiber.App, h *controllers.AuthHandler) {
	a := app.Group("/api/auth")
	a.Post("/register", h.Register)
	a.Post("/login", h.Login)
	// refresh token comes from the body or the refreshToken cookie
	a.Post("/refresh", h.Refresh)
	a.Post("/logout", h.Logout)
}
