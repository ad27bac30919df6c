package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/internal/auth"
	"github.com/muthuabi/coros-vite-sub000/internal/controllers"
	"github.com/muthuabi/coros-vite-sub000/internal/middleware"
	"github.com/muthuabi/coros-vite-sub000/internal/search"
	"github.com/muthuabi/coros-vite-sub000/internal/services"
)

type Deps struct {
	Services       *services.Services
	Search         *search.Service
	Issuer         *auth.Issuer
	Users          middleware.UserFinder
	MaxUploadBytes int64
	SecureCookie   bool
	ReadyChecks    []controllers.ReadyCheck
}

// Register mounts every /api route. Auth endpoints go first so they never see the token middleware.
func Register(app *fiber.App, d Deps) {
	health := &controllers.HealthHandler{Checks: d.ReadyChecks}
	app.Get("/healthz", health.Healthz)
	app.Get("/api/ready", health.Ready)

	AuthRoutes(app, &controllers.AuthHandler{Auth: d.Services.Auth, SecureCookie: d.SecureCookie})

	api := app.Group("/api", middleware.JWTUidOnly(d.Issuer), middleware.InjectViewer(d.Users))

	UserRoutes(api, &controllers.UserHandler{Users: d.Services.Users, MaxUploadBytes: d.MaxUploadBytes})
	RoomRoutes(api, &controllers.RoomHandler{Rooms: d.Services.Rooms, MaxUploadBytes: d.MaxUploadBytes})
	PostRoutes(api, &controllers.PostHandler{Posts: d.Services.Posts, MaxUploadBytes: d.MaxUploadBytes})
	CommentRoutes(api, &controllers.CommentHandler{Comments: d.Services.Comments})
	NotificationRoutes(api, &controllers.NotificationHandler{Notifications: d.Services.Notifications})
	SearchRoutes(api, &controllers.SearchHandler{Search: d.Search})
}
