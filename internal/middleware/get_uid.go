package middleware

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
)

// UIDObjectID reads the user id set by JWTUidOnly.
func UIDObjectID(c *fiber.Ctx) (bson.ObjectID, error) {
	uid, ok := c.Locals(LocalUserID).(string)
	if !ok || uid == "" {
		return bson.NilObjectID, apperr.ErrUnauthorized
	}
	oid, err := bson.ObjectIDFromHex(uid)
	if err != nil {
		return bson.NilObjectID, apperr.ErrUnauthorized
	}
	return oid, nil
}

// Viewer returns the signed-in user, or nil for anonymous requests.
func Viewer(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(LocalViewer).(*models.User)
	return u
}

// ViewerID is the signed-in user's id or the nil id.
func ViewerID(c *fiber.Ctx) bson.ObjectID {
	if u := Viewer(c); u != nil {
		return u.ID
	}
	return bson.NilObjectID
}

func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Viewer(c) == nil {
			return apperr.ErrUnauthorized
		}
		return c.Next()
	}
}

func RequireSiteAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := Viewer(c)
		if u == nil {
			return apperr.ErrUnauthorized
		}
		if !u.IsSiteAdmin() {
			return apperr.ErrForbidden.WithMessage("site admin only")
		}
		return c.Next()
	}
}
