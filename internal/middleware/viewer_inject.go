package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

type UserFinder interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
}

// InjectViewer loads the user behind Locals("user_id") into Locals("viewer").
// A token for a user that no longer exists is treated as invalid.
func InjectViewer(users UserFinder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals(LocalUserID).(string); !ok {
			return c.Next()
		}
		uid, err := UIDObjectID(c)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		u, err := users.FindByID(ctx, uid)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrUnauthorized.WithMessage("user no longer exists")
		}
		if err != nil {
			return err
		}
		c.Locals(LocalViewer, u)
		return c.Next()
	}
}
