package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/auth"
)

const (
	LocalUserID = "user_id"
	LocalViewer = "viewer"

	AccessCookie = "accessToken"
)

var ErrTokenExpired = apperr.New(http.StatusUnauthorized, "TOKEN_EXPIRED", "access token has expired")

func bearer(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return c.Cookies(AccessCookie)
}

// JWTUidOnly resolves the access token (Authorization header first, then the cookie) into
// Locals("user_id"). Requests without a token pass through anonymously; a bad token is a 401.
func JWTUidOnly(issuer *auth.Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := bearer(c)
		if tokenStr == "" {
			return c.Next()
		}
		uid, _, err := issuer.Parse(tokenStr)
		if errors.Is(err, auth.ErrExpiredToken) {
			return ErrTokenExpired
		}
		if err != nil {
			return apperr.ErrUnauthorized.WithMessage("invalid token")
		}
		c.Locals(LocalUserID, uid.Hex())
		return c.Next()
	}
}
