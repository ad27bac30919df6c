package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/dto"
	"github.com/muthuabi/coros-vite-sub000/internal/middleware"
	"github.com/muthuabi/coros-vite-sub000/internal/services"
)

const refreshCookie = "refreshToken"

type AuthHandler struct {
	Auth         *services.AuthService
	SecureCookie bool
}

func (h *AuthHandler) setCookies(c *fiber.Ctx, s *services.Session) {
	c.Cookie(&fiber.Cookie{
		Name: middleware.AccessCookie, Value: s.AccessToken, Expires: s.AccessExpiresAt,
		HTTPOnly: true, Secure: h.SecureCookie, SameSite: fiber.CookieSameSiteLaxMode, Path: "/",
	})
	c.Cookie(&fiber.Cookie{
		Name: refreshCookie, Value: s.RefreshToken, Expires: s.RefreshExpiresAt,
		HTTPOnly: true, Secure: h.SecureCookie, SameSite: fiber.CookieSameSiteLaxMode, Path: "/api/auth",
	})
}

func (h *AuthHandler) clearCookies(c *fiber.Ctx) {
	past := time.Unix(0, 0)
	c.Cookie(&fiber.Cookie{Name: middleware.AccessCookie, Value: "", Expires: past, HTTPOnly: true, Path: "/"})
	c.Cookie(&fiber.Cookie{Name: refreshCookie, Value: "", Expires: past, HTTPOnly: true, Path: "/api/auth"})
}

func (h *AuthHandler) refreshToken(c *fiber.Ctx) string {
	var body dto.RefreshReq
	if len(c.Body()) > 0 {
		_ = c.BodyParser(&body)
	}
	if body.RefreshToken != "" {
		return body.RefreshToken
	}
	return c.Cookies(refreshCookie)
}

// Register godoc
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RegisterReq  true  "Account"
// @Success      201   {object}  services.Session
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var body dto.RegisterReq
	if err := bind(c, &body); err != nil {
		return err
	}
	s, err := h.Auth.Register(c.UserContext(), services.RegisterInput{
		Username: body.Username, Email: body.Email, Password: body.Password, FullName: body.FullName,
	})
	if err != nil {
		return err
	}
	h.setCookies(c, s)
	return c.Status(fiber.StatusCreated).JSON(s)
}

// Login godoc
// @Summary      Log in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.LoginReq  true  "Credentials"
// @Success      200   {object}  services.Session
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body dto.LoginReq
	if err := bind(c, &body); err != nil {
		return err
	}
	s, err := h.Auth.Login(c.UserContext(), body.Email, body.Password)
	if err != nil {
		return err
	}
	h.setCookies(c, s)
	return c.JSON(s)
}

// Refresh godoc
// @Summary      Rotate the refresh token and issue a new access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RefreshReq  false  "Refresh token (or refreshToken cookie)"
// @Success      200   {object}  services.Session
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	s, err := h.Auth.Refresh(c.UserContext(), h.refreshToken(c))
	if err != nil {
		return err
	}
	h.setCookies(c, s)
	return c.JSON(s)
}

// Logout godoc
// @Summary      Revoke the refresh token and clear auth cookies
// @Tags         auth
// @Param        body  body  dto.RefreshReq  false  "Refresh token (or refreshToken cookie)"
// @Success      204
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.Auth.Logout(c.UserContext(), h.refreshToken(c)); err != nil {
		return err
	}
	h.clearCookies(c)
	return c.SendStatus(fiber.StatusNoContent)
}
