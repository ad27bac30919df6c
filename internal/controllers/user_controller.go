package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/config"
	"github.com/muthuabi/coros-vite-sub000/dto"
	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/middleware"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/services"
)

type UserHandler struct {
	Users          *services.UserService
	MaxUploadBytes int64
}

// Me godoc
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/user/me [get]
func (h *UserHandler) Me(c *fiber.Ctx) error {
	return c.JSON(middleware.Viewer(c))
}

// UpdateMe godoc
// @Summary      Update own profile
// @Description  JSON or multipart; an "avatar" file replaces the avatar.
// @Tags         users
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        body    body      dto.UpdateProfileReq  false  "Profile fields"
// @Param        avatar  formData  file                  false  "Avatar image"
// @Success      200     {object}  models.User
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Failure      413     {object}  dto.ErrorResponse
// @Router       /api/user/me [put]
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	var body dto.UpdateProfileReq
	if err := bind(c, &body); err != nil {
		return err
	}
	avatar, files, err := formFile(c, "avatar", h.MaxUploadBytes)
	if err != nil {
		return err
	}
	defer files.Close()

	u, err := h.Users.UpdateProfile(c.UserContext(), middleware.ViewerID(c), services.ProfileInput{
		Username: body.Username,
		FullName: body.FullName,
		Bio:      body.Bio,
		Location: body.Location,
		Website:  body.Website,
	}, avatar)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

// ChangePassword godoc
// @Summary      Change own password
// @Tags         users
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  dto.ChangePasswordReq  true  "Passwords"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/user/me/password [put]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	var body dto.ChangePasswordReq
	if err := bind(c, &body); err != nil {
		return err
	}
	if err := h.Users.ChangePassword(c.UserContext(), middleware.ViewerID(c), body.CurrentPassword, body.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Search godoc
// @Summary      Search users by username or name
// @Tags         users
// @Produce      json
// @Param        q      query     string  true   "Query"
// @Param        limit  query     int     false  "Max results"
// @Success      200    {array}   models.UserSummary
// @Router       /api/user/search [get]
func (h *UserHandler) Search(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return apperr.BadRequest("VALIDATION_ERROR", "q is required")
	}
	out, err := h.Users.Search(c.UserContext(), q, config.ClampLimit(c.QueryInt("limit"), config.DefaultLimit, config.MaxLimit))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// ByUsername godoc
// @Summary      Public profile by username
// @Tags         users
// @Produce      json
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  models.UserSummary
// @Failure      404       {object}  dto.ErrorResponse
// @Router       /api/user/by-username/{username} [get]
func (h *UserHandler) ByUsername(c *fiber.Ctx) error {
	u, err := h.Users.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return c.JSON(profile(c, u))
}

// Get godoc
// @Summary      Public profile by id
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  models.UserSummary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/user/{id} [get]
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.Users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(profile(c, u))
}

// profile hides private fields unless the viewer is the user or a site admin.
func profile(c *fiber.Ctx, u *models.User) any {
	v := middleware.Viewer(c)
	if v != nil && (v.ID == u.ID || v.IsSiteAdmin()) {
		return u
	}
	return u.Summary()
}

// Follow godoc
// @Summary      Follow a user
// @Tags         users
// @Security     BearerAuth
// @Param        id  path  string  true  "User ID"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/user/{id}/follow [post]
func (h *UserHandler) Follow(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Users.Follow(c.UserContext(), middleware.ViewerID(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Unfollow godoc
// @Summary      Unfollow a user
// @Tags         users
// @Security     BearerAuth
// @Param        id  path  string  true  "User ID"
// @Success      204
// @Router       /api/user/{id}/follow [delete]
func (h *UserHandler) Unfollow(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Users.Unfollow(c.UserContext(), middleware.ViewerID(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Followers godoc
// @Summary      Followers of a user
// @Tags         users
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {array}  models.UserSummary
// @Router       /api/user/{id}/followers [get]
func (h *UserHandler) Followers(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.Users.Followers(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Following godoc
// @Summary      Users a user follows
// @Tags         users
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {array}  models.UserSummary
// @Router       /api/user/{id}/following [get]
func (h *UserHandler) Following(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.Users.Following(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Rooms godoc
// @Summary      Rooms a user belongs to
// @Tags         users
// @Produce      json
// @Param        id      path   string  true   "User ID"
// @Param        cursor  query  string  false  "Next-page cursor"
// @Param        limit   query  int     false  "Page size"
// @Success      200  {object}  services.Page[models.Room]
// @Router       /api/user/{id}/rooms [get]
func (h *UserHandler) Rooms(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	after, limit, err := pageParams(c, config.DefaultLimit, config.MaxLimit)
	if err != nil {
		return err
	}
	out, err := h.Users.Rooms(c.UserContext(), middleware.ViewerID(c), id, after, limit)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Posts godoc
// @Summary      Posts authored by a user
// @Tags         users
// @Produce      json
// @Param        id      path   string  true   "User ID"
// @Param        cursor  query  string  false  "Next-page cursor"
// @Param        limit   query  int     false  "Page size"
// @Success      200  {object}  services.Page[models.Post]
// @Router       /api/user/{id}/posts [get]
func (h *UserHandler) Posts(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	after, limit, err := pageParams(c, config.DefaultLimit, config.MaxLimit)
	if err != nil {
		return err
	}
	out, err := h.Users.Posts(c.UserContext(), middleware.ViewerID(c), id, after, limit)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// List godoc
// @Summary      All users (site admin)
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        cursor  query  string  false  "Next-page cursor"
// @Param        limit   query  int     false  "Page size"
// @Success      200  {object}  services.Page[models.User]
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/user [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	after, limit, err := pageParams(c, config.DefaultLimit, config.MaxLimit)
	if err != nil {
		return err
	}
	out, err := h.Users.List(c.UserContext(), middleware.Viewer(c), after, limit)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// SetRole godoc
// @Summary      Change a user's site role (site admin)
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "User ID"
// @Param        body  body      dto.SetRoleReq  true  "Role"
// @Success      200   {object}  models.User
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/user/{id}/role [patch]
func (h *UserHandler) SetRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var body dto.SetRoleReq
	if err := bind(c, &body); err != nil {
		return err
	}
	u, err := h.Users.SetRole(c.UserContext(), middleware.Viewer(c), id, models.Role(body.Role))
	if err != nil {
		return err
	}
	return c.JSON(u)
}
