package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/config"
	"github.com/muthuabi/coros-vite-sub000/dto"
	"github.com/muthuabi/coros-vite-sub000/internal/middleware"
	"github.com/muthuabi/coros-vite-sub000/internal/services"
)

type CommentHandler struct {
	Comments *services.CommentService
}

// POST /api/posts/:id/comments

// @Summary      Create a comment
// @Description  Create a new comment under the given post
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Post ID (hex ObjectID)"
// @Param        body  body      dto.CommentReq  true  "Comment payload (text)"
// @Success      201   {object}  services.CommentView
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/posts/{id}/comments [post]
func (h *CommentHandler) Create(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var body dto.CommentReq
	if err := bind(c, &body); err != nil {
		return err
	}
	com, err := h.Comments.Create(c.UserContext(), middleware.Viewer(c), postID, body.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(com)
}

// GET /api/posts/:id/comments?limit=20&cursor=...

// @Summary      List comments of a post
// @Description  Fetch comments of a post with cursor pagination, newest first
// @Tags         comments
// @Produce      json
// @Param        id      path   string  true   "Post ID (hex ObjectID)"
// @Param        limit   query  int     false  "Max items per page" minimum(1) maximum(100) default(20)
// @Param        cursor  query  string  false  "Opaque next-page cursor"
// @Success      200     {object} services.Page[services.CommentView]
// @Failure      400     {object} dto.ErrorResponse
// @Router       /api/posts/{id}/comments [get]
func (h *CommentHandler) List(c *fiber.Ctx) error {
	postID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	after, limit, err := pageParams(c, config.DefaultLimitComments, config.MaxLimitComments)
	if err != nil {
		return err
	}
	out, err := h.Comments.List(c.UserContext(), middleware.Viewer(c), postID, after, limit)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// PUT /api/comments/:id

// @Summary      Update a comment
// @Description  Only the owner can update a comment
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Comment ID (hex ObjectID)"
// @Param        body  body      dto.CommentReq  true  "Fields to update (text)"
// @Success      200   {object}  services.CommentView
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/comments/{id} [put]
func (h *CommentHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var body dto.CommentReq
	if err := bind(c, &body); err != nil {
		return err
	}
	com, err := h.Comments.Update(c.UserContext(), middleware.ViewerID(c), id, body.Text)
	if err != nil {
		return err
	}
	return c.JSON(com)
}

// DELETE /api/comments/:id

// @Summary      Delete a comment
// @Description  Owner, post owner, room admin or site admin
// @Tags         comments
// @Security     BearerAuth
// @Param        id  path  string  true  "Comment ID (hex ObjectID)"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/comments/{id} [delete]
func (h *CommentHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Comments.Delete(c.UserContext(), middleware.Viewer(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /api/comments/:id/like

// @Summary      Toggle like on a comment
// @Tags         comments
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Comment ID (hex ObjectID)"
// @Success      200  {object}  services.LikeResult
// @Router       /api/comments/{id}/like [post]
func (h *CommentHandler) Like(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.Comments.Like(c.UserContext(), middleware.ViewerID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(res)
}
