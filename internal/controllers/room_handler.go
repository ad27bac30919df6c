package controllers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/config"
	"github.com/muthuabi/coros-vite-sub000/dto"
	"github.com/muthuabi/coros-vite-sub000/internal/middleware"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/services"
)

type RoomHandler struct {
	Rooms          *services.RoomService
	MaxUploadBytes int64
}

// Create godoc
// @Summary      Create a room
// @Description  JSON or multipart; a "cover" file sets the cover image. The creator becomes its first admin.
// @Tags         rooms
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        body   body      dto.CreateRoomReq  true   "Room"
// @Param        cover  formData  file               false  "Cover image"
// @Success      201    {object}  services.RoomView
// @Failure      400    {object}  dto.ErrorResponse
// @Failure      409    {object}  dto.ErrorResponse
// @Router       /api/rooms [post]
func (h *RoomHandler) Create(c *fiber.Ctx) error {
	var body dto.CreateRoomReq
	if err := bind(c, &body); err != nil {
		return err
	}
	cover, files, err := formFile(c, "cover", h.MaxUploadBytes)
	if err != nil {
		return err
	}
	defer files.Close()

	v, err := h.Rooms.Create(c.UserContext(), middleware.ViewerID(c), services.RoomInput{
		Name:        body.Name,
		Description: body.Description,
		Tags:        body.Tags,
		RoomType:    models.RoomType(body.RoomType),
		IsVisible:   body.IsVisible,
	}, cover)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(v)
}

// List godoc
// @Summary      Browse listed rooms
// @Tags         rooms
// @Produce      json
// @Param        q         query  string  false  "Name contains"
// @Param        tag       query  string  false  "Tag"
// @Param        roomType  query  string  false  "public or private"
// @Param        cursor    query  string  false  "Next-page cursor"
// @Param        limit     query  int     false  "Page size"
// @Success      200  {object}  services.Page[models.Room]
// @Router       /api/rooms [get]
func (h *RoomHandler) List(c *fiber.Ctx) error {
	after, limit, err := pageParams(c, config.DefaultLimit, config.MaxLimit)
	if err != nil {
		return err
	}
	out, err := h.Rooms.List(c.UserContext(), middleware.ViewerID(c), models.RoomQuery{
		Search:   strings.TrimSpace(c.Query("q")),
		Tag:      strings.TrimSpace(c.Query("tag")),
		RoomType: models.RoomType(c.Query("roomType")),
		After:    after,
		Limit:    limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Trending godoc
// @Summary      Top rooms by engagement
// @Tags         rooms
// @Produce      json
// @Param        limit  query  int  false  "Max results"
// @Success      200  {array}  models.Room
// @Router       /api/rooms/trending [get]
func (h *RoomHandler) Trending(c *fiber.Ctx) error {
	limit := config.ClampLimit(c.QueryInt("limit"), 10, config.MaxLimit)
	out, err := h.Rooms.Trending(c.UserContext(), middleware.ViewerID(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Room detail with the viewer's membership
// @Tags         rooms
// @Produce      json
// @Param        id   path      string  true  "Room ID"
// @Success      200  {object}  services.RoomView
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/rooms/{id} [get]
func (h *RoomHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	v, err := h.Rooms.Get(c.UserContext(), middleware.Viewer(c), id)
	if err != nil {
		return err
	}
	return c.JSON(v)
}

// Update godoc
// @Summary      Edit a room (room admin)
// @Description  Switching a private room to public approves every pending request.
// @Tags         rooms
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string             true   "Room ID"
// @Param        body   body      dto.UpdateRoomReq  true   "Fields to change"
// @Param        cover  formData  file               false  "Cover image"
// @Success      200    {object}  services.RoomView
// @Failure      403    {object}  dto.ErrorResponse
// @Failure      409    {object}  dto.ErrorResponse
// @Router       /api/rooms/{id} [put]
func (h *RoomHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var body dto.UpdateRoomReq
	if err := bind(c, &body); err != nil {
		return err
	}
	cover, files, err := formFile(c, "cover", h.MaxUploadBytes)
	if err != nil {
		return err
	}
	defer files.Close()

	patch := services.RoomPatch{
		Name:        body.Name,
		Description: body.Description,
		Tags:        body.Tags,
		IsVisible:   body.IsVisible,
	}
	if body.RoomType != nil {
		t := models.RoomType(*body.RoomType)
		patch.RoomType = &t
	}
	v, err := h.Rooms.Update(c.UserContext(), middleware.Viewer(c), id, patch, cover)
	if err != nil {
		return err
	}
	return c.JSON(v)
}

// Delete godoc
// @Summary      Delete a room (creator or site admin)
// @Tags         rooms
// @Security     BearerAuth
// @Param        id  path  string  true  "Room ID"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/rooms/{id} [delete]
func (h *RoomHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Rooms.Delete(c.UserContext(), middleware.Viewer(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Stats godoc
// @Summary      Room counters
// @Tags         rooms
// @Produce      json
// @Param        id   path      string  true  "Room ID"
// @Success      200  {object}  services.RoomStats
// @Router       /api/rooms/{id}/stats [get]
func (h *RoomHandler) Stats(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	st, err := h.Rooms.Stats(c.UserContext(), middleware.Viewer(c), id)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

// Join godoc
// @Summary      Join a public room or request to join a private one
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true   "Room ID"
// @Param        body  body      dto.JoinRoomReq  false  "Optional request message"
// @Success      200   {object}  dto.JoinRoomResp
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/rooms/{id}/join [post]
func (h *RoomHandler) Join(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var body dto.JoinRoomReq
	if len(c.Body()) > 0 {
		if err := bind(c, &body); err != nil {
			return err
		}
	}
	state, err := h.Rooms.Join(c.UserContext(), middleware.Viewer(c), id, body.Message)
	if err != nil {
		return err
	}
	return c.JSON(dto.JoinRoomResp{Status: string(state)})
}

// CancelJoin godoc
// @Summary      Withdraw a pending join request
// @Tags         rooms
// @Security     BearerAuth
// @Param        id  path  string  true  "Room ID"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/rooms/{id}/join [delete]
func (h *RoomHandler) CancelJoin(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Rooms.CancelJoin(c.UserContext(), middleware.ViewerID(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Leave godoc
// @Summary      Leave a room
// @Tags         rooms
// @Security     BearerAuth
// @Param        id  path  string  true  "Room ID"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/rooms/{id}/leave [post]
func (h *RoomHandler) Leave(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Rooms.Leave(c.UserContext(), middleware.ViewerID(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Members godoc
// @Summary      Room admins and members
// @Tags         rooms
// @Produce      json
// @Param        id   path      string  true  "Room ID"
// @Success      200  {object}  services.RoomMembers
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/rooms/{id}/members [get]
func (h *RoomHandler) Members(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.Rooms.Members(c.UserContext(), middleware.Viewer(c), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// AddMember godoc
// @Summary      Add a user to the room (room admin)
// @Tags         rooms
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string            true  "Room ID"
// @Param        body  body  dto.AddMemberReq  true  "User"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/rooms/{id}/members [post]
func (h *RoomHandler) AddMember(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var body dto.AddMemberReq
	if err := bind(c, &body); err != nil {
		return err
	}
	uid, err := objectID(body.UserID)
	if err != nil {
		return err
	}
	if err := h.Rooms.AddMember(c.UserContext(), middleware.ViewerID(c), id, uid); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveMember godoc
// @Summary      Remove a member or admin (room admin; removing an admin needs the creator)
// @Tags         rooms
// @Security     BearerAuth
// @Param        id      path  string  true  "Room ID"
// @Param        userId  path  string  true  "User ID"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/rooms/{id}/members/{userId} [delete]
func (h *RoomHandler) RemoveMember(c *fiber.Ctx) error {
	return h.roomUser(c, h.Rooms.RemoveMember)
}

// Requests godoc
// @Summary      Pending join requests (room admin)
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string  true  "Room ID"
// @Success      200  {array}  services.JoinRequestView
// @Failure      403  {object} dto.ErrorResponse
// @Router       /api/rooms/{id}/requests [get]
func (h *RoomHandler) Requests(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.Rooms.JoinRequests(c.UserContext(), middleware.ViewerID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// HandleRequest godoc
// @Summary      Approve or reject a join request (room admin)
// @Tags         rooms
// @Accept       json
// @Security     BearerAuth
// @Param        id      path  string                true  "Room ID"
// @Param        userId  path  string                true  "Requesting user"
// @Param        body    body  dto.HandleRequestReq  true  "approve or reject"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/rooms/{id}/requests/{userId} [post]
func (h *RoomHandler) HandleRequest(c *fiber.Ctx) error {
	var body dto.HandleRequestReq
	if err := bind(c, &body); err != nil {
		return err
	}
	approve := body.Action == "approve"
	return h.roomUser(c, func(ctx context.Context, actor, id, uid bson.ObjectID) error {
		return h.Rooms.HandleRequest(ctx, actor, id, uid, approve)
	})
}

// Promote godoc
// @Summary      Promote a member to admin (room admin)
// @Tags         rooms
// @Security     BearerAuth
// @Param        id      path  string  true  "Room ID"
// @Param        userId  path  string  true  "User ID"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/rooms/{id}/admins/{userId} [post]
func (h *RoomHandler) Promote(c *fiber.Ctx) error {
	return h.roomUser(c, h.Rooms.Promote)
}

// Demote godoc
// @Summary      Demote an admin back to member (room creator)
// @Tags         rooms
// @Security     BearerAuth
// @Param        id      path  string  true  "Room ID"
// @Param        userId  path  string  true  "User ID"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/rooms/{id}/admins/{userId} [delete]
func (h *RoomHandler) Demote(c *fiber.Ctx) error {
	return h.roomUser(c, h.Rooms.Demote)
}

// roomUser runs a room admin action addressed at /:id/.../:userId.
func (h *RoomHandler) roomUser(c *fiber.Ctx, fn func(ctx context.Context, actor, id, uid bson.ObjectID) error) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	uid, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	if err := fn(c.UserContext(), middleware.ViewerID(c), id, uid); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// TogglePin godoc
// @Summary      Pin or unpin a room post (room admin)
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true  "Room ID"
// @Param        postId  path      string  true  "Post ID"
// @Success      200     {object}  dto.PinResp
// @Failure      422     {object}  dto.ErrorResponse
// @Router       /api/rooms/{id}/pins/{postId} [post]
func (h *RoomHandler) TogglePin(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	postID, err := paramID(c, "postId")
	if err != nil {
		return err
	}
	pinned, err := h.Rooms.TogglePin(c.UserContext(), middleware.ViewerID(c), id, postID)
	if err != nil {
		return err
	}
	return c.JSON(dto.PinResp{Pinned: pinned})
}

// Posts godoc
// @Summary      Room feed; the first page carries pinned posts
// @Tags         rooms
// @Produce      json
// @Param        id       path   string  true   "Room ID"
// @Param        type     query  string  false  "Post type"
// @Param        hashtag  query  string  false  "Hashtag"
// @Param        cursor   query  string  false  "Next-page cursor"
// @Param        limit    query  int     false  "Page size"
// @Success      200  {object}  services.RoomPosts
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/rooms/{id}/posts [get]
func (h *RoomHandler) Posts(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	after, limit, err := pageParams(c, config.DefaultLimit, config.MaxLimit)
	if err != nil {
		return err
	}
	out, err := h.Rooms.Posts(c.UserContext(), middleware.Viewer(c), id, models.PostQuery{
		Type:    models.PostType(c.Query("type")),
		Hashtag: c.Query("hashtag"),
		After:   after,
		Limit:   limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(out)
}
