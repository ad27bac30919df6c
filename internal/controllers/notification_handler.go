package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/config"
	"github.com/muthuabi/coros-vite-sub000/dto"
	"github.com/muthuabi/coros-vite-sub000/internal/middleware"
	"github.com/muthuabi/coros-vite-sub000/internal/services"
)

type NotificationHandler struct {
	Notifications *services.NotificationService
}

// List godoc
// @Summary      My notifications, newest first
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        unread  query  bool    false  "Only unread"
// @Param        cursor  query  string  false  "Next-page cursor"
// @Param        limit   query  int     false  "Page size"
// @Success      200  {object}  services.NotificationList
// @Router       /api/notifications [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	after, limit, err := pageParams(c, config.DefaultLimit, config.MaxLimit)
	if err != nil {
		return err
	}
	out, err := h.Notifications.List(c.UserContext(), middleware.ViewerID(c), c.QueryBool("unread"), after, limit)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// MarkRead godoc
// @Summary      Mark one notification read
// @Tags         notifications
// @Security     BearerAuth
// @Param        id  path  string  true  "Notification ID"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Notifications.MarkRead(c.UserContext(), middleware.ViewerID(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllRead godoc
// @Summary      Mark every notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.MarkAllReadResp
// @Router       /api/notifications/read-all [patch]
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	n, err := h.Notifications.MarkAllRead(c.UserContext(), middleware.ViewerID(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.MarkAllReadResp{Updated: n})
}
