package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/config"
	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/middleware"
	"github.com/muthuabi/coros-vite-sub000/internal/search"
)

type SearchHandler struct {
	Search *search.Service
}

// Search godoc
// @Summary      Search rooms, posts and users
// @Description  Uses Meilisearch when it is healthy, the database otherwise. Results the caller cannot see are dropped.
// @Tags         search
// @Produce      json
// @Param        q      query  string  true   "Query text"
// @Param        type   query  string  false  "room | post | user (all when empty)"
// @Param        limit  query  int     false  "Max hits per kind"
// @Success      200  {object}  search.Response
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/search [get]
func (h *SearchHandler) Do(c *fiber.Ctx) error {
	kind, ok := search.ParseKind(c.Query("type"))
	if !ok {
		return &apperr.DomainError{
			Status:  fiber.StatusBadRequest,
			Code:    "VALIDATION_ERROR",
			Message: "type must be room, post or user",
			Details: map[string]string{"type": "oneof"},
		}
	}
	limit := config.ClampLimit(c.QueryInt("limit"), config.DefaultLimit, config.MaxLimit)
	resp, err := h.Search.Search(c.UserContext(), middleware.ViewerID(c), c.Query("q"), kind, limit)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
