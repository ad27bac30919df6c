package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/config"
	"github.com/muthuabi/coros-vite-sub000/dto"
	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/middleware"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/services"
	"github.com/muthuabi/coros-vite-sub000/internal/validation"
)

type PostHandler struct {
	Posts          *services.PostService
	MaxUploadBytes int64
}

// readCreateForm fills the fields a multipart form cannot bind directly.
func readCreateForm(c *fiber.Ctx, body *dto.CreatePostReq) error {
	if title := c.FormValue("questionDetails.title"); title != "" {
		body.QuestionDetails = &dto.QuestionDetailsReq{
			Title: title,
			Body:  c.FormValue("questionDetails.body"),
		}
		if form, err := c.MultipartForm(); err == nil {
			body.QuestionDetails.Tags = form.Value["questionDetails.tags"]
		}
	}
	if raw := c.FormValue("pollEndsAt"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return apperr.BadRequest("VALIDATION_ERROR", "pollEndsAt must be an RFC3339 timestamp")
		}
		body.PollEndsAt = &t
	}
	return nil
}

func questionInput(q *dto.QuestionDetailsReq) *services.QuestionInput {
	if q == nil {
		return nil
	}
	return &services.QuestionInput{Title: q.Title, Body: q.Body, Tags: q.Tags}
}

// Create godoc
// @Summary      Create a post
// @Description  JSON or multipart form-data. Media posts send files under "media"; in forms the
// @Description  question fields are questionDetails.title / .body / .tags.
// @Tags         posts
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        body   body      dto.CreatePostReq  true   "Post"
// @Param        media  formData  file               false  "Attachments (repeatable)"
// @Success      201    {object}  services.PostView
// @Failure      400    {object}  dto.ErrorResponse
// @Failure      403    {object}  dto.ErrorResponse
// @Failure      413    {object}  dto.ErrorResponse
// @Router       /api/posts [post]
func (h *PostHandler) Create(c *fiber.Ctx) error {
	var body dto.CreatePostReq
	if err := c.BodyParser(&body); err != nil {
		return apperr.ErrInvalidBody
	}
	if isMultipart(c) {
		if err := readCreateForm(c, &body); err != nil {
			return err
		}
	}
	if err := validation.Struct(&body); err != nil {
		return err
	}
	files, err := formFiles(c, "media", h.MaxUploadBytes)
	if err != nil {
		return err
	}
	defer files.Close()

	in := services.PostInput{
		Scope:        models.PostScope(body.Scope),
		Type:         models.PostType(body.Type),
		Content:      body.Content,
		Question:     questionInput(body.QuestionDetails),
		PollOptions:  body.PollOptions,
		PollMultiple: body.PollMultiple,
		PollEndsAt:   body.PollEndsAt,
	}
	if body.RoomID != "" {
		roomID, err := objectID(body.RoomID)
		if err != nil {
			return err
		}
		in.RoomID = &roomID
	}
	v, err := h.Posts.Create(c.UserContext(), middleware.Viewer(c), in, files.items)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(v)
}

// Feed godoc
// @Summary      Global and personal feed, newest first
// @Tags         posts
// @Produce      json
// @Param        scope    query  string  false  "global or personal"
// @Param        type     query  string  false  "Post type"
// @Param        hashtag  query  string  false  "Hashtag"
// @Param        cursor   query  string  false  "Next-page cursor"
// @Param        limit    query  int     false  "Page size"
// @Success      200  {object}  services.Page[models.Post]
// @Router       /api/posts [get]
func (h *PostHandler) Feed(c *fiber.Ctx) error {
	after, limit, err := pageParams(c, config.DefaultLimit, config.MaxLimit)
	if err != nil {
		return err
	}
	out, err := h.Posts.Feed(c.UserContext(), middleware.ViewerID(c), services.FeedQuery{
		Scope:   models.PostScope(c.Query("scope")),
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

// TrendingTags godoc
// @Summary      Most used hashtags over the last days
// @Tags         posts
// @Produce      json
// @Param        days   query  int  false  "Window in days (default 7)"
// @Param        limit  query  int  false  "Max results"
// @Success      200  {object}  dto.TrendingTagsResp
// @Router       /api/posts/trending-tags [get]
func (h *PostHandler) TrendingTags(c *fiber.Ctx) error {
	days := config.ClampLimit(c.QueryInt("days"), config.TrendingDays, 90)
	limit := config.ClampLimit(c.QueryInt("limit"), 10, config.MaxLimit)
	items, err := h.Posts.TrendingTags(c.UserContext(), days, limit)
	if err != nil {
		return err
	}
	return c.JSON(dto.TrendingTagsResp{Days: days, Items: items})
}

// Get godoc
// @Summary      Post detail; records a view for signed-in viewers
// @Tags         posts
// @Produce      json
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  services.PostView
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/posts/{id} [get]
func (h *PostHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	v, err := h.Posts.Get(c.UserContext(), middleware.Viewer(c), id)
	if err != nil {
		return err
	}
	return c.JSON(v)
}

// Update godoc
// @Summary      Edit a post (author)
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Post ID"
// @Param        body  body      dto.UpdatePostReq  true  "Fields to change"
// @Success      200   {object}  models.Post
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/posts/{id} [put]
func (h *PostHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var body dto.UpdatePostReq
	if err := bind(c, &body); err != nil {
		return err
	}
	p, err := h.Posts.Update(c.UserContext(), middleware.ViewerID(c), id, services.PostPatch{
		Content:    body.Content,
		Question:   questionInput(body.QuestionDetails),
		PollEndsAt: body.PollEndsAt,
	})
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// Delete godoc
// @Summary      Delete a post (author, room admin or site admin)
// @Tags         posts
// @Security     BearerAuth
// @Param        id  path  string  true  "Post ID"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/posts/{id} [delete]
func (h *PostHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Posts.Delete(c.UserContext(), middleware.Viewer(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Vote godoc
// @Summary      Up/down vote; repeating the current vote withdraws it
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string       true  "Post ID"
// @Param        body  body      dto.VoteReq  true  "up, down or none"
// @Success      200   {object}  services.VoteResult
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/posts/{id}/vote [post]
func (h *PostHandler) Vote(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var body dto.VoteReq
	if err := bind(c, &body); err != nil {
		return err
	}
	res, err := h.Posts.Vote(c.UserContext(), middleware.ViewerID(c), id, models.VoteDir(body.Vote))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// Like godoc
// @Summary      Toggle like
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  services.LikeResult
// @Router       /api/posts/{id}/like [post]
func (h *PostHandler) Like(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.Posts.Like(c.UserContext(), middleware.ViewerID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// PollVote godoc
// @Summary      Vote on a poll option
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Post ID"
// @Param        body  body      dto.PollVoteReq  true  "Option index"
// @Success      200   {object}  models.Post
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/posts/{id}/poll [post]
func (h *PostHandler) PollVote(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var body dto.PollVoteReq
	if err := bind(c, &body); err != nil {
		return err
	}
	p, err := h.Posts.PollVote(c.UserContext(), middleware.ViewerID(c), id, *body.Option)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// Answers godoc
// @Summary      Answers of a question; the accepted answer leads the first page
// @Tags         posts
// @Produce      json
// @Param        id      path   string  true   "Question ID"
// @Param        cursor  query  string  false  "Next-page cursor"
// @Param        limit   query  int     false  "Page size"
// @Success      200  {object}  services.Page[models.Post]
// @Router       /api/posts/{id}/answers [get]
func (h *PostHandler) Answers(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	after, limit, err := pageParams(c, config.DefaultLimit, config.MaxLimit)
	if err != nil {
		return err
	}
	out, err := h.Posts.Answers(c.UserContext(), middleware.Viewer(c), id, after, limit)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Answer godoc
// @Summary      Answer a question
// @Tags         posts
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string         true   "Question ID"
// @Param        body   body      dto.AnswerReq  true   "Answer"
// @Param        media  formData  file           false  "Attachments"
// @Success      201    {object}  models.Post
// @Failure      400    {object}  dto.ErrorResponse
// @Router       /api/posts/{id}/answers [post]
func (h *PostHandler) Answer(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var body dto.AnswerReq
	if err := bind(c, &body); err != nil {
		return err
	}
	files, err := formFiles(c, "media", h.MaxUploadBytes)
	if err != nil {
		return err
	}
	defer files.Close()

	a, err := h.Posts.Answer(c.UserContext(), middleware.Viewer(c), id, body.Content, files.items)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

// Accept godoc
// @Summary      Accept an answer (question author)
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      string  true  "Question ID"
// @Param        answerId  path      string  true  "Answer ID"
// @Success      200       {object}  models.Post
// @Failure      403       {object}  dto.ErrorResponse
// @Router       /api/posts/{id}/accept/{answerId} [post]
func (h *PostHandler) Accept(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	answerID, err := paramID(c, "answerId")
	if err != nil {
		return err
	}
	a, err := h.Posts.Accept(c.UserContext(), middleware.ViewerID(c), id, answerID)
	if err != nil {
		return err
	}
	return c.JSON(a)
}

// Unaccept godoc
// @Summary      Clear the accepted answer (question author)
// @Tags         posts
// @Security     BearerAuth
// @Param        id  path  string  true  "Question ID"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/posts/{id}/accept [delete]
func (h *PostHandler) Unaccept(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Posts.Unaccept(c.UserContext(), middleware.ViewerID(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Viewers godoc
// @Summary      Who viewed a post (author or site admin)
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string  true  "Post ID"
// @Success      200  {array}  services.ViewerEntry
// @Failure      403  {object} dto.ErrorResponse
// @Router       /api/posts/{id}/viewers [get]
func (h *PostHandler) Viewers(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.Posts.Viewers(c.UserContext(), middleware.Viewer(c), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

