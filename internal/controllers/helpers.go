package controllers

import (
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/config"
	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/cursor"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/services"
	"github.com/muthuabi/coros-vite-sub000/internal/validation"
)

func paramID(c *fiber.Ctx, name string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(c.Params(name))
	if err != nil {
		return bson.NilObjectID, apperr.ErrInvalidID.WithMessage("invalid %s", name)
	}
	return id, nil
}

func objectID(hex string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return bson.NilObjectID, apperr.ErrInvalidID
	}
	return id, nil
}

// pageParams reads ?cursor= and ?limit=.
func pageParams(c *fiber.Ctx, def, maxLimit int) (*models.After, int, error) {
	after, err := cursor.DecodeCursor(c.Query("cursor"))
	if err != nil {
		return nil, 0, err
	}
	return after, config.ClampLimit(c.QueryInt("limit", def), def, maxLimit), nil
}

// bind parses the body into v and validates it.
func bind(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperr.ErrInvalidBody
	}
	return validation.Struct(v)
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// uploads opens the files of a multipart field. The returned closer must be called once the
// service is done reading.
type uploads struct {
	files []multipart.File
	items []services.Upload
}

func (u *uploads) Close() {
	for _, f := range u.files {
		_ = f.Close()
	}
}

func formFiles(c *fiber.Ctx, field string, maxBytes int64) (*uploads, error) {
	out := &uploads{}
	if !isMultipart(c) {
		return out, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperr.ErrInvalidBody.WithMessage("invalid multipart form")
	}
	for _, fh := range form.File[field] {
		if maxBytes > 0 && fh.Size > maxBytes {
			out.Close()
			return nil, services.ErrUploadTooLarge.WithMessage("%s exceeds the upload limit", fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			out.Close()
			return nil, err
		}
		out.files = append(out.files, f)
		out.items = append(out.items, services.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return out, nil
}

// formFile is formFiles for a single optional file.
func formFile(c *fiber.Ctx, field string, maxBytes int64) (*services.Upload, *uploads, error) {
	u, err := formFiles(c, field, maxBytes)
	if err != nil {
		return nil, nil, err
	}
	if len(u.items) == 0 {
		return nil, u, nil
	}
	return &u.items[0], u, nil
}
