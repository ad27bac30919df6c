package controllers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/muthuabi/coros-vite-sub000/dto"
	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/logger"
)

var statusCodes = map[int]string{
	http.StatusBadRequest:            "BAD_REQUEST",
	http.StatusUnauthorized:          "UNAUTHORIZED",
	http.StatusForbidden:             "FORBIDDEN",
	http.StatusNotFound:              "NOT_FOUND",
	http.StatusMethodNotAllowed:      "METHOD_NOT_ALLOWED",
	http.StatusConflict:              "CONFLICT",
	http.StatusRequestEntityTooLarge: "FILE_TOO_LARGE",
	http.StatusUnprocessableEntity:   "UNPROCESSABLE",
	http.StatusTooManyRequests:       "RATE_LIMITED",
}

// ErrorHandler turns every error returned by a handler into the JSON error body.
// Unknown errors are reported and answered 500 without leaking their text.
func ErrorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if de, ok := apperr.As(err); ok {
			body := dto.ErrorResponse{Error: de.Message, Code: de.Code}
			if fields, ok := de.Details.(map[string]string); ok {
				body.Fields = fields
			}
			if de.Status >= http.StatusInternalServerError {
				log.Error("request failed", "route", c.Method()+" "+c.Path(), "err", err)
			}
			return c.Status(de.Status).JSON(body)
		}

		if fe, ok := err.(*fiber.Error); ok {
			code, known := statusCodes[fe.Code]
			if !known {
				code = "INTERNAL"
			}
			if fe.Code >= http.StatusInternalServerError {
				log.Error("request failed", "route", c.Method()+" "+c.Path(), "err", err)
			}
			return c.Status(fe.Code).JSON(dto.ErrorResponse{Error: fe.Message, Code: code})
		}

		log.Error("unhandled error", "route", c.Method()+" "+c.Path(), "err", err)
		return c.Status(http.StatusInternalServerError).
			JSON(dto.ErrorResponse{Error: "internal server error", Code: "INTERNAL"})
	}
}
