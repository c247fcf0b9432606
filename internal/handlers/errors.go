package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/middleware"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:    fiber.StatusBadRequest,
	apperr.KindAuthorization: fiber.StatusBadRequest,
	apperr.KindConflict:      fiber.StatusBadRequest,
	apperr.KindNotFound:      fiber.StatusNotFound,
	apperr.KindForbidden:     fiber.StatusForbidden,
}

// respondError writes err as a dto.ErrorResponse. Infrastructure failures
// are logged, reported to Sentry and returned without details.
func respondError(c *fiber.Ctx, err error) error {
	ae := apperr.From(err)
	status, ok := statusByKind[ae.Kind]
	if !ok {
		slog.Error("request failed",
			"request_id", c.Locals("requestid"),
			"user_id", middleware.GetViewer(c).ID,
			"action", c.Method()+" "+c.Route().Path,
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "internal server error",
		})
	}

	return c.Status(status).JSON(dto.ErrorResponse{
		Error:   true,
		Message: ae.Message,
		Field:   ae.Field,
		Code:    ae.Code,
		Value:   ae.Value,
	})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: "invalid request body", Code: "parse_error",
	})
}

// paramID reads the :id route parameter. Routes constrain it to integers,
// so anything non-positive is treated as not found.
func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
		Error: true, Message: "not found", Code: "not_found",
	})
}

// ErrorHandler is the Fiber fallback for errors no handler turned into a
// response. Details of 5xx errors are not exposed.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: true, Message: message})
}
