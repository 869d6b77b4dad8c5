package serverutils

import (
	"errors"
	"fmt"
	"runtime/debug"

	"pdf-qa-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// StatusResolver maps a domain error to an HTTP status. ok=false falls back to 500.
type StatusResolver func(err error) (status int, ok bool)

// ErrorHandlerMiddleware turns panics in later handlers into 500 errors.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("HTTP", "Panic recovered", map[string]interface{}{
					"method": ctx.Method(),
					"path":   ctx.Path(),
					"panic":  fmt.Sprint(r),
					"stack":  string(debug.Stack()),
				})
				err = fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
			}
		}()
		return ctx.Next()
	}
}

// NewErrorHandler renders every returned error as an ErrorResponse envelope.
func NewErrorHandler(resolve StatusResolver) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := err.Error()

		var fiberErr *fiber.Error
		var validationErr *ValidationError
		switch {
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			message = fiberErr.Message
		case errors.As(err, &validationErr):
			status = fiber.StatusBadRequest
		default:
			if resolve != nil {
				if code, ok := resolve(err); ok {
					status = code
				}
			}
			if status == fiber.StatusInternalServerError {
				message = "Internal server error"
			}
		}

		return ctx.Status(status).JSON(ErrorResponse(status, message))
	}
}
