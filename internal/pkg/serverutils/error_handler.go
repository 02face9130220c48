// FILE: internal/pkg/serverutils/error_handler.go
package serverutils

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps errors bubbling out of handlers onto the
// response envelope. Access-denied lookups surface as 404 rather than
// leaking whether the resource exists.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		} else if strings.Contains(err.Error(), "not found or access denied") {
			code = fiber.StatusNotFound
			message = err.Error()
		}

		return ctx.Status(code).JSON(ErrorResponse(message))
	}
}
