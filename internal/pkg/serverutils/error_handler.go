package serverutils

import (
	"errors"

	"chatgpt-clone-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps typed application errors to HTTP responses.
// Controllers return errors; this is the single place that knows about
// status codes.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message, ""))
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return ctx.Status(StatusForKind(appErr.Kind)).
				JSON(ErrorResponse(appErr.Message, appErr.Kind.String()))
		}

		return ctx.Status(fiber.StatusInternalServerError).
			JSON(ErrorResponse("Internal Server Error", ""))
	}
}

func StatusForKind(kind apperror.Kind) int {
	switch kind {
	case apperror.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindInvalidArgument:
		return fiber.StatusBadRequest
	case apperror.KindConflict:
		return fiber.StatusConflict
	case apperror.KindProviderUnavailable:
		return fiber.StatusServiceUnavailable
	case apperror.KindStreamFailure, apperror.KindCommitFailure:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
