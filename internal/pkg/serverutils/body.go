package serverutils

import (
	"chatgpt-clone-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
)

// ParseBody decodes the request body into out. A body that fails to decode
// is the caller's problem, so it surfaces as InvalidArgument rather than an
// internal error.
func ParseBody(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		return apperror.InvalidArgument("malformed request body")
	}
	return nil
}
