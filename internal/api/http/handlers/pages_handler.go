package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/auth"
)

// PagesHandler serves the page endpoints whose rendering lives in the frontend.
// Each returns just enough for the frontend to render the page.
type PagesHandler struct{}

// NewPagesHandler constructs handler.
func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

// Home handles GET /.
func (h *PagesHandler) Home(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"page": "home"})
}

// AuthPage handles GET /auth/:page.
func (h *PagesHandler) AuthPage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"page": c.Params("page")})
}

// Settings handles GET /settings.
func (h *PagesHandler) Settings(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	return c.JSON(fiber.Map{"page": "settings", "user": session})
}
