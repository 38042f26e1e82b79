package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
)

// ForbiddenAdminAction is returned to non-admin callers of admin endpoints.
const ForbiddenAdminAction = "Forbidden Server Action!"

// AdminHandler exposes admin-only actions. Role checks happen in auth.RequireRole.
type AdminHandler struct{}

// NewAdminHandler constructs handler.
func NewAdminHandler() *AdminHandler {
	return &AdminHandler{}
}

// Action handles GET /api/admin.
func (h *AdminHandler) Action(c *fiber.Ctx) error {
	return c.JSON(dto.MessageResponse{Success: "Allowed Server Action!"})
}
