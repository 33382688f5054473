package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/middleware"
	"github.com/taskboard/backend/internal/models"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// parseBoardRole normalizes and validates a role supplied by a client.
func parseBoardRole(value string) (models.BoardRole, bool) {
	role := models.BoardRole(strings.ToLower(strings.TrimSpace(value)))
	if !role.IsValid() {
		return models.RoleNone, false
	}
	return role, true
}

func getRequestID(c *fiber.Ctx) string {
	return middleware.GetRequestID(c)
}
