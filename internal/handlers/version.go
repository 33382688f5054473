package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/taskboard/backend/pkg/utils"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

func GetVersion(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, fiber.Map{"version": Version})
}
