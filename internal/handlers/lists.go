package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/middleware"
	"github.com/taskboard/backend/internal/models"
	"github.com/taskboard/backend/internal/services"
	"github.com/taskboard/backend/pkg/utils"
	"gorm.io/gorm"
)

type ListsHandler struct {
	DB          *gorm.DB
	Permissions *services.PermissionService
	Lists       *services.ListService
}

func NewListsHandler(db *gorm.DB, permissions *services.PermissionService, lists *services.ListService) *ListsHandler {
	return &ListsHandler{DB: db, Permissions: permissions, Lists: lists}
}

// requireListManage resolves the caller's role via the list's board and
// enforces the manage-lists capability. RoleNone maps to 404.
func (h *ListsHandler) requireListManage(c *fiber.Ctx, listID uuid.UUID) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	role, err := h.Permissions.ResolveRoleByList(c.Context(), currentUser.ID, listID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
	}
	if role == models.RoleNone {
		return utils.Error(c, fiber.StatusNotFound, "list not found")
	}
	if !role.CanManageLists() {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}
	return nil
}

type createListRequest struct {
	BoardID string `json:"boardID"`
	Title   string `json:"title"`
}

func (h *ListsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createListRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title is required")
	}

	boardID, err := parseUUID(req.BoardID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid boardID")
	}

	role, err := h.Permissions.ResolveRole(c.Context(), currentUser.ID, boardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
	}
	if role == models.RoleNone {
		return utils.Error(c, fiber.StatusNotFound, "board not found")
	}
	if !role.CanManageLists() {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	list, err := h.Lists.Create(c.Context(), boardID, title)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating list")
	}

	return utils.Success(c, fiber.StatusCreated, list)
}

type updateListRequest struct {
	Title string `json:"title"`
}

func (h *ListsHandler) Update(c *fiber.Ctx) error {
	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	if err := h.requireListManage(c, listID); err != nil {
		return err
	}

	var req updateListRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title is required")
	}

	if err := h.DB.Model(&models.List{}).Where("id = ?", listID).Update("title", title).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating list")
	}

	var list models.List
	if err := h.DB.First(&list, "id = ?", listID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching list")
	}

	return utils.Success(c, fiber.StatusOK, list)
}

type moveListRequest struct {
	Index int `json:"index"`
}

func (h *ListsHandler) Move(c *fiber.Ctx) error {
	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	if err := h.requireListManage(c, listID); err != nil {
		return err
	}

	var req moveListRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	list, err := h.Lists.Move(c.Context(), listID, req.Index)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "list not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed moving list")
	}

	return utils.Success(c, fiber.StatusOK, list)
}

func (h *ListsHandler) Delete(c *fiber.Ctx) error {
	listID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	if err := h.requireListManage(c, listID); err != nil {
		return err
	}

	if err := h.DB.Delete(&models.List{}, "id = ?", listID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting list")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "list deleted"})
}
