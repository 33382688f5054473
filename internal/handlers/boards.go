package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/middleware"
	"github.com/taskboard/backend/internal/models"
	"github.com/taskboard/backend/internal/services"
	"github.com/taskboard/backend/pkg/utils"
	"gorm.io/gorm"
)

type BoardsHandler struct {
	DB          *gorm.DB
	Permissions *services.PermissionService
	Audit       *services.AuditService
}

func NewBoardsHandler(db *gorm.DB, permissions *services.PermissionService, audit *services.AuditService) *BoardsHandler {
	return &BoardsHandler{DB: db, Permissions: permissions, Audit: audit}
}

// resolveViewer returns the caller's effective role on the board, treating
// public boards as viewer-visible to anyone, authenticated or not. RoleNone
// means the caller must see a 404: a denied existence probe and a missing
// board are indistinguishable on purpose.
func (h *BoardsHandler) resolveViewer(c *fiber.Ctx, boardID uuid.UUID) (models.BoardRole, error) {
	if currentUser := middleware.GetCurrentUser(c); currentUser != nil {
		role, err := h.Permissions.ResolveRole(c.Context(), currentUser.ID, boardID)
		if err != nil {
			return models.RoleNone, err
		}
		if role != models.RoleNone {
			return role, nil
		}
	}

	public, err := h.Permissions.IsBoardPublic(c.Context(), boardID)
	if err != nil {
		return models.RoleNone, err
	}
	if public {
		return models.RoleViewer, nil
	}
	return models.RoleNone, nil
}

type createBoardRequest struct {
	WorkspaceID string  `json:"workspaceID"`
	Title       string  `json:"title"`
	Color       *string `json:"color"`
}

func (h *BoardsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title is required")
	}

	workspaceID, err := parseUUID(req.WorkspaceID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid workspaceID")
	}

	var workspace models.Workspace
	if err := h.DB.First(&workspace, "id = ?", workspaceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "workspace not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading workspace")
	}
	if workspace.OwnerID != currentUser.ID {
		return utils.Error(c, fiber.StatusNotFound, "workspace not found")
	}

	board := models.Board{
		WorkspaceID: workspaceID,
		Title:       title,
		Color:       req.Color,
	}
	if err := h.DB.Create(&board).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating board")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "board.create",
		ResourceType: "board",
		ResourceID:   &board.ID,
		Details: map[string]interface{}{
			"board_title":  title,
			"workspace_id": workspaceID.String(),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, board)
}

// Get returns the board with its lists and their cards in display order.
// Registered behind OptionalAuth so public boards render without a login.
func (h *BoardsHandler) Get(c *fiber.Ctx) error {
	boardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid board id")
	}

	role, err := h.resolveViewer(c, boardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
	}
	if !role.CanView() {
		return utils.Error(c, fiber.StatusNotFound, "board not found")
	}

	includeArchived := c.Query("includeArchived") == "true"

	var board models.Board
	query := h.DB.
		Preload("Lists", func(db *gorm.DB) *gorm.DB {
			return db.Order("position, created_at")
		})
	if includeArchived {
		query = query.Preload("Lists.Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("position, created_at")
		})
	} else {
		query = query.Preload("Lists.Cards", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_archived = ?", false).Order("position, created_at")
		})
	}
	if err := query.First(&board, "id = ?", boardID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "board not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading board")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"board": board,
		"role":  role,
	})
}

type updateBoardRequest struct {
	Title    *string `json:"title"`
	Color    *string `json:"color"`
	IsPublic *bool   `json:"isPublic"`
}

func (h *BoardsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	boardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid board id")
	}

	role, err := h.Permissions.ResolveRole(c.Context(), currentUser.ID, boardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
	}
	if role == models.RoleNone {
		return utils.Error(c, fiber.StatusNotFound, "board not found")
	}
	if !role.CanManageBoard() {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req updateBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return utils.Error(c, fiber.StatusBadRequest, "title cannot be empty")
		}
		updates["title"] = title
	}
	if req.Color != nil {
		trimmed := strings.TrimSpace(*req.Color)
		if trimmed == "" {
			updates["color"] = nil
		} else {
			updates["color"] = trimmed
		}
	}
	if req.IsPublic != nil {
		updates["is_public"] = *req.IsPublic
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.Board{}).Where("id = ?", boardID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating board")
	}

	var board models.Board
	if err := h.DB.First(&board, "id = ?", boardID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching board")
	}

	return utils.Success(c, fiber.StatusOK, board)
}

func (h *BoardsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	boardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid board id")
	}

	role, err := h.Permissions.ResolveRole(c.Context(), currentUser.ID, boardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
	}
	if role == models.RoleNone {
		return utils.Error(c, fiber.StatusNotFound, "board not found")
	}
	if !role.CanManageBoard() {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var board models.Board
	if err := h.DB.Select("id", "title").First(&board, "id = ?", boardID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading board")
	}

	if err := h.DB.Delete(&models.Board{}, "id = ?", boardID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting board")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "board.delete",
		ResourceType: "board",
		ResourceID:   &boardID,
		Details:      map[string]interface{}{"board_title": board.Title},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "board deleted"})
}
