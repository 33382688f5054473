package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/taskboard/backend/internal/middleware"
	"github.com/taskboard/backend/internal/models"
	"github.com/taskboard/backend/internal/services"
	"github.com/taskboard/backend/pkg/utils"
	"gorm.io/gorm"
)

type WorkspacesHandler struct {
	DB     *gorm.DB
	Shares *services.ShareService
	Audit  *services.AuditService
}

func NewWorkspacesHandler(db *gorm.DB, shares *services.ShareService, audit *services.AuditService) *WorkspacesHandler {
	return &WorkspacesHandler{DB: db, Shares: shares, Audit: audit}
}

type workspaceRequest struct {
	Name string `json:"name"`
}

func (h *WorkspacesHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req workspaceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	workspace := models.Workspace{Name: name, OwnerID: currentUser.ID}
	if err := h.DB.Create(&workspace).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating workspace")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "workspace.create",
		ResourceType: "workspace",
		ResourceID:   &workspace.ID,
		Details:      map[string]interface{}{"workspace_name": name},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, workspace)
}

// workspaceSummary is the listing shape. The virtual shared workspace is
// appended with its reserved id so clients render it alongside real ones.
type workspaceSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsVirtual  bool   `json:"isVirtual"`
	BoardCount int64  `json:"boardCount"`
}

func (h *WorkspacesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var workspaces []models.Workspace
	if err := h.DB.
		Where("owner_id = ?", currentUser.ID).
		Order("created_at").
		Find(&workspaces).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing workspaces")
	}

	summaries := make([]workspaceSummary, 0, len(workspaces)+1)
	for _, ws := range workspaces {
		var boardCount int64
		if err := h.DB.Model(&models.Board{}).Where("workspace_id = ?", ws.ID).Count(&boardCount).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed counting boards")
		}
		summaries = append(summaries, workspaceSummary{
			ID:         ws.ID.String(),
			Name:       ws.Name,
			BoardCount: boardCount,
		})
	}

	var sharedCount int64
	if err := h.DB.Model(&models.BoardShare{}).Where("user_id = ?", currentUser.ID).Count(&sharedCount).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting shared boards")
	}
	summaries = append(summaries, workspaceSummary{
		ID:         models.SharedWorkspaceID,
		Name:       "Shared with me",
		IsVirtual:  true,
		BoardCount: sharedCount,
	})

	return utils.Success(c, fiber.StatusOK, summaries)
}

func (h *WorkspacesHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	rawID := strings.TrimSpace(c.Params("id"))
	if rawID == models.SharedWorkspaceID {
		return h.getSharedWorkspace(c, currentUser)
	}

	workspaceID, err := parseUUID(rawID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid workspace id")
	}

	var workspace models.Workspace
	if err := h.DB.Preload("Boards").First(&workspace, "id = ?", workspaceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "workspace not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading workspace")
	}

	// Workspaces are private to their owner; shared access flows through
	// boards, never the containing workspace.
	if workspace.OwnerID != currentUser.ID {
		return utils.Error(c, fiber.StatusNotFound, "workspace not found")
	}

	return utils.Success(c, fiber.StatusOK, workspace)
}

func (h *WorkspacesHandler) getSharedWorkspace(c *fiber.Ctx, currentUser *models.User) error {
	shares, err := h.Shares.SharedBoards(c.Context(), currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading shared boards")
	}

	boards := make([]fiber.Map, 0, len(shares))
	for _, share := range shares {
		boards = append(boards, fiber.Map{
			"board":     share.Board,
			"role":      share.Role,
			"grantedAt": share.CreatedAt,
		})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":        models.SharedWorkspaceID,
		"name":      "Shared with me",
		"isVirtual": true,
		"boards":    boards,
	})
}

func (h *WorkspacesHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	workspaceID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid workspace id")
	}

	var req workspaceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	result := h.DB.Model(&models.Workspace{}).
		Where("id = ? AND owner_id = ?", workspaceID, currentUser.ID).
		Update("name", name)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating workspace")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "workspace not found")
	}

	var workspace models.Workspace
	if err := h.DB.First(&workspace, "id = ?", workspaceID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching workspace")
	}

	return utils.Success(c, fiber.StatusOK, workspace)
}

func (h *WorkspacesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	workspaceID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid workspace id")
	}

	result := h.DB.Where("id = ? AND owner_id = ?", workspaceID, currentUser.ID).Delete(&models.Workspace{})
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting workspace")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "workspace not found")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "workspace.delete",
		ResourceType: "workspace",
		ResourceID:   &workspaceID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "workspace deleted"})
}
