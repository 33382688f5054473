package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/taskboard/backend/internal/middleware"
	"github.com/taskboard/backend/internal/models"
	"github.com/taskboard/backend/internal/services"
	"github.com/taskboard/backend/pkg/logger"
	"github.com/taskboard/backend/pkg/utils"
	"gorm.io/gorm"
)

type SharesHandler struct {
	DB          *gorm.DB
	Permissions *services.PermissionService
	Shares      *services.ShareService
	Audit       *services.AuditService
}

func NewSharesHandler(db *gorm.DB, permissions *services.PermissionService, shares *services.ShareService, audit *services.AuditService) *SharesHandler {
	return &SharesHandler{DB: db, Permissions: permissions, Shares: shares, Audit: audit}
}

type grantShareRequest struct {
	UserID string `json:"userID"`
	Role   string `json:"role"`
}

// Grant creates or updates a share on a board. Requires the manage-board
// capability; granting to a user who already holds a share replaces their
// role.
func (h *SharesHandler) Grant(c *fiber.Ctx) error {
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

	var req grantShareRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	// A granted owner role confers board-level parity with the workspace
	// owner; workspace ownership itself is never transferred through shares.
	targetRole, ok := parseBoardRole(req.Role)
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, "invalid role")
	}

	targetUserID, err := parseUUID(req.UserID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid userID")
	}

	var targetUser models.User
	if err := h.DB.First(&targetUser, "id = ?", targetUserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "target user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading target user")
	}

	share, created, err := h.Shares.Grant(c.Context(), boardID, targetUserID, currentUser.ID, targetRole)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSelfShare):
			return utils.Error(c, fiber.StatusBadRequest, "user already owns this board")
		case errors.Is(err, services.ErrNotFound):
			return utils.Error(c, fiber.StatusNotFound, "board not found")
		default:
			return utils.Error(c, fiber.StatusInternalServerError, "failed granting share")
		}
	}

	var board models.Board
	h.DB.Select("id", "title").First(&board, "id = ?", boardID)

	logger.InfoWithUser(currentUser.ID.String(), "board_shared", map[string]interface{}{
		"board_id":            boardID.String(),
		"shared_with_user_id": targetUserID.String(),
		"role":                string(targetRole),
		"created":             created,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "share.grant",
		ResourceType: "board",
		ResourceID:   &boardID,
		Details: map[string]interface{}{
			"shared_with_user_id": targetUserID.String(),
			"board_name":          board.Title,
			"role":                string(targetRole),
			"share_id":            share.ID.String(),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return utils.Success(c, status, share)
}

func (h *SharesHandler) ListBoardShares(c *fiber.Ctx) error {
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
	if !role.CanView() {
		return utils.Error(c, fiber.StatusNotFound, "board not found")
	}

	var shares []models.BoardShare
	if err := h.DB.
		Where("board_id = ?", boardID).
		Preload("User").
		Preload("GrantedBy").
		Order("created_at").
		Find(&shares).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading shares")
	}

	return utils.Success(c, fiber.StatusOK, shares)
}

func (h *SharesHandler) Revoke(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	shareID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid share id")
	}

	var share models.BoardShare
	if err := h.DB.First(&share, "id = ?", shareID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "share not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading share")
	}

	role, err := h.Permissions.ResolveRole(c.Context(), currentUser.ID, share.BoardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
	}

	// The board owner may revoke anyone; a recipient may remove themselves.
	if !role.CanManageBoard() && share.UserID != currentUser.ID {
		return utils.Error(c, fiber.StatusNotFound, "share not found")
	}

	revoked, err := h.Shares.Revoke(c.Context(), shareID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "share not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed revoking share")
	}

	var board models.Board
	h.DB.Select("id", "title").First(&board, "id = ?", revoked.BoardID)

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "share.revoke",
		ResourceType: "board",
		ResourceID:   &revoked.BoardID,
		Details: map[string]interface{}{
			"shared_with_user_id": revoked.UserID.String(),
			"board_name":          board.Title,
			"share_id":            revoked.ID.String(),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "share revoked"})
}

// ListSharedWithMe backs the virtual shared workspace listing.
func (h *SharesHandler) ListSharedWithMe(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	shares, err := h.Shares.SharedBoards(c.Context(), currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading shared boards")
	}

	return utils.Success(c, fiber.StatusOK, shares)
}
