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

type CommentsHandler struct {
	DB          *gorm.DB
	Permissions *services.PermissionService
	Audit       *services.AuditService
}

func NewCommentsHandler(db *gorm.DB, permissions *services.PermissionService, audit *services.AuditService) *CommentsHandler {
	return &CommentsHandler{DB: db, Permissions: permissions, Audit: audit}
}

type createCommentRequest struct {
	Body string `json:"body"`
}

func (h *CommentsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid card id")
	}

	role, err := h.Permissions.ResolveRoleByCard(c.Context(), currentUser.ID, cardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
	}
	if role == models.RoleNone {
		return utils.Error(c, fiber.StatusNotFound, "card not found")
	}
	if !role.CanComment() {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		return utils.Error(c, fiber.StatusBadRequest, "body is required")
	}

	comment := models.Comment{
		CardID:   cardID,
		AuthorID: currentUser.ID,
		Body:     body,
	}
	if err := h.DB.Create(&comment).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating comment")
	}

	var card models.Card
	h.DB.Select("id", "title", "list_id").First(&card, "id = ?", cardID)
	var boardID uuid.UUID
	h.DB.Table("lists").Select("board_id").Where("id = ?", card.ListID).Scan(&boardID)

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "comment.create",
		ResourceType: "card",
		ResourceID:   &cardID,
		Details: map[string]interface{}{
			"board_id":   boardID.String(),
			"card_title": card.Title,
			"comment_id": comment.ID.String(),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	if err := h.DB.Preload("Author").First(&comment, "id = ?", comment.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading comment")
	}

	return utils.Success(c, fiber.StatusCreated, comment)
}

func (h *CommentsHandler) ListByCard(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid card id")
	}

	role, err := h.Permissions.ResolveRoleByCard(c.Context(), currentUser.ID, cardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
	}
	if !role.CanView() {
		return utils.Error(c, fiber.StatusNotFound, "card not found")
	}

	var comments []models.Comment
	if err := h.DB.
		Where("card_id = ?", cardID).
		Preload("Author").
		Order("created_at").
		Find(&comments).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading comments")
	}

	return utils.Success(c, fiber.StatusOK, comments)
}

func (h *CommentsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	commentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid comment id")
	}

	var comment models.Comment
	if err := h.DB.First(&comment, "id = ?", commentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "comment not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading comment")
	}

	role, err := h.Permissions.ResolveRoleByCard(c.Context(), currentUser.ID, comment.CardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
	}
	if role == models.RoleNone {
		return utils.Error(c, fiber.StatusNotFound, "comment not found")
	}

	// Authors remove their own comments; the board owner moderates the rest.
	if comment.AuthorID != currentUser.ID && !role.CanManageBoard() {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	if err := h.DB.Delete(&models.Comment{}, "id = ?", commentID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting comment")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "comment deleted"})
}
