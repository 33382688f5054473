package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/middleware"
	"github.com/taskboard/backend/internal/models"
	"github.com/taskboard/backend/internal/services"
	"github.com/taskboard/backend/pkg/utils"
	"gorm.io/gorm"
)

type CardsHandler struct {
	DB          *gorm.DB
	Permissions *services.PermissionService
	Cards       *services.CardService
	Audit       *services.AuditService
}

func NewCardsHandler(db *gorm.DB, permissions *services.PermissionService, cards *services.CardService, audit *services.AuditService) *CardsHandler {
	return &CardsHandler{DB: db, Permissions: permissions, Cards: cards, Audit: audit}
}

func (h *CardsHandler) requireCardEdit(c *fiber.Ctx, cardID uuid.UUID) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	role, err := h.Permissions.ResolveRoleByCard(c.Context(), currentUser.ID, cardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
	}
	if role == models.RoleNone {
		return utils.Error(c, fiber.StatusNotFound, "card not found")
	}
	if !role.CanEditCards() {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}
	return nil
}

type createCardRequest struct {
	ListID      string     `json:"listID"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        []string   `json:"tags"`
}

func (h *CardsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createCardRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title is required")
	}

	listID, err := parseUUID(req.ListID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid listID")
	}

	role, err := h.Permissions.ResolveRoleByList(c.Context(), currentUser.ID, listID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
	}
	if role == models.RoleNone {
		return utils.Error(c, fiber.StatusNotFound, "list not found")
	}
	if !role.CanEditCards() {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	card := &models.Card{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	}
	if err := h.Cards.Create(c.Context(), listID, card); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating card")
	}

	return utils.Success(c, fiber.StatusCreated, card)
}

func (h *CardsHandler) Get(c *fiber.Ctx) error {
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

	var card models.Card
	if err := h.DB.
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at")
		}).
		Preload("Comments.Author").
		Preload("Attachments").
		First(&card, "id = ?", cardID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "card not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading card")
	}

	return utils.Success(c, fiber.StatusOK, card)
}

type updateCardRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	ClearDue    bool       `json:"clearDueDate"`
	Tags        *[]string  `json:"tags"`
}

func (h *CardsHandler) Update(c *fiber.Ctx) error {
	cardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid card id")
	}

	if err := h.requireCardEdit(c, cardID); err != nil {
		return err
	}

	var req updateCardRequest
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
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.ClearDue {
		updates["due_date"] = nil
	} else if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}

	if len(updates) == 0 && req.Tags == nil {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if len(updates) > 0 {
		if err := h.DB.Model(&models.Card{}).Where("id = ?", cardID).Updates(updates).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed updating card")
		}
	}
	if req.Tags != nil {
		// Tags go through the serializer, so update via the struct field.
		if err := h.DB.Model(&models.Card{BaseModel: models.BaseModel{ID: cardID}}).
			Update("tags", *req.Tags).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed updating tags")
		}
	}

	var card models.Card
	if err := h.DB.First(&card, "id = ?", cardID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching card")
	}

	return utils.Success(c, fiber.StatusOK, card)
}

type moveCardRequest struct {
	ListID string `json:"listID"`
	Index  int    `json:"index"`
}

func (h *CardsHandler) Move(c *fiber.Ctx) error {
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
	if !role.CanEditCards() {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req moveCardRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	targetListID, err := parseUUID(req.ListID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid listID")
	}

	var current models.Card
	if err := h.DB.Select("id", "list_id", "title").First(&current, "id = ?", cardID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading card")
	}
	sourceListID := current.ListID

	// A cross-list target must sit on the same board; resolving the
	// target list's board and comparing keeps a card from escaping its
	// permission boundary.
	if targetListID != sourceListID {
		targetRole, err := h.Permissions.ResolveRoleByList(c.Context(), currentUser.ID, targetListID)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
		}
		if targetRole == models.RoleNone {
			return utils.Error(c, fiber.StatusNotFound, "list not found")
		}
		if !targetRole.CanEditCards() {
			return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
		}

		var sameBoard int64
		if err := h.DB.Table("lists").
			Where("id IN ?", []uuid.UUID{sourceListID, targetListID}).
			Distinct("board_id").
			Count(&sameBoard).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed validating target list")
		}
		if sameBoard != 1 {
			return utils.Error(c, fiber.StatusBadRequest, "target list is on a different board")
		}
	}

	card, err := h.Cards.Move(c.Context(), cardID, targetListID, req.Index)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "card not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed moving card")
	}

	var boardID uuid.UUID
	h.DB.Table("lists").Select("board_id").Where("id = ?", targetListID).Scan(&boardID)

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "card.move",
		ResourceType: "card",
		ResourceID:   &cardID,
		Details: map[string]interface{}{
			"board_id":       boardID.String(),
			"card_title":     card.Title,
			"source_list_id": sourceListID.String(),
			"target_list_id": targetListID.String(),
			"index":          req.Index,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, card)
}

func (h *CardsHandler) Archive(c *fiber.Ctx) error {
	return h.setArchived(c, true)
}

func (h *CardsHandler) Unarchive(c *fiber.Ctx) error {
	return h.setArchived(c, false)
}

func (h *CardsHandler) setArchived(c *fiber.Ctx, archived bool) error {
	cardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid card id")
	}

	if err := h.requireCardEdit(c, cardID); err != nil {
		return err
	}

	if err := h.Cards.SetArchived(c.Context(), cardID, archived); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "card not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating card")
	}

	var card models.Card
	if err := h.DB.First(&card, "id = ?", cardID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching card")
	}

	return utils.Success(c, fiber.StatusOK, card)
}

func (h *CardsHandler) Delete(c *fiber.Ctx) error {
	cardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid card id")
	}

	if err := h.requireCardEdit(c, cardID); err != nil {
		return err
	}

	if err := h.DB.Delete(&models.Card{}, "id = ?", cardID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting card")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "card deleted"})
}
