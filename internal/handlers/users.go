package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/middleware"
	"github.com/taskboard/backend/internal/models"
	"github.com/taskboard/backend/internal/services"
	"github.com/taskboard/backend/pkg/logger"
	"github.com/taskboard/backend/pkg/utils"
	"gorm.io/gorm"
)

type UsersHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewUsersHandler(db *gorm.DB, audit *services.AuditService) *UsersHandler {
	return &UsersHandler{DB: db, Audit: audit}
}

func (h *UsersHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)
	search := strings.TrimSpace(c.Query("search"))

	query := h.DB.Model(&models.User{})
	if search != "" {
		searchValue := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? OR LOWER(display_name) LIKE ?",
			searchValue,
			searchValue,
		)
	}
	if c.Query("pending") == "true" {
		query = query.Where("is_approved = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting users")
	}

	var users []models.User
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}

	return utils.Paginated(c, users, p.Page, p.Limit, total)
}

// Search backs the user picker on the share dialog. Any authenticated user
// may search, capped well below the admin listing.
func (h *UsersHandler) Search(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	search := strings.TrimSpace(c.Query("search"))
	limit := c.QueryInt("limit", 5)

	if limit > 50 {
		limit = 50
	}

	if search != "" && currentUser != nil {
		logger.InfoWithUser(currentUser.ID.String(), "user_search", map[string]interface{}{
			"query": search,
			"limit": limit,
		})
	}

	query := h.DB.Model(&models.User{}).Where("is_approved = ?", true)
	if search != "" {
		searchValue := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? OR LOWER(display_name) LIKE ?",
			searchValue,
			searchValue,
		)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Limit(limit).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed searching users")
	}

	return utils.Success(c, fiber.StatusOK, users)
}

func (h *UsersHandler) Approve(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	result := h.DB.Model(&models.User{}).Where("id = ?", userID).Update("is_approved", true)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed approving user")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "user.approve",
		ResourceType: "user",
		ResourceID:   &userID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching user")
	}

	return utils.Success(c, fiber.StatusOK, user)
}

func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	if userID == currentUser.ID {
		return utils.Error(c, fiber.StatusBadRequest, "cannot delete your own account")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		return deleteUserTree(tx, userID)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting user")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "user.delete",
		ResourceType: "user",
		ResourceID:   &userID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "user deleted"})
}

// deleteUserTree removes a user together with every row rooted at them:
// owned workspaces and all boards, lists, cards, comments and attachments
// beneath them, plus shares, comments, attachments and notifications the user
// appears on elsewhere. It mirrors the OnDelete:CASCADE chain declared on the
// models, since not every backend enforces it. Audit rows keep their user id
// so the trail survives the account. Returns gorm.ErrRecordNotFound when the
// user does not exist.
func deleteUserTree(tx *gorm.DB, userID uuid.UUID) error {
	var workspaceIDs []uuid.UUID
	if err := tx.Model(&models.Workspace{}).Where("owner_id = ?", userID).Pluck("id", &workspaceIDs).Error; err != nil {
		return err
	}

	var boardIDs []uuid.UUID
	if len(workspaceIDs) > 0 {
		if err := tx.Model(&models.Board{}).Where("workspace_id IN ?", workspaceIDs).Pluck("id", &boardIDs).Error; err != nil {
			return err
		}
	}

	var listIDs []uuid.UUID
	if len(boardIDs) > 0 {
		if err := tx.Model(&models.List{}).Where("board_id IN ?", boardIDs).Pluck("id", &listIDs).Error; err != nil {
			return err
		}
	}

	var cardIDs []uuid.UUID
	if len(listIDs) > 0 {
		if err := tx.Model(&models.Card{}).Where("list_id IN ?", listIDs).Pluck("id", &cardIDs).Error; err != nil {
			return err
		}
	}

	if len(cardIDs) > 0 {
		if err := tx.Where("card_id IN ?", cardIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("card_id IN ?", cardIDs).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", cardIDs).Delete(&models.Card{}).Error; err != nil {
			return err
		}
	}
	if len(listIDs) > 0 {
		if err := tx.Where("id IN ?", listIDs).Delete(&models.List{}).Error; err != nil {
			return err
		}
	}
	if len(boardIDs) > 0 {
		if err := tx.Where("board_id IN ?", boardIDs).Delete(&models.BoardShare{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", boardIDs).Delete(&models.Board{}).Error; err != nil {
			return err
		}
	}
	if len(workspaceIDs) > 0 {
		if err := tx.Where("id IN ?", workspaceIDs).Delete(&models.Workspace{}).Error; err != nil {
			return err
		}
	}

	if err := tx.Where("user_id = ? OR granted_by_id = ?", userID, userID).Delete(&models.BoardShare{}).Error; err != nil {
		return err
	}
	if err := tx.Where("author_id = ?", userID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("uploader_id = ?", userID).Delete(&models.Attachment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ? OR actor_id = ?", userID, userID).Delete(&models.Notification{}).Error; err != nil {
		return err
	}

	result := tx.Delete(&models.User{}, "id = ?", userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
