package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/taskboard/backend/internal/middleware"
	"github.com/taskboard/backend/internal/models"
	"github.com/taskboard/backend/pkg/utils"
	"gorm.io/gorm"
)

type NotificationsHandler struct {
	DB *gorm.DB
}

func NewNotificationsHandler(db *gorm.DB) *NotificationsHandler {
	return &NotificationsHandler{DB: db}
}

func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.Notification{}).Where("user_id = ?", currentUser.ID)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting notifications")
	}

	var notifications []models.Notification
	if err := utils.ApplyPagination(query.Preload("Actor").Order("created_at DESC"), p).
		Find(&notifications).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading notifications")
	}

	return utils.Paginated(c, notifications, p.Page, p.Limit, total)
}

func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var count int64
	if err := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", currentUser.ID, false).
		Count(&count).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting notifications")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"count": count})
}

func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	notificationID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid notification id")
	}

	// Scoping by user means another user's notification reads as missing.
	result := h.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, currentUser.ID).
		Update("is_read", true)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating notification")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "notification not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "notification marked read"})
}

func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", currentUser.ID, false).
		Update("is_read", true).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating notifications")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "all notifications marked read"})
}
