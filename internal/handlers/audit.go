package handlers

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/taskboard/backend/internal/middleware"
	"github.com/taskboard/backend/internal/models"
	"github.com/taskboard/backend/pkg/utils"
	"gorm.io/gorm"
)

type AuditHandler struct {
	DB *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{DB: db}
}

// ExportMyLog streams the caller's own audit trail as CSV or JSON.
func (h *AuditHandler) ExportMyLog(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	format := strings.ToLower(strings.TrimSpace(c.Query("format", "csv")))
	if format != "csv" && format != "json" {
		return utils.Error(c, fiber.StatusBadRequest, "format must be csv or json")
	}

	var logs []models.AuditLog
	if err := h.DB.Where("user_id = ?", currentUser.ID).
		Order("created_at DESC").
		Limit(10000).
		Find(&logs).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading audit logs")
	}

	if format == "json" {
		c.Set("Content-Type", "application/json")
		c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "activity.json"))
		return c.JSON(fiber.Map{"success": true, "data": logs})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "activity.csv"))

	writer := csv.NewWriter(c.Response().BodyWriter())
	_ = writer.Write([]string{"Timestamp", "Action", "Resource Type", "Resource ID", "IP Address", "Details"})

	for _, entry := range logs {
		resourceID := ""
		if entry.ResourceID != nil {
			resourceID = entry.ResourceID.String()
		}

		detailStr := ""
		if entry.Details != nil {
			parts := make([]string, 0, len(entry.Details))
			for k, v := range entry.Details {
				parts = append(parts, fmt.Sprintf("%s=%v", k, v))
			}
			detailStr = strings.Join(parts, "; ")
		}

		_ = writer.Write([]string{
			entry.CreatedAt.Format(time.RFC3339),
			entry.Action,
			entry.ResourceType,
			resourceID,
			entry.IPAddress,
			detailStr,
		})
	}

	writer.Flush()
	return nil
}

// ListAll is the admin view over the whole audit log.
func (h *AuditHandler) ListAll(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.AuditLog{})
	if action := strings.TrimSpace(c.Query("action")); action != "" {
		query = query.Where("action = ?", action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting audit logs")
	}

	var logs []models.AuditLog
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&logs).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading audit logs")
	}

	return utils.Paginated(c, logs, p.Page, p.Limit, total)
}
