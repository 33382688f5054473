package handlers

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/middleware"
	"github.com/taskboard/backend/internal/models"
	"github.com/taskboard/backend/internal/services"
	"github.com/taskboard/backend/internal/storage"
	"github.com/taskboard/backend/pkg/logger"
	"github.com/taskboard/backend/pkg/utils"
	"gorm.io/gorm"
)

// presignedURLTTL bounds how long a download link stays usable once issued.
const presignedURLTTL = 15 * time.Minute

type AttachmentsHandler struct {
	DB          *gorm.DB
	Storage     storage.ObjectStore
	Permissions *services.PermissionService
	Audit       *services.AuditService
	MaxSize     int64
}

func NewAttachmentsHandler(db *gorm.DB, store storage.ObjectStore, permissions *services.PermissionService, audit *services.AuditService, maxSize int64) *AttachmentsHandler {
	return &AttachmentsHandler{DB: db, Storage: store, Permissions: permissions, Audit: audit, MaxSize: maxSize}
}

func (h *AttachmentsHandler) Upload(c *fiber.Ctx) error {
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

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}
	if h.MaxSize > 0 && fileHeader.Size > h.MaxSize {
		return utils.Error(c, fiber.StatusRequestEntityTooLarge, "attachment exceeds size limit")
	}

	filename := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if filename == "" || filename == "." {
		return utils.Error(c, fiber.StatusBadRequest, "invalid filename")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	objectName := fmt.Sprintf("%s/%s/%s", cardID.String(), uuid.New().String(), filename)
	if err := h.Storage.Put(c.Context(), objectName, stream, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed uploading attachment")
	}

	attachment := models.Attachment{
		CardID:      cardID,
		UploaderID:  currentUser.ID,
		FileName:    filename,
		MimeType:    contentType,
		Size:        fileHeader.Size,
		StoragePath: objectName,
	}
	if err := h.DB.Create(&attachment).Error; err != nil {
		_ = h.Storage.Remove(c.Context(), objectName)
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating attachment record")
	}

	logger.InfoWithUser(currentUser.ID.String(), "attachment_uploaded", map[string]interface{}{
		"attachment_id": attachment.ID.String(),
		"card_id":       cardID.String(),
		"file_name":     filename,
		"size":          fileHeader.Size,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "attachment.upload",
		ResourceType: "card",
		ResourceID:   &cardID,
		Details: map[string]interface{}{
			"attachment_id": attachment.ID.String(),
			"file_name":     filename,
			"size":          fileHeader.Size,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, attachment)
}

func (h *AttachmentsHandler) ListByCard(c *fiber.Ctx) error {
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

	var attachments []models.Attachment
	if err := h.DB.
		Where("card_id = ?", cardID).
		Preload("Uploader").
		Order("created_at").
		Find(&attachments).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading attachments")
	}

	return utils.Success(c, fiber.StatusOK, attachments)
}

// DownloadURL hands back a short-lived presigned link instead of proxying
// bytes through the API.
func (h *AttachmentsHandler) DownloadURL(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	attachmentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid attachment id")
	}

	var attachment models.Attachment
	if err := h.DB.First(&attachment, "id = ?", attachmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "attachment not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading attachment")
	}

	role, err := h.Permissions.ResolveRoleByCard(c.Context(), currentUser.ID, attachment.CardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
	}
	if !role.CanView() {
		return utils.Error(c, fiber.StatusNotFound, "attachment not found")
	}

	disposition := fmt.Sprintf("attachment; filename=%q", attachment.FileName)
	url, err := h.Storage.PresignedURL(c.Context(), attachment.StoragePath, presignedURLTTL, attachment.MimeType, disposition)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating download link")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"url":       url,
		"expiresIn": int(presignedURLTTL.Seconds()),
	})
}

func (h *AttachmentsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	attachmentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid attachment id")
	}

	var attachment models.Attachment
	if err := h.DB.First(&attachment, "id = ?", attachmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "attachment not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading attachment")
	}

	role, err := h.Permissions.ResolveRoleByCard(c.Context(), currentUser.ID, attachment.CardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
	}
	if role == models.RoleNone {
		return utils.Error(c, fiber.StatusNotFound, "attachment not found")
	}
	if !role.CanEditCards() {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	if err := h.DB.Delete(&models.Attachment{}, "id = ?", attachmentID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting attachment")
	}

	// Best effort; an orphaned object is preferable to a dangling record.
	_ = h.Storage.Remove(c.Context(), attachment.StoragePath)

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "attachment.delete",
		ResourceType: "card",
		ResourceID:   &attachment.CardID,
		Details: map[string]interface{}{
			"attachment_id": attachment.ID.String(),
			"file_name":     attachment.FileName,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "attachment deleted"})
}
