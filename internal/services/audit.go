package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/models"
	"github.com/taskboard/backend/pkg/logger"
	"gorm.io/gorm"
)

type AuditEntry struct {
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Details      map[string]interface{}
	IPAddress    string
	RequestID    string
}

// AuditService records an append-only log of significant actions and fans
// selected actions out as in-app notifications. Writes happen off the request
// path through a buffered queue; a full queue drops the entry rather than
// blocking a handler.
type AuditService struct {
	DB    *gorm.DB
	queue chan models.AuditLog
	done  chan struct{}
}

func NewAuditService(db *gorm.DB) *AuditService {
	s := &AuditService{
		DB:    db,
		queue: make(chan models.AuditLog, 1000),
		done:  make(chan struct{}),
	}
	go s.processQueue()
	return s
}

// Close drains the queue and stops the worker. Call only after the HTTP
// server has stopped accepting requests.
func (s *AuditService) Close() {
	if s.queue == nil {
		return
	}
	close(s.queue)
	if s.done != nil {
		<-s.done
	}
}

func (s *AuditService) LogAsync(entry AuditEntry) {
	row := models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      entry.Details,
		IPAddress:    entry.IPAddress,
		RequestID:    entry.RequestID,
		CreatedAt:    time.Now().UTC(),
	}

	select {
	case s.queue <- row:
	default:
		logger.Warn("audit_queue_full", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
	}
}

func (s *AuditService) processQueue() {
	defer close(s.done)
	for row := range s.queue {
		if err := s.DB.Create(&row).Error; err != nil {
			logger.Error("audit_log_insert_failed", err, map[string]interface{}{
				"action": row.Action,
			})
			continue
		}
		s.generateNotifications(row)
	}
}

func (s *AuditService) generateNotifications(log models.AuditLog) {
	if log.UserID == nil {
		return
	}

	var notifications []models.Notification

	switch log.Action {
	case "share.grant":
		notifications = s.notificationsForShareGrant(log)
	case "share.revoke":
		notifications = s.notificationsForShareRevoke(log)
	case "comment.create":
		notifications = s.notificationsForComment(log)
	case "card.move":
		notifications = s.notificationsForCardMove(log)
	}

	for i := range notifications {
		if notifications[i].UserID == *log.UserID {
			continue
		}
		if err := s.DB.Create(&notifications[i]).Error; err != nil {
			logger.Error("notification_insert_failed", err, map[string]interface{}{
				"action":  log.Action,
				"user_id": notifications[i].UserID.String(),
			})
		}
	}
}

func (s *AuditService) notificationsForShareGrant(log models.AuditLog) []models.Notification {
	targetIDStr := detailString(log.Details, "shared_with_user_id")
	targetID, err := uuid.Parse(targetIDStr)
	if err != nil {
		return nil
	}

	boardName := detailString(log.Details, "board_name")
	role := detailString(log.Details, "role")
	actorName := s.getActorName(*log.UserID)

	return []models.Notification{{
		UserID:       targetID,
		ActorID:      *log.UserID,
		Action:       log.Action,
		ResourceType: "board",
		ResourceID:   log.ResourceID,
		ResourceName: boardName,
		Message:      fmt.Sprintf("%s shared board \"%s\" with you as %s", actorName, boardName, role),
	}}
}

func (s *AuditService) notificationsForShareRevoke(log models.AuditLog) []models.Notification {
	targetIDStr := detailString(log.Details, "shared_with_user_id")
	targetID, err := uuid.Parse(targetIDStr)
	if err != nil {
		return nil
	}

	boardName := detailString(log.Details, "board_name")
	actorName := s.getActorName(*log.UserID)

	return []models.Notification{{
		UserID:       targetID,
		ActorID:      *log.UserID,
		Action:       log.Action,
		ResourceType: "board",
		ResourceID:   log.ResourceID,
		ResourceName: boardName,
		Message:      fmt.Sprintf("%s revoked your access to board \"%s\"", actorName, boardName),
	}}
}

// notificationsForComment notifies everyone with a role on the board except
// the commenter.
func (s *AuditService) notificationsForComment(log models.AuditLog) []models.Notification {
	boardIDStr := detailString(log.Details, "board_id")
	boardID, err := uuid.Parse(boardIDStr)
	if err != nil {
		return nil
	}

	cardTitle := detailString(log.Details, "card_title")
	actorName := s.getActorName(*log.UserID)
	recipients := s.getBoardMemberIDs(boardID, *log.UserID)

	result := make([]models.Notification, 0, len(recipients))
	for _, uid := range recipients {
		result = append(result, models.Notification{
			UserID:       uid,
			ActorID:      *log.UserID,
			Action:       log.Action,
			ResourceType: "card",
			ResourceID:   log.ResourceID,
			ResourceName: cardTitle,
			Message:      fmt.Sprintf("%s commented on \"%s\"", actorName, cardTitle),
		})
	}
	return result
}

func (s *AuditService) notificationsForCardMove(log models.AuditLog) []models.Notification {
	// Moves within the same list are too noisy to notify about.
	if detailString(log.Details, "source_list_id") == detailString(log.Details, "target_list_id") {
		return nil
	}

	boardIDStr := detailString(log.Details, "board_id")
	boardID, err := uuid.Parse(boardIDStr)
	if err != nil {
		return nil
	}

	cardTitle := detailString(log.Details, "card_title")
	actorName := s.getActorName(*log.UserID)
	recipients := s.getBoardMemberIDs(boardID, *log.UserID)

	result := make([]models.Notification, 0, len(recipients))
	for _, uid := range recipients {
		result = append(result, models.Notification{
			UserID:       uid,
			ActorID:      *log.UserID,
			Action:       log.Action,
			ResourceType: "card",
			ResourceID:   log.ResourceID,
			ResourceName: cardTitle,
			Message:      fmt.Sprintf("%s moved \"%s\" to another list", actorName, cardTitle),
		})
	}
	return result
}

func (s *AuditService) getActorName(userID uuid.UUID) string {
	var user models.User
	if err := s.DB.Select("display_name").First(&user, "id = ?", userID).Error; err != nil {
		return "Someone"
	}
	return user.DisplayName
}

// getBoardMemberIDs returns the workspace owner plus every share recipient of
// the board, excluding excludeUserID.
func (s *AuditService) getBoardMemberIDs(boardID uuid.UUID, excludeUserID uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID

	var owner struct {
		OwnerID uuid.UUID
	}
	err := s.DB.
		Table("boards").
		Select("workspaces.owner_id").
		Joins("JOIN workspaces ON workspaces.id = boards.workspace_id").
		Where("boards.id = ?", boardID).
		Take(&owner).Error
	if err == nil && owner.OwnerID != excludeUserID {
		ids = append(ids, owner.OwnerID)
	}

	var shares []models.BoardShare
	if err := s.DB.Select("user_id").Where("board_id = ?", boardID).Find(&shares).Error; err != nil {
		return ids
	}
	for _, share := range shares {
		if share.UserID != excludeUserID {
			ids = append(ids, share.UserID)
		}
	}
	return ids
}

func detailString(details map[string]interface{}, key string) string {
	if details == nil {
		return ""
	}
	if value, ok := details[key].(string); ok {
		return value
	}
	return ""
}
