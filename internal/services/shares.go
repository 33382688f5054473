package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/models"
	"gorm.io/gorm"
)

// ShareService maintains BoardShare grants. A board has at most one share per
// user; granting again updates the stored role. The workspace owner can never
// hold a share on their own board.
type ShareService struct {
	DB *gorm.DB
}

func NewShareService(db *gorm.DB) *ShareService {
	return &ShareService{DB: db}
}

// Grant creates or updates the share for targetUserID on boardID. The
// returned bool is true when a new share row was created rather than an
// existing role updated.
func (s *ShareService) Grant(ctx context.Context, boardID, targetUserID, grantedByID uuid.UUID, role models.BoardRole) (*models.BoardShare, bool, error) {
	var board models.Board
	err := s.DB.WithContext(ctx).
		Preload("Workspace").
		Take(&board, "id = ?", boardID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}

	if board.Workspace.OwnerID == targetUserID {
		return nil, false, ErrSelfShare
	}

	var share models.BoardShare
	err = s.DB.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, targetUserID).
		Take(&share).Error
	switch {
	case err == nil:
		share.Role = role
		share.GrantedByID = grantedByID
		if err := s.DB.WithContext(ctx).Save(&share).Error; err != nil {
			return nil, false, err
		}
		return &share, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		share = models.BoardShare{
			BoardID:     boardID,
			UserID:      targetUserID,
			Role:        role,
			GrantedByID: grantedByID,
		}
		if err := s.DB.WithContext(ctx).Create(&share).Error; err != nil {
			return nil, false, err
		}
		return &share, true, nil
	default:
		return nil, false, err
	}
}

func (s *ShareService) Revoke(ctx context.Context, shareID uuid.UUID) (*models.BoardShare, error) {
	var share models.BoardShare
	err := s.DB.WithContext(ctx).Take(&share, "id = ?", shareID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Delete(&models.BoardShare{}, "id = ?", shareID).Error; err != nil {
		return nil, err
	}
	return &share, nil
}

// SharedBoards returns the boards shared with userID, newest grant first.
// This backs the virtual "shared" workspace, which has no row of its own.
func (s *ShareService) SharedBoards(ctx context.Context, userID uuid.UUID) ([]models.BoardShare, error) {
	var shares []models.BoardShare
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Board").
		Preload("Board.Workspace").
		Order("created_at DESC").
		Find(&shares).Error
	return shares, err
}
