package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/models"
	"github.com/taskboard/backend/pkg/logger"
	"gorm.io/gorm"
)

// PermissionService resolves a user's effective role on a board. Ownership of
// the containing workspace always wins and is never stored as a share row;
// everything else comes from a single BoardShare lookup.
type PermissionService struct {
	DB *gorm.DB
}

func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{DB: db}
}

// ResolveRole computes the effective role of userID on boardID.
//
// RoleNone with a nil error means the board does not exist or the user has no
// relationship to it; callers must surface that as not-found so private
// boards cannot be enumerated. A non-nil error is a persistence failure, not
// an authorization verdict.
func (p *PermissionService) ResolveRole(ctx context.Context, userID, boardID uuid.UUID) (models.BoardRole, error) {
	var owner struct {
		OwnerID uuid.UUID
	}
	err := p.DB.WithContext(ctx).
		Table("boards").
		Select("workspaces.owner_id").
		Joins("JOIN workspaces ON workspaces.id = boards.workspace_id").
		Where("boards.id = ?", boardID).
		Take(&owner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoleNone, nil
		}
		return models.RoleNone, err
	}

	// Workspace ownership short-circuits; a stray share row for the owner
	// must never override it.
	if owner.OwnerID == userID {
		return models.RoleOwner, nil
	}

	var share models.BoardShare
	err = p.DB.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Take(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoleNone, nil
		}
		return models.RoleNone, err
	}

	if !share.Role.IsValid() {
		logger.Warn("board_share_invalid_role", map[string]interface{}{
			"board_id": boardID.String(),
			"user_id":  userID.String(),
			"role":     string(share.Role),
		})
		return models.RoleNone, nil
	}

	return share.Role, nil
}

// ResolveRoleByList resolves the list's owning board, then delegates to
// ResolveRole. RoleNone if the list does not exist.
func (p *PermissionService) ResolveRoleByList(ctx context.Context, userID, listID uuid.UUID) (models.BoardRole, error) {
	var list struct {
		BoardID uuid.UUID
	}
	err := p.DB.WithContext(ctx).
		Table("lists").
		Select("board_id").
		Where("id = ?", listID).
		Take(&list).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoleNone, nil
		}
		return models.RoleNone, err
	}
	return p.ResolveRole(ctx, userID, list.BoardID)
}

// ResolveRoleByCard resolves the card's owning list's owning board, then
// delegates to ResolveRole. RoleNone if the card does not exist.
func (p *PermissionService) ResolveRoleByCard(ctx context.Context, userID, cardID uuid.UUID) (models.BoardRole, error) {
	var card struct {
		BoardID uuid.UUID
	}
	err := p.DB.WithContext(ctx).
		Table("cards").
		Select("lists.board_id").
		Joins("JOIN lists ON lists.id = cards.list_id").
		Where("cards.id = ?", cardID).
		Take(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoleNone, nil
		}
		return models.RoleNone, err
	}
	return p.ResolveRole(ctx, userID, card.BoardID)
}

// IsBoardPublic reports whether the board exists and is flagged public.
func (p *PermissionService) IsBoardPublic(ctx context.Context, boardID uuid.UUID) (bool, error) {
	var board struct {
		IsPublic bool
	}
	err := p.DB.WithContext(ctx).
		Table("boards").
		Select("is_public").
		Where("id = ?", boardID).
		Take(&board).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return board.IsPublic, nil
}
