package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/models"
	"gorm.io/gorm"
)

// ListService owns list ordering within a board. Creation appends at the
// tail; moves allocate a fractional position between the new neighbors and
// fall back to a reindex when the gap is exhausted.
type ListService struct {
	DB *gorm.DB
}

func NewListService(db *gorm.DB) *ListService {
	return &ListService{DB: db}
}

func (s *ListService) Create(ctx context.Context, boardID uuid.UUID, title string) (*models.List, error) {
	var tail *float64
	err := s.DB.WithContext(ctx).
		Model(&models.List{}).
		Where("board_id = ?", boardID).
		Select("MAX(position)").
		Scan(&tail).Error
	if err != nil {
		return nil, err
	}

	list := &models.List{
		BoardID:  boardID,
		Title:    title,
		Position: PositionBetween(tail, nil),
	}
	if err := s.DB.WithContext(ctx).Create(list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *ListService) ByBoard(ctx context.Context, boardID uuid.UUID) ([]models.List, error) {
	var lists []models.List
	err := s.DB.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("position, created_at").
		Find(&lists).Error
	return lists, err
}

// Move places the list at targetIndex among its board's lists. A single
// retry runs after a reindex when the target gap cannot be bisected.
func (s *ListService) Move(ctx context.Context, listID uuid.UUID, targetIndex int) (*models.List, error) {
	for attempt := 0; attempt < 2; attempt++ {
		list, reindexed, err := s.moveOnce(ctx, listID, targetIndex)
		if err != nil {
			return nil, err
		}
		if !reindexed {
			return list, nil
		}
	}
	return nil, fmt.Errorf("list move failed after reindex")
}

func (s *ListService) moveOnce(ctx context.Context, listID uuid.UUID, targetIndex int) (*models.List, bool, error) {
	var list models.List
	var reindexed bool

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&list, "id = ?", listID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var siblings []models.List
		if err := tx.
			Where("board_id = ? AND id <> ?", list.BoardID, list.ID).
			Order("position, created_at").
			Find(&siblings).Error; err != nil {
			return err
		}

		before, after := neighborsAt(listPositions(siblings), targetIndex)
		if PositionExhausted(before, after) {
			reindexed = true
			return reindexLists(tx, list.BoardID)
		}

		list.Position = PositionBetween(before, after)
		return tx.Model(&models.List{}).
			Where("id = ?", list.ID).
			Update("position", list.Position).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &list, reindexed, nil
}

// reindexLists rewrites every list position on the board to evenly spaced
// values, preserving the current order.
func reindexLists(tx *gorm.DB, boardID uuid.UUID) error {
	var lists []models.List
	if err := tx.
		Where("board_id = ?", boardID).
		Order("position, created_at").
		Find(&lists).Error; err != nil {
		return err
	}

	positions := ReindexedPositions(len(lists))
	for i := range lists {
		if err := tx.Model(&models.List{}).
			Where("id = ?", lists[i].ID).
			Update("position", positions[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// neighborsAt clamps index into [0, len] and returns the positions flanking
// that slot.
func neighborsAt(positions []float64, index int) (before, after *float64) {
	if index < 0 {
		index = 0
	}
	if index > len(positions) {
		index = len(positions)
	}
	if index > 0 {
		v := positions[index-1]
		before = &v
	}
	if index < len(positions) {
		v := positions[index]
		after = &v
	}
	return before, after
}

func listPositions(lists []models.List) []float64 {
	out := make([]float64, len(lists))
	for i := range lists {
		out[i] = lists[i].Position
	}
	return out
}
