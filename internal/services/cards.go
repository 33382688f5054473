package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/models"
	"gorm.io/gorm"
)

// CardService owns card ordering within and across lists. Archived cards keep
// their positions but do not participate in ordering decisions.
type CardService struct {
	DB *gorm.DB
}

func NewCardService(db *gorm.DB) *CardService {
	return &CardService{DB: db}
}

func (s *CardService) Create(ctx context.Context, listID uuid.UUID, card *models.Card) error {
	var tail *float64
	err := s.DB.WithContext(ctx).
		Model(&models.Card{}).
		Where("list_id = ? AND is_archived = ?", listID, false).
		Select("MAX(position)").
		Scan(&tail).Error
	if err != nil {
		return err
	}

	card.ListID = listID
	card.Position = PositionBetween(tail, nil)
	return s.DB.WithContext(ctx).Create(card).Error
}

func (s *CardService) ByList(ctx context.Context, listID uuid.UUID, includeArchived bool) ([]models.Card, error) {
	q := s.DB.WithContext(ctx).Where("list_id = ?", listID)
	if !includeArchived {
		q = q.Where("is_archived = ?", false)
	}

	var cards []models.Card
	err := q.Order("position, created_at").Find(&cards).Error
	return cards, err
}

// Move places the card at targetIndex in targetListID, which may be the
// card's current list or a different list on any board the caller has
// already authorized. Sibling rows keep their stored positions; only the
// moved card is written, except when precision exhaustion forces a reindex
// of the destination list followed by a single retry.
func (s *CardService) Move(ctx context.Context, cardID, targetListID uuid.UUID, targetIndex int) (*models.Card, error) {
	for attempt := 0; attempt < 2; attempt++ {
		card, reindexed, err := s.moveOnce(ctx, cardID, targetListID, targetIndex)
		if err != nil {
			return nil, err
		}
		if !reindexed {
			return card, nil
		}
	}
	return nil, fmt.Errorf("card move failed after reindex")
}

func (s *CardService) moveOnce(ctx context.Context, cardID, targetListID uuid.UUID, targetIndex int) (*models.Card, bool, error) {
	var card models.Card
	var reindexed bool

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&card, "id = ?", cardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if targetListID != card.ListID {
			var target models.List
			if err := tx.Take(&target, "id = ?", targetListID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
		}

		var siblings []models.Card
		if err := tx.
			Where("list_id = ? AND id <> ? AND is_archived = ?", targetListID, card.ID, false).
			Order("position, created_at").
			Find(&siblings).Error; err != nil {
			return err
		}

		before, after := neighborsAt(cardPositions(siblings), targetIndex)
		if PositionExhausted(before, after) {
			reindexed = true
			return reindexCards(tx, targetListID)
		}

		card.ListID = targetListID
		card.Position = PositionBetween(before, after)
		return tx.Model(&models.Card{}).
			Where("id = ?", card.ID).
			Updates(map[string]interface{}{
				"list_id":  card.ListID,
				"position": card.Position,
			}).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &card, reindexed, nil
}

func (s *CardService) SetArchived(ctx context.Context, cardID uuid.UUID, archived bool) error {
	result := s.DB.WithContext(ctx).
		Model(&models.Card{}).
		Where("id = ?", cardID).
		Update("is_archived", archived)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// reindexCards rewrites every card position in the list, archived cards
// included so a later unarchive keeps a sane slot.
func reindexCards(tx *gorm.DB, listID uuid.UUID) error {
	var cards []models.Card
	if err := tx.
		Where("list_id = ?", listID).
		Order("position, created_at").
		Find(&cards).Error; err != nil {
		return err
	}

	positions := ReindexedPositions(len(cards))
	for i := range cards {
		if err := tx.Model(&models.Card{}).
			Where("id = ?", cards[i].ID).
			Update("position", positions[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func cardPositions(cards []models.Card) []float64 {
	out := make([]float64, len(cards))
	for i := range cards {
		out[i] = cards[i].Position
	}
	return out
}
