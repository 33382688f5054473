package models

import (
	"time"

	"github.com/google/uuid"
)

type Card struct {
	BaseModel
	ListID      uuid.UUID  `json:"listID" gorm:"type:uuid;not null;index"`
	Title       string     `json:"title" gorm:"type:varchar(255);not null"`
	Description string     `json:"description" gorm:"type:text;not null;default:''"`
	Position    float64    `json:"position" gorm:"not null;index"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Tags        []string   `json:"tags,omitempty" gorm:"type:jsonb;serializer:json"`
	IsArchived  bool       `json:"isArchived" gorm:"not null;default:false;index"`

	List        List         `json:"list,omitempty" gorm:"foreignKey:ListID;references:ID"`
	Comments    []Comment    `json:"comments,omitempty" gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE"`
	Attachments []Attachment `json:"attachments,omitempty" gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE"`
}

func (Card) TableName() string {
	return "cards"
}
