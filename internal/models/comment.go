package models

import "github.com/google/uuid"

type Comment struct {
	BaseModel
	CardID   uuid.UUID `json:"cardID" gorm:"type:uuid;not null;index"`
	AuthorID uuid.UUID `json:"authorID" gorm:"type:uuid;not null;index"`
	Body     string    `json:"body" gorm:"type:text;not null"`

	Card   Card `json:"-" gorm:"foreignKey:CardID;references:ID"`
	Author User `json:"author,omitempty" gorm:"foreignKey:AuthorID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Comment) TableName() string {
	return "comments"
}
