package models

import "github.com/google/uuid"

// List is an ordered column on a board. Position is a fractional sort key;
// siblings sort ascending by (position, created_at) so transient duplicate
// positions still order deterministically.
type List struct {
	BaseModel
	BoardID  uuid.UUID `json:"boardID" gorm:"type:uuid;not null;index"`
	Title    string    `json:"title" gorm:"type:varchar(255);not null"`
	Position float64   `json:"position" gorm:"not null;index"`

	Board Board  `json:"board,omitempty" gorm:"foreignKey:BoardID;references:ID"`
	Cards []Card `json:"cards,omitempty" gorm:"foreignKey:ListID;constraint:OnDelete:CASCADE"`
}

func (List) TableName() string {
	return "lists"
}
