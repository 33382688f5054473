package models

import "github.com/google/uuid"

type Board struct {
	BaseModel
	WorkspaceID uuid.UUID `json:"workspaceID" gorm:"type:uuid;not null;index"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	Color       *string   `json:"color,omitempty" gorm:"type:varchar(20)"`
	IsPublic    bool      `json:"isPublic" gorm:"not null;default:false;index"`

	Workspace Workspace    `json:"workspace,omitempty" gorm:"foreignKey:WorkspaceID;references:ID"`
	Lists     []List       `json:"lists,omitempty" gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE"`
	Shares    []BoardShare `json:"-" gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE"`
}

func (Board) TableName() string {
	return "boards"
}
