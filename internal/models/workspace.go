package models

import "github.com/google/uuid"

// SharedWorkspaceID is the reserved identifier of the virtual workspace that
// aggregates boards shared with the current user. It has no backing row and
// is synthesized at read time.
const SharedWorkspaceID = "shared"

type Workspace struct {
	BaseModel
	Name    string    `json:"name" gorm:"type:varchar(150);not null"`
	OwnerID uuid.UUID `json:"ownerID" gorm:"type:uuid;not null;index"`

	Owner  User    `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
	Boards []Board `json:"boards,omitempty" gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE"`
}

func (Workspace) TableName() string {
	return "workspaces"
}
