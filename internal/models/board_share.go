package models

import (
	"github.com/google/uuid"
)

// BoardRole is the unit of authorization granularity for a board. The
// workspace owner's role is always derived, never stored; BoardShare rows
// only ever hold roles granted to non-owners.
type BoardRole string

const (
	// RoleNone is the zero value: the principal has no relationship to the
	// board at all. It is never persisted.
	RoleNone BoardRole = ""

	RoleOwner     BoardRole = "owner"
	RoleEditor    BoardRole = "editor"
	RoleCommenter BoardRole = "commenter"
	RoleViewer    BoardRole = "viewer"
)

// roleLevel orders the four roles from least to most privileged. Unknown
// values (including RoleNone) rank below viewer, so a corrupted share row
// degrades to no access instead of crashing.
func roleLevel(role BoardRole) int {
	switch role {
	case RoleViewer:
		return 1
	case RoleCommenter:
		return 2
	case RoleEditor:
		return 3
	case RoleOwner:
		return 4
	default:
		return 0
	}
}

// IsValid reports whether role is one of the four persistable variants.
func (r BoardRole) IsValid() bool {
	return roleLevel(r) > 0
}

// The capability lattice. These five methods are the single source of truth
// for what a role may do; handlers must never derive capabilities ad hoc.
//
//	role       view  comment  editCards  manageLists  manageBoard
//	owner      yes   yes      yes        yes          yes
//	editor     yes   yes      yes        yes          no
//	commenter  yes   yes      no         no           no
//	viewer     yes   no       no         no           no

func (r BoardRole) CanView() bool {
	return roleLevel(r) >= roleLevel(RoleViewer)
}

func (r BoardRole) CanComment() bool {
	return roleLevel(r) >= roleLevel(RoleCommenter)
}

func (r BoardRole) CanEditCards() bool {
	return roleLevel(r) >= roleLevel(RoleEditor)
}

func (r BoardRole) CanManageLists() bool {
	return roleLevel(r) >= roleLevel(RoleEditor)
}

func (r BoardRole) CanManageBoard() bool {
	return roleLevel(r) >= roleLevel(RoleOwner)
}

// BoardShare grants a role on a board to a non-owner user. At most one row
// exists per (board, user) pair; granting again updates the role in place.
type BoardShare struct {
	BaseModel
	BoardID     uuid.UUID `json:"boardID" gorm:"type:uuid;not null;uniqueIndex:idx_board_shares_board_user"`
	UserID      uuid.UUID `json:"userID" gorm:"type:uuid;not null;uniqueIndex:idx_board_shares_board_user"`
	Role        BoardRole `json:"role" gorm:"type:varchar(20);not null"`
	GrantedByID uuid.UUID `json:"grantedByID" gorm:"type:uuid;not null"`

	Board     Board `json:"board,omitempty" gorm:"foreignKey:BoardID;references:ID"`
	User      User  `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
	GrantedBy User  `json:"grantedBy,omitempty" gorm:"foreignKey:GrantedByID;references:ID;constraint:OnDelete:CASCADE"`
}

func (BoardShare) TableName() string {
	return "board_shares"
}
