package models

type User struct {
	BaseModel
	Email        string  `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string  `json:"-" gorm:"type:text;not null"`
	DisplayName  string  `json:"displayName" gorm:"type:varchar(150);not null"`
	IsAdmin      bool    `json:"isAdmin" gorm:"not null;default:false"`
	IsApproved   bool    `json:"isApproved" gorm:"not null;default:false;index"`
	AvatarURL    *string `json:"avatarURL,omitempty" gorm:"type:text"`

	Workspaces []Workspace  `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Shares     []BoardShare `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
