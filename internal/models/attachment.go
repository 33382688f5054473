package models

import "github.com/google/uuid"

type Attachment struct {
	BaseModel
	CardID      uuid.UUID `json:"cardID" gorm:"type:uuid;not null;index"`
	UploaderID  uuid.UUID `json:"uploaderID" gorm:"type:uuid;not null"`
	FileName    string    `json:"fileName" gorm:"type:varchar(255);not null"`
	MimeType    string    `json:"mimeType" gorm:"type:varchar(255);not null"`
	Size        int64     `json:"size" gorm:"not null;default:0"`
	StoragePath string    `json:"-" gorm:"type:text;not null"`

	Card     Card `json:"-" gorm:"foreignKey:CardID;references:ID"`
	Uploader User `json:"uploader,omitempty" gorm:"foreignKey:UploaderID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Attachment) TableName() string {
	return "attachments"
}
