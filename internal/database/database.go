package database

import (
	"fmt"

	"github.com/taskboard/backend/internal/config"
	"github.com/taskboard/backend/internal/models"
	"github.com/taskboard/backend/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	if err := seedAdminUser(db); err != nil {
		return nil, err
	}

	return db, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Workspace{},
		&models.Board{},
		&models.BoardShare{},
		&models.List{},
		&models.Card{},
		&models.Comment{},
		&models.Attachment{},
		&models.Notification{},
		&models.AuditLog{},
	); err != nil {
		return err
	}

	// Roles are stored as strings; constrain them at the storage layer so
	// a bad write can never introduce a fifth variant.
	constraint := `
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1
    FROM pg_constraint
    WHERE conname = 'board_share_role_check'
  ) THEN
    ALTER TABLE board_shares
    ADD CONSTRAINT board_share_role_check
    CHECK (role IN ('owner', 'editor', 'commenter', 'viewer'));
  END IF;
END $$;`

	return db.Exec(constraint).Error
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		return err
	}

	admin := models.User{
		Email:        "admin@taskboard.local",
		PasswordHash: hash,
		DisplayName:  "System Admin",
		IsAdmin:      true,
		IsApproved:   true,
	}

	return db.Create(&admin).Error
}
