package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/models"
)

func TestShareService_Grant(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewShareService(db)

	owner := createUser(t, db, "owner@test.com")
	recipient := createUser(t, db, "recipient@test.com")
	board := createBoard(t, db, owner, "Launch Plan")

	t.Run("creates a new share", func(t *testing.T) {
		share, created, err := service.Grant(context.TODO(), board.ID, recipient.ID, owner.ID, models.RoleViewer)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !created {
			t.Error("expected a new share to be created")
		}
		if share.Role != models.RoleViewer {
			t.Errorf("expected viewer role, got %q", share.Role)
		}
		if share.GrantedByID != owner.ID {
			t.Errorf("expected grantor %s, got %s", owner.ID, share.GrantedByID)
		}
	})

	t.Run("regrant updates role without duplicating", func(t *testing.T) {
		share, created, err := service.Grant(context.TODO(), board.ID, recipient.ID, owner.ID, models.RoleEditor)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created {
			t.Error("expected existing share to be updated, not recreated")
		}
		if share.Role != models.RoleEditor {
			t.Errorf("expected editor role after regrant, got %q", share.Role)
		}

		var count int64
		if err := db.Model(&models.BoardShare{}).
			Where("board_id = ? AND user_id = ?", board.ID, recipient.ID).
			Count(&count).Error; err != nil {
			t.Fatalf("failed counting shares: %v", err)
		}
		if count != 1 {
			t.Errorf("expected exactly one share row, got %d", count)
		}
	})

	t.Run("rejects sharing with the workspace owner", func(t *testing.T) {
		_, _, err := service.Grant(context.TODO(), board.ID, owner.ID, owner.ID, models.RoleViewer)
		if !errors.Is(err, ErrSelfShare) {
			t.Errorf("expected ErrSelfShare, got %v", err)
		}
	})

	t.Run("rejects unknown board", func(t *testing.T) {
		_, _, err := service.Grant(context.TODO(), uuid.New(), recipient.ID, owner.ID, models.RoleViewer)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestShareService_Revoke(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewShareService(db)
	permissions := NewPermissionService(db)

	owner := createUser(t, db, "owner@test.com")
	recipient := createUser(t, db, "recipient@test.com")
	board := createBoard(t, db, owner, "Launch Plan")

	share, _, err := service.Grant(context.TODO(), board.ID, recipient.ID, owner.ID, models.RoleCommenter)
	if err != nil {
		t.Fatalf("failed granting share: %v", err)
	}

	revoked, err := service.Revoke(context.TODO(), share.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked.UserID != recipient.ID {
		t.Errorf("expected revoked share for %s, got %s", recipient.ID, revoked.UserID)
	}

	role, err := permissions.ResolveRole(context.TODO(), recipient.ID, board.ID)
	if err != nil {
		t.Fatalf("resolution after revoke failed: %v", err)
	}
	if role != models.RoleNone {
		t.Errorf("expected no role after revoke, got %q", role)
	}

	if _, err := service.Revoke(context.TODO(), share.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound revoking twice, got %v", err)
	}
}

func TestShareService_SharedBoards(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewShareService(db)

	owner := createUser(t, db, "owner@test.com")
	recipient := createUser(t, db, "recipient@test.com")
	first := createBoard(t, db, owner, "First Board")
	second := createBoard(t, db, owner, "Second Board")

	for _, boardID := range []uuid.UUID{first.ID, second.ID} {
		if _, _, err := service.Grant(context.TODO(), boardID, recipient.ID, owner.ID, models.RoleViewer); err != nil {
			t.Fatalf("failed granting share: %v", err)
		}
	}

	shares, err := service.SharedBoards(context.TODO(), recipient.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("expected 2 shared boards, got %d", len(shares))
	}
	for _, share := range shares {
		if share.Board.ID == uuid.Nil {
			t.Error("expected board to be preloaded")
		}
		if share.Board.Workspace.ID == uuid.Nil {
			t.Error("expected workspace to be preloaded")
		}
	}

	none, err := service.SharedBoards(context.TODO(), owner.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no shared boards for owner, got %d", len(none))
	}
}
