package handlers

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/models"
	"gorm.io/gorm"
)

func seedAuditLog(t *testing.T, db *gorm.DB, userID uuid.UUID, action string) {
	t.Helper()

	entry := &models.AuditLog{
		UserID:       &userID,
		Action:       action,
		ResourceType: "board",
		Details:      map[string]interface{}{"board_title": "Audited Board"},
		IPAddress:    "127.0.0.1",
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed creating audit log: %v", err)
	}
}

func TestAuditExport(t *testing.T) {
	env := setupTestEnv(t)
	user, userToken := createTestUser(t, env.db, "user@test.com", "password123", false)
	other, _ := createTestUser(t, env.db, "other@test.com", "password123", false)

	seedAuditLog(t, env.db, user.ID, "board.create")
	seedAuditLog(t, env.db, user.ID, "board.delete")
	seedAuditLog(t, env.db, other.ID, "board.create")

	t.Run("csv export contains only own rows", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/audit-log/export", nil, authHeaders(userToken))
		assertStatus(t, resp, http.StatusOK)

		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
			t.Errorf("expected text/csv, got %q", ct)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "activity.csv") {
			t.Errorf("expected csv filename in disposition, got %q", cd)
		}

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("failed reading body: %v", err)
		}
		body := string(raw)
		if !strings.Contains(body, "board.delete") {
			t.Error("expected own action in export")
		}
		// Header line plus the caller's two entries.
		if lines := strings.Count(strings.TrimSpace(body), "\n") + 1; lines != 3 {
			t.Errorf("expected 3 csv lines, got %d:\n%s", lines, body)
		}
	})

	t.Run("json export", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/audit-log/export?format=json", nil, authHeaders(userToken))
		assertStatus(t, resp, http.StatusOK)

		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("expected application/json, got %q", ct)
		}
		body := decodeJSONMap(t, resp)
		rows, _ := body["data"].([]any)
		if len(rows) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(rows))
		}
	})

	t.Run("unknown format rejected", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/audit-log/export?format=xml", nil, authHeaders(userToken))
		assertStatus(t, resp, http.StatusBadRequest)
	})
}

func TestAuditAdminListing(t *testing.T) {
	env := setupTestEnv(t)
	user, userToken := createTestUser(t, env.db, "user@test.com", "password123", false)
	_, adminToken := createTestUser(t, env.db, "admin@test.com", "password123", true)

	seedAuditLog(t, env.db, user.ID, "board.create")
	seedAuditLog(t, env.db, user.ID, "share.grant")

	t.Run("admin only", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/audit-log", nil, authHeaders(userToken))
		assertStatus(t, resp, http.StatusForbidden)
	})

	t.Run("admin sees everything with action filter", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/audit-log?action=share.grant", nil, authHeaders(adminToken))
		assertStatus(t, resp, http.StatusOK)

		body := decodeJSONMap(t, resp)
		rows, _ := body["data"].([]any)
		if len(rows) != 1 {
			t.Fatalf("expected 1 filtered entry, got %d", len(rows))
		}
		row, _ := rows[0].(map[string]any)
		if got, _ := row["action"].(string); got != "share.grant" {
			t.Errorf("expected share.grant, got %q", got)
		}
	})
}
