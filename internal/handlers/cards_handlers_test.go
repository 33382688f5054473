package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/taskboard/backend/internal/models"
)

func createCardViaAPI(t *testing.T, env *testEnv, token string, listID uuid.UUID, title string) uuid.UUID {
	t.Helper()

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/cards/", map[string]any{
		"listID": listID.String(),
		"title":  title,
	}, authHeaders(token))
	assertStatus(t, resp, http.StatusCreated)

	data := dataMap(t, decodeJSONMap(t, resp))
	rawID, _ := data["id"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		t.Fatalf("card response carried no id: %v", err)
	}
	return id
}

// boardCardTitles returns list title -> ordered card titles as rendered by
// the board endpoint.
func boardCardTitles(t *testing.T, env *testEnv, token string, boardID uuid.UUID, query string) map[string][]string {
	t.Helper()

	byList := map[string][]string{}
	for _, list := range fetchBoardLists(t, env, token, boardID, query) {
		listTitle, _ := list["title"].(string)
		rawCards, _ := list["cards"].([]any)
		titles := make([]string, 0, len(rawCards))
		for _, raw := range rawCards {
			card, _ := raw.(map[string]any)
			title, _ := card["title"].(string)
			titles = append(titles, title)
		}
		byList[listTitle] = titles
	}
	return byList
}

func TestCardMoveAcrossListsEndToEnd(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "owner@test.com", "password123", false)
	board := createTestBoard(t, env.db, owner, "Flow Board")

	listA := createListViaAPI(t, env, ownerToken, board.ID, "A")
	listB := createListViaAPI(t, env, ownerToken, board.ID, "B")

	a1 := createCardViaAPI(t, env, ownerToken, listA, "A1")
	createCardViaAPI(t, env, ownerToken, listA, "A2")
	createCardViaAPI(t, env, ownerToken, listA, "A3")
	createCardViaAPI(t, env, ownerToken, listB, "B1")
	createCardViaAPI(t, env, ownerToken, listB, "B2")

	resp := performJSONRequest(t, env.app, http.MethodPut, "/api/cards/"+a1.String()+"/move", map[string]any{
		"listID": listB.String(),
		"index":  1,
	}, authHeaders(ownerToken))
	assertStatus(t, resp, http.StatusOK)

	data := dataMap(t, decodeJSONMap(t, resp))
	if got, _ := data["listID"].(string); got != listB.String() {
		t.Errorf("expected moved card to report the target list, got %q", got)
	}

	byList := boardCardTitles(t, env, ownerToken, board.ID, "")
	assertTitles(t, byList["A"], []string{"A2", "A3"})
	assertTitles(t, byList["B"], []string{"B1", "A1", "B2"})
}

func TestCardMoveReindexesThroughHandler(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "owner@test.com", "password123", false)
	board := createTestBoard(t, env.db, owner, "Crowded Board")

	source := createListViaAPI(t, env, ownerToken, board.ID, "Source")
	target := createListViaAPI(t, env, ownerToken, board.ID, "Target")

	mover := createCardViaAPI(t, env, ownerToken, source, "Mover")
	createCardViaAPI(t, env, ownerToken, target, "First")
	createCardViaAPI(t, env, ownerToken, target, "Second")

	// Crush the target positions so no midpoint exists between them.
	if err := env.db.Model(&models.Card{}).
		Where("list_id = ?", target).
		Update("position", 1000.0).Error; err != nil {
		t.Fatalf("failed crushing positions: %v", err)
	}

	resp := performJSONRequest(t, env.app, http.MethodPut, "/api/cards/"+mover.String()+"/move", map[string]any{
		"listID": target.String(),
		"index":  1,
	}, authHeaders(ownerToken))
	assertStatus(t, resp, http.StatusOK)

	byList := boardCardTitles(t, env, ownerToken, board.ID, "")
	assertTitles(t, byList["Target"], []string{"First", "Mover", "Second"})

	var positions []float64
	if err := env.db.Model(&models.Card{}).
		Where("list_id = ?", target).
		Order("position").
		Pluck("position", &positions).Error; err != nil {
		t.Fatalf("failed reading positions: %v", err)
	}
	for i := 1; i < len(positions); i++ {
		if positions[i] <= positions[i-1] {
			t.Fatalf("expected strictly increasing positions after reindex, got %v", positions)
		}
	}
}

func TestCardMoveRejectsForeignBoard(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "owner@test.com", "password123", false)
	boardA := createTestBoard(t, env.db, owner, "Board A")
	boardB := createTestBoard(t, env.db, owner, "Board B")

	listA := createListViaAPI(t, env, ownerToken, boardA.ID, "A")
	listB := createListViaAPI(t, env, ownerToken, boardB.ID, "B")
	card := createCardViaAPI(t, env, ownerToken, listA, "Stuck")

	resp := performJSONRequest(t, env.app, http.MethodPut, "/api/cards/"+card.String()+"/move", map[string]any{
		"listID": listB.String(),
		"index":  0,
	}, authHeaders(ownerToken))
	assertStatus(t, resp, http.StatusBadRequest)
	assertEnvelopeError(t, decodeJSONMap(t, resp), "target list is on a different board")
}

func TestCardPermissions(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "owner@test.com", "password123", false)
	commenter, commenterToken := createTestUser(t, env.db, "commenter@test.com", "password123", false)
	_, strangerToken := createTestUser(t, env.db, "stranger@test.com", "password123", false)
	board := createTestBoard(t, env.db, owner, "Locked Board")

	share := &models.BoardShare{BoardID: board.ID, UserID: commenter.ID, Role: models.RoleCommenter, GrantedByID: owner.ID}
	if err := env.db.Create(share).Error; err != nil {
		t.Fatalf("failed creating share: %v", err)
	}

	list := createListViaAPI(t, env, ownerToken, board.ID, "Tasks")
	card := createCardViaAPI(t, env, ownerToken, list, "Guarded")

	t.Run("commenter reads the card", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/cards/"+card.String(), nil, authHeaders(commenterToken))
		assertStatus(t, resp, http.StatusOK)
	})

	t.Run("commenter cannot create cards", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/cards/", map[string]any{
			"listID": list.String(),
			"title":  "Not Allowed",
		}, authHeaders(commenterToken))
		assertStatus(t, resp, http.StatusForbidden)
	})

	t.Run("commenter cannot move cards", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/cards/"+card.String()+"/move", map[string]any{
			"listID": list.String(),
			"index":  0,
		}, authHeaders(commenterToken))
		assertStatus(t, resp, http.StatusForbidden)
	})

	t.Run("stranger sees nothing", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodGet, "/api/cards/"+card.String(), nil, authHeaders(strangerToken))
		assertStatus(t, resp, http.StatusNotFound)
	})
}

func TestCardUpdateAndArchive(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "owner@test.com", "password123", false)
	board := createTestBoard(t, env.db, owner, "Edit Board")
	list := createListViaAPI(t, env, ownerToken, board.ID, "Work")
	card := createCardViaAPI(t, env, ownerToken, list, "Draft")

	cardPath := "/api/cards/" + card.String()

	t.Run("update title description and tags", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, cardPath, map[string]any{
			"title":       "Final",
			"description": "ship it",
			"tags":        []string{"release", "urgent"},
		}, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusOK)

		data := dataMap(t, decodeJSONMap(t, resp))
		if got, _ := data["title"].(string); got != "Final" {
			t.Errorf("expected updated title, got %q", got)
		}
		tags, _ := data["tags"].([]any)
		if len(tags) != 2 {
			t.Errorf("expected 2 tags, got %v", tags)
		}
	})

	t.Run("due date set and clear", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, cardPath, map[string]any{
			"dueDate": "2026-09-15T12:00:00Z",
		}, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusOK)

		data := dataMap(t, decodeJSONMap(t, resp))
		if data["dueDate"] == nil {
			t.Error("expected dueDate to be set")
		}

		resp = performJSONRequest(t, env.app, http.MethodPut, cardPath, map[string]any{
			"clearDueDate": true,
		}, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusOK)

		data = dataMap(t, decodeJSONMap(t, resp))
		if data["dueDate"] != nil {
			t.Error("expected dueDate to be cleared")
		}
	})

	t.Run("archive hides the card unless asked for", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, cardPath+"/archive", nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusOK)

		byList := boardCardTitles(t, env, ownerToken, board.ID, "")
		if len(byList["Work"]) != 0 {
			t.Errorf("expected archived card hidden, got %v", byList["Work"])
		}

		byList = boardCardTitles(t, env, ownerToken, board.ID, "?includeArchived=true")
		assertTitles(t, byList["Work"], []string{"Final"})

		resp = performJSONRequest(t, env.app, http.MethodPut, cardPath+"/unarchive", nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusOK)

		byList = boardCardTitles(t, env, ownerToken, board.ID, "")
		assertTitles(t, byList["Work"], []string{"Final"})
	})

	t.Run("delete", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodDelete, cardPath, nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusOK)

		resp = performJSONRequest(t, env.app, http.MethodGet, cardPath, nil, authHeaders(ownerToken))
		assertStatus(t, resp, http.StatusNotFound)
	})
}
