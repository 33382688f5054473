package handlers

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/taskboard/backend/internal/middleware"
	"github.com/taskboard/backend/internal/models"
	"github.com/taskboard/backend/internal/services"
	"github.com/taskboard/backend/pkg/logger"
	"github.com/taskboard/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	store *fakeObjectStore
}

// fakeObjectStore keeps uploaded objects in memory so attachment handlers
// can be exercised without a running MinIO.
type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (s *fakeObjectStore) Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectName] = data
	return nil
}

func (s *fakeObjectStore) Remove(ctx context.Context, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectName)
	return nil
}

func (s *fakeObjectStore) PresignedURL(ctx context.Context, objectName string, expiry time.Duration, contentType, contentDisposition string) (string, error) {
	return "https://storage.test/" + objectName + "?signed=true", nil
}

func (s *fakeObjectStore) EnsureBucket(ctx context.Context) error {
	return nil
}

func (s *fakeObjectStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
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
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	permissionService := services.NewPermissionService(db)
	shareService := services.NewShareService(db)
	listService := services.NewListService(db)
	cardService := services.NewCardService(db)
	auditService := services.NewAuditService(db)

	authHandler := NewAuthHandler(db, auditService)
	usersHandler := NewUsersHandler(db, auditService)
	workspacesHandler := NewWorkspacesHandler(db, shareService, auditService)
	boardsHandler := NewBoardsHandler(db, permissionService, auditService)
	sharesHandler := NewSharesHandler(db, permissionService, shareService, auditService)
	listsHandler := NewListsHandler(db, permissionService, listService)
	cardsHandler := NewCardsHandler(db, permissionService, cardService, auditService)
	commentsHandler := NewCommentsHandler(db, permissionService, auditService)
	notificationsHandler := NewNotificationsHandler(db)
	auditHandler := NewAuditHandler(db)
	store := newFakeObjectStore()
	attachmentsHandler := NewAttachmentsHandler(db, store, permissionService, auditService, 1024*1024)
	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 32 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS("http://localhost:3001"))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Get("/version", GetVersion)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	api.Get("/users/search", authMiddleware.RequireAuth, usersHandler.Search)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth, middleware.AdminOnly)
	userRoutes.Get("/", usersHandler.List)
	userRoutes.Put("/:id/approve", usersHandler.Approve)
	userRoutes.Delete("/:id", usersHandler.Delete)

	workspaceRoutes := api.Group("/workspaces", authMiddleware.RequireAuth)
	workspaceRoutes.Post("/", workspacesHandler.Create)
	workspaceRoutes.Get("/", workspacesHandler.List)
	workspaceRoutes.Get("/:id", workspacesHandler.Get)
	workspaceRoutes.Put("/:id", workspacesHandler.Update)
	workspaceRoutes.Delete("/:id", workspacesHandler.Delete)

	api.Get("/boards/:id", authMiddleware.OptionalAuth, boardsHandler.Get)

	boardRoutes := api.Group("/boards", authMiddleware.RequireAuth)
	boardRoutes.Post("/", boardsHandler.Create)
	boardRoutes.Put("/:id", boardsHandler.Update)
	boardRoutes.Delete("/:id", boardsHandler.Delete)
	boardRoutes.Post("/:id/shares", sharesHandler.Grant)
	boardRoutes.Get("/:id/shares", sharesHandler.ListBoardShares)

	api.Get("/shared", authMiddleware.RequireAuth, sharesHandler.ListSharedWithMe)
	api.Delete("/shares/:id", authMiddleware.RequireAuth, sharesHandler.Revoke)

	listRoutes := api.Group("/lists", authMiddleware.RequireAuth)
	listRoutes.Post("/", listsHandler.Create)
	listRoutes.Put("/:id", listsHandler.Update)
	listRoutes.Put("/:id/move", listsHandler.Move)
	listRoutes.Delete("/:id", listsHandler.Delete)

	cardRoutes := api.Group("/cards", authMiddleware.RequireAuth)
	cardRoutes.Post("/", cardsHandler.Create)
	cardRoutes.Get("/:id", cardsHandler.Get)
	cardRoutes.Put("/:id", cardsHandler.Update)
	cardRoutes.Put("/:id/move", cardsHandler.Move)
	cardRoutes.Put("/:id/archive", cardsHandler.Archive)
	cardRoutes.Put("/:id/unarchive", cardsHandler.Unarchive)
	cardRoutes.Delete("/:id", cardsHandler.Delete)
	cardRoutes.Post("/:id/comments", commentsHandler.Create)
	cardRoutes.Get("/:id/comments", commentsHandler.ListByCard)
	cardRoutes.Post("/:id/attachments", attachmentsHandler.Upload)
	cardRoutes.Get("/:id/attachments", attachmentsHandler.ListByCard)

	api.Get("/attachments/:id/download", authMiddleware.RequireAuth, attachmentsHandler.DownloadURL)
	api.Delete("/attachments/:id", authMiddleware.RequireAuth, attachmentsHandler.Delete)

	api.Delete("/comments/:id", authMiddleware.RequireAuth, commentsHandler.Delete)

	notificationRoutes := api.Group("/notifications", authMiddleware.RequireAuth)
	notificationRoutes.Get("/", notificationsHandler.List)
	notificationRoutes.Get("/unread-count", notificationsHandler.UnreadCount)
	notificationRoutes.Put("/read-all", notificationsHandler.MarkAllRead)
	notificationRoutes.Put("/:id/read", notificationsHandler.MarkRead)

	api.Get("/audit-log/export", authMiddleware.RequireAuth, auditHandler.ExportMyLog)
	api.Get("/audit-log", authMiddleware.RequireAuth, middleware.AdminOnly, auditHandler.ListAll)

	return &testEnv{app: app, db: db, store: store}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, isAdmin bool) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Test User",
		IsAdmin:      isAdmin,
		IsApproved:   true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestBoard(t *testing.T, db *gorm.DB, owner *models.User, title string) *models.Board {
	t.Helper()

	workspace := &models.Workspace{Name: "Workspace", OwnerID: owner.ID}
	if err := db.Create(workspace).Error; err != nil {
		t.Fatalf("failed creating workspace: %v", err)
	}

	board := &models.Board{WorkspaceID: workspace.ID, Title: title}
	if err := db.Create(board).Error; err != nil {
		t.Fatalf("failed creating board: %v", err)
	}

	return board
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

func dataMap(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %+v", body)
	}
	return data
}
