package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/taskboard/backend/internal/config"
	"github.com/taskboard/backend/internal/database"
	"github.com/taskboard/backend/internal/handlers"
	"github.com/taskboard/backend/internal/middleware"
	"github.com/taskboard/backend/internal/services"
	"github.com/taskboard/backend/internal/storage"
	"github.com/taskboard/backend/pkg/logger"
	"github.com/taskboard/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	store, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}
	if err := store.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring attachment bucket: %v", err)
	}

	permissionService := services.NewPermissionService(db)
	shareService := services.NewShareService(db)
	listService := services.NewListService(db)
	cardService := services.NewCardService(db)
	auditService := services.NewAuditService(db)

	authHandler := handlers.NewAuthHandler(db, auditService)
	usersHandler := handlers.NewUsersHandler(db, auditService)
	workspacesHandler := handlers.NewWorkspacesHandler(db, shareService, auditService)
	boardsHandler := handlers.NewBoardsHandler(db, permissionService, auditService)
	sharesHandler := handlers.NewSharesHandler(db, permissionService, shareService, auditService)
	listsHandler := handlers.NewListsHandler(db, permissionService, listService)
	cardsHandler := handlers.NewCardsHandler(db, permissionService, cardService, auditService)
	commentsHandler := handlers.NewCommentsHandler(db, permissionService, auditService)
	attachmentsHandler := handlers.NewAttachmentsHandler(db, store, permissionService, auditService, cfg.Upload.MaxAttachmentBytes)
	notificationsHandler := handlers.NewNotificationsHandler(db)
	auditHandler := handlers.NewAuditHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: int(cfg.Upload.MaxAttachmentBytes) + 1024*1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendURL))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Get("/version", handlers.GetVersion)

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

	// Board reads sit outside the authenticated group so public boards
	// render without a login.
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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":             cfg.Server.Port,
		"address":          listenAddr,
		"storage_provider": string(cfg.Storage.Provider),
		"version":          handlers.Version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			auditService.Close()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
