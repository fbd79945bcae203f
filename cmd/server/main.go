package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"post-webhook/internal/admin"
	"post-webhook/internal/api"
	"post-webhook/internal/auth"
	"post-webhook/internal/config"
	"post-webhook/internal/content"
	"post-webhook/internal/instrument"
	"post-webhook/internal/settings"
	"post-webhook/internal/store"
	"post-webhook/internal/webhook"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, db: %s/%s)", cfg.Server.Port, cfg.Database.Driver, cfg.Database.Name)

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Printf("Database connected (%s)", db.Dialect.Name())

	// 3. Bootstrap system tables
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap system tables: %v", err)
	}
	log.Println("System tables ready")

	// 4. Content, settings and presentation
	site := content.NewSite(cfg.Site)
	repo := content.NewRepository(db)
	options := settings.NewOptions(db)
	hooks := content.NewHooks()
	service := content.NewService(repo, hooks)

	// 5. Webhook dispatcher, subscribed to status transitions
	cond, err := webhook.CompileCondition(cfg.Webhook.Condition)
	if err != nil {
		log.Fatalf("Invalid webhook condition: %v", err)
	}
	deliveries := webhook.NewDeliveryLog(db)
	dispatchOpts := []webhook.Option{webhook.WithCondition(cond)}
	if cfg.Webhook.LogDeliveries {
		dispatchOpts = append(dispatchOpts, webhook.WithRecorder(deliveries))
	}
	dispatcher := webhook.NewDispatcher(cfg.Webhook.Timeout(), dispatchOpts...)
	hooks.OnTransition(webhook.PublishHook(dispatcher, options, repo, site))

	// 6. Event buffer for tracing
	var eventBuffer *instrument.EventBuffer
	if cfg.Instrumentation.Enabled {
		eventBuffer = instrument.NewEventBuffer(db, cfg.Instrumentation.BufferSize, cfg.Instrumentation.FlushIntervalMs)
		defer eventBuffer.Stop()
	}

	// 7. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(instrument.Middleware(cfg.Instrumentation, eventBuffer))

	// 8. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 9. Auth routes (no auth required)
	auth.RegisterAuthRoutes(app, auth.NewAuthHandler(db, cfg.JWTSecret))

	// 10. Auth middleware for all protected routes
	authMW := auth.AuthMiddleware(cfg.JWTSecret)

	// 11. Admin routes: settings, test send, delivery log
	tester := webhook.NewTestSender(dispatcher, options, repo, site)
	admin.RegisterAdminRoutes(app, admin.NewHandler(options, tester, deliveries), authMW)

	// 12. Post routes
	api.RegisterPostRoutes(app, api.NewPostHandler(service, site), authMW)

	// 13. Start retention scheduler
	retention := store.NewRetentionScheduler(db, cfg.Retention.Days, time.Duration(cfg.Retention.IntervalMinutes)*time.Minute)
	retention.Start()
	defer retention.Stop()

	// 14. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Listen(addr))
}
