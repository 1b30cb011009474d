package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nightlif34/Ninja-Otc/internal/config"
	"github.com/nightlif34/Ninja-Otc/internal/handler"
	"github.com/nightlif34/Ninja-Otc/internal/middleware"
	"github.com/nightlif34/Ninja-Otc/internal/model"
	"github.com/nightlif34/Ninja-Otc/internal/repository"
	"github.com/nightlif34/Ninja-Otc/internal/service"
	"github.com/nightlif34/Ninja-Otc/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	repo, err := repository.New(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	userService := service.NewUserService(repo, cfg.Owners)
	dealService := service.NewDealService(repo, userService)
	adminService := service.NewAdminService(repo, userService)

	var bot *telegram.Bot
	if cfg.Telegram.BotToken != "" {
		bot, err = telegram.NewBot(cfg, userService, dealService, adminService)
		if err != nil {
			log.Printf("Warning: Failed to create Telegram bot: %v", err)
		} else {
			dealService.SetNotifier(bot)
			log.Printf("Telegram bot @%s initialized", bot.GetBotUsername())
		}
	}

	h := handler.New(cfg, userService, dealService, adminService)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Telegram-Init-Data",
	}))

	app.Get("/health", h.Health)

	// Admin panel API: authenticated via Telegram WebApp init data, gated
	// by the computed role hierarchy.
	api := app.Group("/api", middleware.TelegramAuth(cfg))

	confirm := api.Group("/deals", middleware.RequireRole(userService, model.RoleAdmin))
	confirm.Post("/:deal_id/confirm-payment", h.ConfirmPayment)

	admin := api.Group("/admin", middleware.RequireRole(userService, model.RoleOwner))
	admin.Get("/deals", h.ListDeals)
	admin.Get("/deals/:deal_id", h.GetDeal)
	admin.Post("/admins", h.GrantAdmin)
	admin.Delete("/admins/:user_id", h.RevokeAdmin)
	admin.Post("/users/:user_id/reputation", h.SetReputation)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if bot != nil {
		go bot.StartPolling(ctx)
		log.Println("Telegram bot started with long polling")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		cancel()
		_ = app.Shutdown()
	}()

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
