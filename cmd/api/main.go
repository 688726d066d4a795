package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go-rental-ws/internal/bootstrap"
	"go-rental-ws/internal/config"
	"go-rental-ws/internal/handler"
	"go-rental-ws/internal/middleware"
	"go-rental-ws/internal/ws"
	"go-rental-ws/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

const (
	defaultAdminEmail    = "admin@example.com"
	defaultAdminPassword = "admin123"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", false).WithError(err).Fatal("Invalid configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.JSON)

	// 2. Setup WebSocket Hub
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wsHub := ws.NewHub(log)
	go wsHub.Run(ctx)

	// 3. Setup Database + Dependency Injection
	c, err := bootstrap.New(cfg, log, wsHub)
	if err != nil {
		log.WithError(err).Fatal("Startup failed")
	}
	defer c.Close()

	// Auto Migrate (Hati-hati di production, sebaiknya pakai tools migrasi terpisah)
	if err := c.Migrate(); err != nil {
		log.WithError(err).Fatal("Migration failed")
	}
	if created, err := c.EnsureAdmin(defaultAdminEmail, "Administrator", defaultAdminPassword); err != nil {
		log.WithError(err).Warn("Failed to create admin user")
	} else if created {
		log.Infof("Admin user created: %s / %s", defaultAdminEmail, defaultAdminPassword)
	}

	// 4. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
	})

	// Middleware
	app.Use(fiberlogger.New()) // Logging request
	app.Use(recover.New())     // Panic recovery
	app.Use(cors.New())        // CORS

	// 5. Routes
	handler.RegisterRoutes(app, handler.Handlers{
		Auth:      handler.NewAuthHandler(c.AuthSvc),
		Vehicle:   handler.NewVehicleHandler(c.VehicleSvc),
		Order:     handler.NewOrderHandler(c.BookingSvc, c.OrderSvc),
		Payment:   handler.NewPaymentHandler(c.PaymentSvc, c.Notifications),
		Dashboard: handler.NewDashboardHandler(c.DashboardSvc),
		Role:      handler.NewRoleHandler(c.Roles, c.Privileges),
		Health:    handler.NewHealthHandler(c.DB, cfg.Gateway.Environment()),
		Hub:       wsHub,
	}, middleware.RequireAuth(c.Users, c.JWT))

	// 6. Graceful Shutdown
	go func() {
		log.WithFields(logrus.Fields{
			"port":    cfg.App.Port,
			"gateway": cfg.Gateway.Environment(),
		}).Info("Server starting")
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			log.WithError(err).Panic("Server stopped")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	cancel()

	log.Info("Server exited")
}
