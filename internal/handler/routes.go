package handler

import (
	"go-rental-ws/internal/middleware"
	"go-rental-ws/internal/model"
	"go-rental-ws/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Auth      *AuthHandler
	Vehicle   *VehicleHandler
	Order     *OrderHandler
	Payment   *PaymentHandler
	Dashboard *DashboardHandler
	Role      *RoleHandler
	Health    *HealthHandler
	Hub       *ws.Hub
}

// RegisterRoutes mounts the API on app. requireAuth is normally middleware.RequireAuth.
func RegisterRoutes(app *fiber.App, h Handlers, requireAuth fiber.Handler) {
	app.Get("/health", h.Health.Health)

	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/reset-password", h.Auth.ResetPassword)
	auth.Post("/validate-token", h.Auth.ValidateToken)

	// Gateway webhook; authenticity comes from the optional signature check.
	api.Post("/payments/notification", h.Payment.Notification)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)

	// Vehicle Routes
	protected.Get("/vehicles", middleware.RequirePrivilege(model.PrivVehicleView), h.Vehicle.GetVehicles)
	protected.Get("/vehicles/:id", middleware.RequirePrivilege(model.PrivVehicleView), h.Vehicle.GetVehicle)
	protected.Post("/vehicles", middleware.RequirePrivilege(model.PrivVehicleManage), h.Vehicle.CreateVehicle)
	protected.Put("/vehicles/:id", middleware.RequirePrivilege(model.PrivVehicleManage), h.Vehicle.UpdateVehicle)

	// Order Routes
	viewOrders := middleware.RequireAnyPrivilege(model.PrivOrderViewOwn, model.PrivOrderViewAll)
	protected.Post("/orders", middleware.RequirePrivilege(model.PrivOrderCreate), h.Order.CreateBooking)
	protected.Get("/orders", viewOrders, h.Order.GetOrders)
	protected.Get("/orders/history", viewOrders, h.Order.GetPaymentHistory)
	protected.Get("/orders/:code", viewOrders, h.Order.GetOrder)
	protected.Get("/orders/:code/invoice", viewOrders, h.Order.GetInvoice)
	protected.Get("/orders/:code/gateway-logs", middleware.RequirePrivilege(model.PrivOrderViewAll), h.Order.GetGatewayLogs)
	protected.Put("/orders/:code/payment-status", middleware.RequirePrivilege(model.PrivPaymentForce), h.Order.ForcePaymentStatus)

	// Payment Routes
	protected.Post("/orders/:code/payment", middleware.RequirePrivilege(model.PrivOrderCreate), h.Payment.CreateSession)
	protected.Post("/orders/:code/sync", middleware.RequirePrivilege(model.PrivPaymentSync), h.Payment.SyncStatus)
	protected.Get("/orders/:code/check-payment", viewOrders, h.Payment.CheckPayment)

	// Dashboard Routes
	protected.Get("/dashboard/stats", middleware.RequirePrivilege(model.PrivDashboardView), h.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/booking-movement", middleware.RequirePrivilege(model.PrivDashboardView), h.Dashboard.GetBookingMovement)

	// Role Routes
	protected.Get("/roles", middleware.RequirePrivilege(model.PrivDashboardView), h.Role.GetRoles)
	protected.Get("/privileges", middleware.RequirePrivilege(model.PrivDashboardView), h.Role.GetPrivileges)

	if h.Hub == nil {
		return
	}

	// WebSocket Route (admin live order feed)
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		if !h.Hub.Join(c) {
			return
		}
		defer h.Hub.Leave(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))
}
