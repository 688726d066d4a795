package handler

import (
	"go-rental-ws/internal/model"
	"go-rental-ws/internal/repository"
	"go-rental-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	bookings service.BookingService
	orders   service.OrderService
}

func NewOrderHandler(bookings service.BookingService, orders service.OrderService) *OrderHandler {
	return &OrderHandler{bookings: bookings, orders: orders}
}

// CreateBooking reserves a vehicle and opens a pending order
// POST /api/v1/orders
func (h *OrderHandler) CreateBooking(c *fiber.Ctx) error {
	var req service.BookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order, err := h.bookings.CreateBooking(c.UserContext(), getUserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Booking created", "data": order})
}

// GetOrders lists orders. Customers only ever see their own.
// Query params: payment_status, status
func (h *OrderHandler) GetOrders(c *fiber.Ctx) error {
	filter := repository.OrderFilter{
		PaymentStatus: model.PaymentStatus(c.Query("payment_status")),
		Status:        model.OrderStatus(c.Query("status")),
	}

	orders, err := h.orders.ListOrders(getActor(c), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orders)
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	detail, err := h.orders.GetOrder(getActor(c), orderCode(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

func (h *OrderHandler) GetInvoice(c *fiber.Ctx) error {
	invoice, err := h.orders.GetInvoice(getActor(c), orderCode(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(invoice)
}

func (h *OrderHandler) GetPaymentHistory(c *fiber.Ctx) error {
	history, err := h.orders.GetPaymentHistory(getActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(history)
}

// GetGatewayLogs returns the raw gateway payloads received for an order (admin)
func (h *OrderHandler) GetGatewayLogs(c *fiber.Ctx) error {
	logs, err := h.orders.GetGatewayLogs(orderCode(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(logs)
}

// ForcePaymentStatus is the admin override
// PUT /api/v1/orders/:code/payment-status
func (h *OrderHandler) ForcePaymentStatus(c *fiber.Ctx) error {
	var req service.ForceStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	outcome, err := h.orders.ForcePaymentStatus(c.UserContext(), orderCode(c), &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Payment status updated", "data": outcome})
}
