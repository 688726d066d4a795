package handler

import (
	"go-rental-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	payments      service.PaymentService
	notifications service.NotificationService
}

func NewPaymentHandler(payments service.PaymentService, notifications service.NotificationService) *PaymentHandler {
	return &PaymentHandler{payments: payments, notifications: notifications}
}

// CreateSession returns what the client-side payment pop-up needs
// POST /api/v1/orders/:code/payment
func (h *PaymentHandler) CreateSession(c *fiber.Ctx) error {
	session, err := h.payments.IssueToken(c.UserContext(), getActor(c), orderCode(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

// Notification receives gateway webhooks. Anything well-formed is answered
// with 200 so the gateway does not retry business failures. Rejected payloads
// get the same ack body with a 400 or 401.
// POST /api/v1/payments/notification
func (h *PaymentHandler) Notification(c *fiber.Ctx) error {
	ack, err := h.notifications.HandleWebhook(c.UserContext(), c.Body())
	if err != nil {
		if ack == nil {
			ack = &service.Acknowledgement{Status: "error", Message: err.Error()}
		}
		return c.Status(statusFor(err)).JSON(ack)
	}
	return c.JSON(ack)
}

// SyncStatus polls the gateway for one order
// POST /api/v1/orders/:code/sync
func (h *PaymentHandler) SyncStatus(c *fiber.Ctx) error {
	result, err := h.notifications.SyncOrder(c.UserContext(), getActor(c), orderCode(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// CheckPayment answers from the database for paid orders and polls otherwise
// GET /api/v1/orders/:code/check-payment
func (h *PaymentHandler) CheckPayment(c *fiber.Ctx) error {
	result, err := h.notifications.CheckPayment(c.UserContext(), getActor(c), orderCode(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
