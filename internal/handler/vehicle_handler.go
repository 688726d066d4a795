package handler

import (
	"go-rental-ws/internal/model"
	"go-rental-ws/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type VehicleHandler struct {
	service service.VehicleService
}

func NewVehicleHandler(s service.VehicleService) *VehicleHandler {
	return &VehicleHandler{service: s}
}

func (h *VehicleHandler) CreateVehicle(c *fiber.Ctx) error {
	var vehicle model.Vehicle
	if err := c.BodyParser(&vehicle); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.service.CreateVehicle(&vehicle); err != nil {
		return respondError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Vehicle created", "data": vehicle})
}

func (h *VehicleHandler) UpdateVehicle(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid vehicle ID"})
	}

	var vehicle model.Vehicle
	if err := c.BodyParser(&vehicle); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	updated, err := h.service.UpdateVehicle(id, &vehicle)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Vehicle updated", "data": updated})
}

// GetVehicles lists the catalog. Query params: status (available|rented)
func (h *VehicleHandler) GetVehicles(c *fiber.Ctx) error {
	vehicles, err := h.service.GetVehicles(model.VehicleStatus(c.Query("status")))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(vehicles)
}

func (h *VehicleHandler) GetVehicle(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid vehicle ID"})
	}

	vehicle, err := h.service.GetVehicle(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(vehicle)
}
