package service

import (
	"fmt"

	"github.com/google/uuid"

	"go-rental-ws/internal/model"
	"go-rental-ws/internal/repository"
	"go-rental-ws/pkg/validator"
)

type VehicleService interface {
	CreateVehicle(req *model.Vehicle) error
	UpdateVehicle(id uuid.UUID, req *model.Vehicle) (*model.Vehicle, error)
	GetVehicles(status model.VehicleStatus) ([]model.Vehicle, error)
	GetVehicle(id uuid.UUID) (*model.Vehicle, error)
}

type vehicleService struct {
	vehicleRepo repository.VehicleRepository
}

func NewVehicleService(vehicleRepo repository.VehicleRepository) VehicleService {
	return &vehicleService{vehicleRepo: vehicleRepo}
}

func validateVehicle(v *model.Vehicle) error {
	if errs := validator.ValidateStruct(v); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, validator.Summary(errs))
	}
	return nil
}

// CreateVehicle always starts a vehicle as available.
func (s *vehicleService) CreateVehicle(req *model.Vehicle) error {
	if err := validateVehicle(req); err != nil {
		return err
	}
	req.ID = uuid.Nil
	req.Status = model.VehicleAvailable
	return s.vehicleRepo.Create(req)
}

func (s *vehicleService) UpdateVehicle(id uuid.UUID, req *model.Vehicle) (*model.Vehicle, error) {
	if err := validateVehicle(req); err != nil {
		return nil, err
	}
	existing, err := s.GetVehicle(id)
	if err != nil {
		return nil, err
	}

	existing.Make = req.Make
	existing.Model = req.Model
	existing.Year = req.Year
	existing.PlateNumber = req.PlateNumber
	existing.Type = req.Type
	existing.Transmission = req.Transmission
	existing.Capacity = req.Capacity
	existing.DailyRate = req.DailyRate
	existing.Description = req.Description

	if err := s.vehicleRepo.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *vehicleService) GetVehicles(status model.VehicleStatus) ([]model.Vehicle, error) {
	return s.vehicleRepo.FindAll(status)
}

func (s *vehicleService) GetVehicle(id uuid.UUID) (*model.Vehicle, error) {
	v, err := s.vehicleRepo.FindByID(id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
		}
		return nil, err
	}
	return v, nil
}
