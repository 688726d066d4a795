package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go-rental-ws/internal/model"
	"go-rental-ws/internal/repository"
	"go-rental-ws/pkg/validator"
)

const codeAttempts = 3

type BookingRequest struct {
	VehicleID      uuid.UUID `json:"vehicle_id" validate:"uuid_required"`
	StartDate      string    `json:"start_date" validate:"required,rental_date"`
	EndDate        string    `json:"end_date" validate:"required,rental_date"`
	PickupLocation string    `json:"pickup_location" validate:"max=255"`
	Notes          string    `json:"notes" validate:"max=1000"`
}

type BookingService interface {
	CreateBooking(ctx context.Context, userID uuid.UUID, req *BookingRequest) (*model.Order, error)
}

type bookingService struct {
	db            *gorm.DB
	orderRepo     repository.OrderRepository
	vehicleRepo   repository.VehicleRepository
	publisher     EventPublisher
	maxRentalDays int
	loc           *time.Location
	log           *logrus.Logger
	newCode       func(time.Time) string
}

func NewBookingService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	vehicleRepo repository.VehicleRepository,
	publisher EventPublisher,
	maxRentalDays int,
	loc *time.Location,
	log *logrus.Logger,
) BookingService {
	return &bookingService{
		db:            db,
		orderRepo:     orderRepo,
		vehicleRepo:   vehicleRepo,
		publisher:     publisher,
		maxRentalDays: maxRentalDays,
		loc:           loc,
		log:           log,
		newCode:       NewOrderCode,
	}
}

// NewOrderCode returns RENT-YYYYMMDD-XXXXXX with a random upper-case hex suffix.
func NewOrderCode(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	return fmt.Sprintf("RENT-%s-%s", now.Format("20060102"), strings.ToUpper(suffix))
}

// RentalDays counts calendar days inclusive of both ends.
func RentalDays(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

func (s *bookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req *BookingRequest) (*model.Order, error) {
	// 1. Validasi input
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, validator.Summary(errs))
	}

	start, _ := time.Parse(validator.DateLayout, req.StartDate)
	end, _ := time.Parse(validator.DateLayout, req.EndDate)
	duration := RentalDays(start, end)
	if duration < 1 {
		return nil, fmt.Errorf("%w: end date must not be before start date", ErrValidation)
	}
	if duration > s.maxRentalDays {
		return nil, fmt.Errorf("%w: rental period cannot exceed %d days", ErrValidation, s.maxRentalDays)
	}

	// 2. Cek kendaraan
	vehicle, err := s.vehicleRepo.FindByID(req.VehicleID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, req.VehicleID)
		}
		return nil, err
	}
	if !vehicle.Available() {
		return nil, ErrUnavailable
	}

	// 3. Reserve + insert dalam satu transaksi; ulangi jika kode bentrok
	var order *model.Order
	for attempt := 1; attempt <= codeAttempts; attempt++ {
		order = &model.Order{
			Code:           s.newCode(time.Now().In(s.loc)),
			VehicleID:      vehicle.ID,
			UserID:         userID,
			StartDate:      start,
			EndDate:        end,
			DurationDays:   duration,
			TotalPrice:     vehicle.DailyRate * int64(duration),
			PickupLocation: strings.TrimSpace(req.PickupLocation),
			Notes:          strings.TrimSpace(req.Notes),
			PaymentStatus:  model.PaymentPending,
			Status:         model.OrderPending,
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			reserved, err := s.vehicleRepo.Reserve(tx, vehicle.ID)
			if err != nil {
				return err
			}
			if !reserved {
				return ErrUnavailable
			}
			return s.orderRepo.Create(tx, order)
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		s.log.WithField("order_code", order.Code).Warn("order code collision, retrying")
	}
	if err != nil {
		return nil, err
	}

	order.Vehicle = vehicle
	s.log.WithFields(logrus.Fields{
		"order_code": order.Code,
		"vehicle_id": vehicle.ID,
		"days":       duration,
		"total":      order.TotalPrice,
	}).Info("booking created")

	publish(s.log, s.publisher, model.NewOrderEvent(model.EventOrderCreated, order, "booking"))
	return order, nil
}
