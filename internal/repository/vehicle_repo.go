package repository

import (
	"go-rental-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VehicleRepository interface {
	Create(vehicle *model.Vehicle) error
	FindAll(status model.VehicleStatus) ([]model.Vehicle, error)
	FindByID(id uuid.UUID) (*model.Vehicle, error)
	Update(vehicle *model.Vehicle) error
	Reserve(tx *gorm.DB, id uuid.UUID) (bool, error)
	SetStatus(tx *gorm.DB, id uuid.UUID, status model.VehicleStatus) error
}

type vehicleRepo struct {
	db *gorm.DB
}

func NewVehicleRepo(db *gorm.DB) VehicleRepository {
	return &vehicleRepo{db}
}

func (r *vehicleRepo) Create(vehicle *model.Vehicle) error {
	return r.db.Create(vehicle).Error
}

// FindAll lists vehicles, optionally filtered by status.
func (r *vehicleRepo) FindAll(status model.VehicleStatus) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	q := r.db.Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&vehicles).Error
	return vehicles, err
}

func (r *vehicleRepo) FindByID(id uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	if err := r.db.First(&vehicle, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// Update saves catalog fields only; status is owned by bookings and reconciliation.
func (r *vehicleRepo) Update(vehicle *model.Vehicle) error {
	return r.db.Model(vehicle).
		Select("make", "model", "year", "plate_number", "type", "transmission", "capacity", "daily_rate", "description").
		Updates(vehicle).Error
}

// Reserve flips an available vehicle to rented. It reports false when the
// vehicle was not available, so two bookings can never both win.
func (r *vehicleRepo) Reserve(tx *gorm.DB, id uuid.UUID) (bool, error) {
	res := tx.Model(&model.Vehicle{}).
		Where("id = ? AND status = ?", id, model.VehicleAvailable).
		Update("status", model.VehicleRented)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetStatus menerima *gorm.DB (tx) agar bisa berjalan dalam transaksi
func (r *vehicleRepo) SetStatus(tx *gorm.DB, id uuid.UUID, status model.VehicleStatus) error {
	return tx.Model(&model.Vehicle{}).Where("id = ?", id).Update("status", status).Error
}
