package repository

import (
	"time"

	"go-rental-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(tx *gorm.DB, order *model.Order) error
	FindByCode(code string) (*model.Order, error)
	FindByCodeForUpdate(tx *gorm.DB, code string) (*model.Order, error)
	FindAll(filter OrderFilter) ([]model.Order, error)
	Update(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	SaveToken(id uuid.UUID, token string) (bool, error)
	VehicleHeldByOther(tx *gorm.DB, vehicleID, orderID uuid.UUID) (bool, error)
	FindStalePending(olderThan time.Time, limit int) ([]model.Order, error)
	GetPaymentHistory(userID uuid.UUID) ([]model.Order, int64, error)
	GetBookingMovement(startDate, endDate time.Time) ([]BookingMovementData, error)
	GetDashboardStats(dayStart, dayEnd time.Time) (*DashboardStats, error)
}

// OrderFilter narrows order listings. Zero values mean "any".
type OrderFilter struct {
	UserID        uuid.UUID
	PaymentStatus model.PaymentStatus
	Status        model.OrderStatus
}

// BookingMovementData untuk chart data
type BookingMovementData struct {
	Date     string `json:"date"`
	Bookings int    `json:"bookings"`
	Paid     int    `json:"paid"`
	Revenue  int64  `json:"revenue"`
}

// DashboardStats untuk overview stats
type DashboardStats struct {
	TotalCustomers    int64 `json:"total_customers"`
	TotalVehicles     int64 `json:"total_vehicles"`
	AvailableVehicles int64 `json:"available_vehicles"`
	ActiveRentals     int64 `json:"active_rentals"`
	PendingPayments   int64 `json:"pending_payments"`
	TodayRevenue      int64 `json:"today_revenue"`
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db}
}

func (r *orderRepo) Create(tx *gorm.DB, order *model.Order) error {
	return tx.Create(order).Error
}

func (r *orderRepo) FindByCode(code string) (*model.Order, error) {
	var order model.Order
	err := r.db.Preload("Vehicle").Preload("User").Where("code = ?", code).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByCodeForUpdate locks the order row for the rest of the transaction.
func (r *orderRepo) FindByCodeForUpdate(tx *gorm.DB, code string) (*model.Order, error) {
	var order model.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("code = ?", code).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) FindAll(filter OrderFilter) ([]model.Order, error) {
	var orders []model.Order
	q := r.db.Preload("Vehicle").Preload("User").Order("created_at DESC")
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	err := q.Find(&orders).Error
	return orders, err
}

func (r *orderRepo) Update(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	return tx.Model(&model.Order{}).Where("id = ?", id).Updates(fields).Error
}

// SaveToken stores the gateway token only if none is cached yet. It reports
// false when another request stored one first.
func (r *orderRepo) SaveToken(id uuid.UUID, token string) (bool, error) {
	res := r.db.Model(&model.Order{}).
		Where("id = ? AND gateway_token = ?", id, "").
		Update("gateway_token", token)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// VehicleHeldByOther reports whether another non-failed order keeps the vehicle.
func (r *orderRepo) VehicleHeldByOther(tx *gorm.DB, vehicleID, orderID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&model.Order{}).
		Where("vehicle_id = ? AND id <> ? AND payment_status <> ?", vehicleID, orderID, model.PaymentFailed).
		Count(&count).Error
	return count > 0, err
}

// FindStalePending returns pending orders with an issued token that were
// created before olderThan, oldest first.
func (r *orderRepo) FindStalePending(olderThan time.Time, limit int) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.
		Where("payment_status = ? AND gateway_token <> ? AND created_at < ?", model.PaymentPending, "", olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *orderRepo) GetPaymentHistory(userID uuid.UUID) ([]model.Order, int64, error) {
	var orders []model.Order
	err := r.db.Preload("Vehicle").
		Where("user_id = ? AND payment_status = ?", userID, model.PaymentPaid).
		Order("paid_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	var total int64
	for _, o := range orders {
		total += o.TotalPrice
	}
	return orders, total, nil
}

func (r *orderRepo) GetBookingMovement(startDate, endDate time.Time) ([]BookingMovementData, error) {
	var results []BookingMovementData

	// Query untuk aggregate orders per hari
	rows, err := r.db.Model(&model.Order{}).
		Select(`
			DATE(created_at) as date,
			COUNT(*) as bookings,
			COALESCE(SUM(CASE WHEN payment_status = 'paid' THEN 1 ELSE 0 END), 0) as paid,
			COALESCE(SUM(CASE WHEN payment_status = 'paid' THEN total_price ELSE 0 END), 0) as revenue
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data BookingMovementData
		if err := rows.Scan(&data.Date, &data.Bookings, &data.Paid, &data.Revenue); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}

func (r *orderRepo) GetDashboardStats(dayStart, dayEnd time.Time) (*DashboardStats, error) {
	var stats DashboardStats

	err := r.db.Model(&model.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.code = ?", model.RoleCustomer).
		Count(&stats.TotalCustomers).Error
	if err != nil {
		return nil, err
	}

	if err := r.db.Model(&model.Vehicle{}).Count(&stats.TotalVehicles).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&model.Vehicle{}).Where("status = ?", model.VehicleAvailable).Count(&stats.AvailableVehicles).Error; err != nil {
		return nil, err
	}

	err = r.db.Model(&model.Order{}).
		Where("status = ? AND end_date >= ?", model.OrderConfirmed, dayStart).
		Count(&stats.ActiveRentals).Error
	if err != nil {
		return nil, err
	}

	if err := r.db.Model(&model.Order{}).Where("payment_status = ?", model.PaymentPending).Count(&stats.PendingPayments).Error; err != nil {
		return nil, err
	}

	err = r.db.Model(&model.Payment{}).
		Where("status = ? AND paid_at BETWEEN ? AND ?", model.PaymentRecordSuccess, dayStart, dayEnd).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.TodayRevenue).Error
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
