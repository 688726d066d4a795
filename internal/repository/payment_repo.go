package repository

import (
	"go-rental-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	HasSuccess(tx *gorm.DB, orderID uuid.UUID) (bool, error)
	InsertSuccess(tx *gorm.DB, payment *model.Payment) (bool, error)
	FindSuccess(orderID uuid.UUID) (*model.Payment, error)
	CountSuccess(orderID uuid.UUID) (int64, error)
}

type paymentRepo struct {
	db *gorm.DB
}

func NewPaymentRepo(db *gorm.DB) PaymentRepository {
	return &paymentRepo{db}
}

func (r *paymentRepo) HasSuccess(tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&model.Payment{}).
		Where("order_id = ? AND status = ?", orderID, model.PaymentRecordSuccess).
		Count(&count).Error
	return count > 0, err
}

// InsertSuccess writes the success record unless one already exists. The
// unique success_guard column makes a racing second insert a no-op.
func (r *paymentRepo) InsertSuccess(tx *gorm.DB, payment *model.Payment) (bool, error) {
	exists, err := r.HasSuccess(tx, payment.OrderID)
	if err != nil || exists {
		return false, err
	}

	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(payment)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *paymentRepo) FindSuccess(orderID uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.Where("order_id = ? AND status = ?", orderID, model.PaymentRecordSuccess).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepo) CountSuccess(orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.Payment{}).
		Where("order_id = ? AND status = ?", orderID, model.PaymentRecordSuccess).
		Count(&count).Error
	return count, err
}
