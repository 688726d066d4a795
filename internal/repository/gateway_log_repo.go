package repository

import (
	"go-rental-ws/internal/model"

	"gorm.io/gorm"
)

// GatewayLogRepository is append-only; there is no update or delete.
type GatewayLogRepository interface {
	Append(entry *model.GatewayLog) error
	FindByOrderCode(code string) ([]model.GatewayLog, error)
}

type gatewayLogRepo struct {
	db *gorm.DB
}

func NewGatewayLogRepo(db *gorm.DB) GatewayLogRepository {
	return &gatewayLogRepo{db}
}

func (r *gatewayLogRepo) Append(entry *model.GatewayLog) error {
	return r.db.Create(entry).Error
}

func (r *gatewayLogRepo) FindByOrderCode(code string) ([]model.GatewayLog, error) {
	var logs []model.GatewayLog
	err := r.db.Where("order_code = ?", code).Order("id ASC").Find(&logs).Error
	return logs, err
}
