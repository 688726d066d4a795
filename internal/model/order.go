package model

import (
	"time"

	"github.com/google/uuid"
)

// Order is one vehicle reservation and its payment lifecycle. Code is the only
// identifier shared with the payment gateway.
type Order struct {
	BaseModel
	Code      string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`
	VehicleID uuid.UUID `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	Vehicle   *Vehicle  `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`

	StartDate      time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate        time.Time `gorm:"type:date;not null" json:"end_date"`
	DurationDays   int       `gorm:"not null" json:"duration_days"`
	TotalPrice     int64     `gorm:"not null" json:"total_price"`
	PickupLocation string    `gorm:"type:varchar(255)" json:"pickup_location"`
	Notes          string    `gorm:"type:text" json:"notes"`

	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	Status        OrderStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// Gateway fields, overwritten by reconciliation
	GatewayToken             string     `gorm:"type:varchar(255);not null;default:''" json:"-"`
	GatewayTransactionID     string     `gorm:"type:varchar(100)" json:"gateway_transaction_id,omitempty"`
	GatewayTransactionStatus string     `gorm:"type:varchar(50)" json:"gateway_transaction_status,omitempty"`
	PaymentType              string     `gorm:"type:varchar(50)" json:"payment_type,omitempty"`
	Bank                     string     `gorm:"type:varchar(50)" json:"bank,omitempty"`
	VANumber                 string     `gorm:"type:varchar(100)" json:"va_number,omitempty"`
	TransactionTime          *time.Time `json:"transaction_time,omitempty"`
	SettlementTime           *time.Time `json:"settlement_time,omitempty"`
	PaidAt                   *time.Time `json:"paid_at,omitempty"`

	Payments []Payment `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

// Consistent reports whether the payment and order statuses form a valid pair.
func (o *Order) Consistent() bool {
	return o.PaymentStatus.Valid() && o.Status == OrderStatusFor(o.PaymentStatus)
}

// HoldsVehicle reports whether the order keeps its vehicle out of the catalog.
func (o *Order) HoldsVehicle() bool {
	return o.PaymentStatus != PaymentFailed
}

func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}
