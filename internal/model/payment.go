package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentMethodGateway     = "midtrans"
	PaymentMethodManualAdmin = "manual_admin"

	PaymentRecordSuccess = "success"
)

// Payment is the append-only evidence of money received for an order.
// SuccessGuard carries the order id on success records; its unique index caps
// them at one per order.
type Payment struct {
	BaseModel
	OrderID       uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Method        string    `gorm:"type:varchar(30);not null" json:"method"`
	Status        string    `gorm:"type:varchar(20);not null" json:"status"`
	SuccessGuard  *string   `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	TransactionID string    `gorm:"type:varchar(100)" json:"transaction_id,omitempty"`
	PaymentType   string    `gorm:"type:varchar(50)" json:"payment_type,omitempty"`
	Bank          string    `gorm:"type:varchar(50)" json:"bank,omitempty"`
	VANumber      string    `gorm:"type:varchar(100)" json:"va_number,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
}

// NewSuccessPayment builds the single success record allowed for an order.
func NewSuccessPayment(order *Order, method string, paidAt time.Time) *Payment {
	guard := order.ID.String()
	return &Payment{
		OrderID:       order.ID,
		Amount:        order.TotalPrice,
		Method:        method,
		Status:        PaymentRecordSuccess,
		SuccessGuard:  &guard,
		TransactionID: order.GatewayTransactionID,
		PaymentType:   order.PaymentType,
		Bank:          order.Bank,
		VANumber:      order.VANumber,
		PaidAt:        paidAt,
	}
}
