package model

import "strings"

// PaymentStatus is the local view of whether money has been received.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

// Terminal reports whether ordinary notification flow may no longer move the order.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentFailed
}

// OrderStatus follows PaymentStatus: pending/pending, paid/confirmed, failed/cancelled.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderStatusFor returns the only order status allowed next to the given payment status.
func OrderStatusFor(p PaymentStatus) OrderStatus {
	switch p {
	case PaymentPaid:
		return OrderConfirmed
	case PaymentFailed:
		return OrderCancelled
	default:
		return OrderPending
	}
}

type VehicleStatus string

const (
	VehicleAvailable VehicleStatus = "available"
	VehicleRented    VehicleStatus = "rented"
)

// GatewayStatus is the closed set of transaction statuses the gateway reports.
type GatewayStatus string

const (
	GatewaySettlement GatewayStatus = "settlement"
	GatewayCapture    GatewayStatus = "capture"
	GatewayPending    GatewayStatus = "pending"
	GatewayDeny       GatewayStatus = "deny"
	GatewayCancel     GatewayStatus = "cancel"
	GatewayExpire     GatewayStatus = "expire"
	GatewayFailure    GatewayStatus = "failure"
	GatewayUnknown    GatewayStatus = "unknown"
)

// ParseGatewayStatus maps a raw upstream string onto GatewayStatus.
// Anything not recognised becomes GatewayUnknown.
func ParseGatewayStatus(raw string) GatewayStatus {
	switch s := GatewayStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case GatewaySettlement, GatewayCapture, GatewayPending,
		GatewayDeny, GatewayCancel, GatewayExpire, GatewayFailure:
		return s
	}
	return GatewayUnknown
}

// PaymentStatus returns the local payment status the gateway status leads to.
// ok is false for GatewayUnknown.
func (g GatewayStatus) PaymentStatus() (status PaymentStatus, ok bool) {
	switch g {
	case GatewaySettlement, GatewayCapture:
		return PaymentPaid, true
	case GatewayPending:
		return PaymentPending, true
	case GatewayDeny, GatewayCancel, GatewayExpire, GatewayFailure:
		return PaymentFailed, true
	}
	return "", false
}
