package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	SourceWebhook = "webhook"
	SourcePoll    = "poll"
	SourceAdmin   = "admin"
)

var gatewayTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
}

// GatewayNotification is one status payload from the gateway, either pushed
// to the webhook or returned by the status API.
type GatewayNotification struct {
	OrderCode         string
	TransactionID     string
	TransactionStatus string
	Status            GatewayStatus
	StatusCode        string
	GrossAmount       decimal.Decimal
	GrossAmountRaw    string
	AmountErr         error
	PaymentType       string
	FraudStatus       string
	Bank              string
	VANumber          string
	TransactionTime   string
	SettlementTime    string
	SignatureKey      string
	Raw               []byte
}

type vaNumber struct {
	Bank     string `json:"bank"`
	VANumber string `json:"va_number"`
}

type notificationPayload struct {
	OrderID           string          `json:"order_id"`
	TransactionID     string          `json:"transaction_id"`
	TransactionStatus string          `json:"transaction_status"`
	StatusCode        string          `json:"status_code"`
	GrossAmount       json.RawMessage `json:"gross_amount"`
	PaymentType       string          `json:"payment_type"`
	FraudStatus       string          `json:"fraud_status"`
	Bank              string          `json:"bank"`
	VANumber          string          `json:"va_number"`
	VANumbers         []vaNumber      `json:"va_numbers"`
	PermataVANumber   string          `json:"permata_va_number"`
	TransactionTime   string          `json:"transaction_time"`
	SettlementTime    string          `json:"settlement_time"`
	SignatureKey      string          `json:"signature_key"`
}

// ParseNotification decodes a gateway payload. A missing order_id is not an
// error here; callers decide how to reject it.
func ParseNotification(body []byte) (*GatewayNotification, error) {
	var p notificationPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode gateway payload: %w", err)
	}

	n := &GatewayNotification{
		OrderCode:         strings.TrimSpace(p.OrderID),
		TransactionID:     p.TransactionID,
		TransactionStatus: p.TransactionStatus,
		Status:            ParseGatewayStatus(p.TransactionStatus),
		StatusCode:        p.StatusCode,
		PaymentType:       p.PaymentType,
		FraudStatus:       p.FraudStatus,
		Bank:              p.Bank,
		VANumber:          p.VANumber,
		TransactionTime:   p.TransactionTime,
		SettlementTime:    p.SettlementTime,
		SignatureKey:      p.SignatureKey,
		Raw:               append([]byte(nil), body...),
	}

	if n.VANumber == "" && len(p.VANumbers) > 0 {
		n.Bank = p.VANumbers[0].Bank
		n.VANumber = p.VANumbers[0].VANumber
	}
	if n.VANumber == "" && p.PermataVANumber != "" {
		n.Bank = "permata"
		n.VANumber = p.PermataVANumber
	}

	raw := strings.Trim(strings.TrimSpace(string(p.GrossAmount)), `"`)
	// Reconciliation does not use the amount, so a malformed one is reported
	// through AmountErr instead of rejecting the payload.
	if raw != "" && raw != "null" {
		n.GrossAmountRaw = raw
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			n.AmountErr = fmt.Errorf("decode gross_amount %q: %w", raw, err)
		} else {
			n.GrossAmount = amount
		}
	}

	return n, nil
}

// ParseGatewayTime reads the gateway's "YYYY-MM-DD HH:MM:SS[.ffffff]" timestamps.
func ParseGatewayTime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range gatewayTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// GatewayLog is the append-only audit trail of raw gateway payloads.
// It is written on receipt and never read by reconciliation.
type GatewayLog struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	OrderCode         string          `gorm:"type:varchar(64);index;not null" json:"order_code"`
	Source            string          `gorm:"type:varchar(20);not null" json:"source"`
	TransactionID     string          `gorm:"type:varchar(100)" json:"transaction_id,omitempty"`
	TransactionStatus string          `gorm:"type:varchar(50)" json:"transaction_status"`
	FraudStatus       string          `gorm:"type:varchar(50)" json:"fraud_status,omitempty"`
	PaymentType       string          `gorm:"type:varchar(50)" json:"payment_type,omitempty"`
	Bank              string          `gorm:"type:varchar(50)" json:"bank,omitempty"`
	VANumber          string          `gorm:"type:varchar(100)" json:"va_number,omitempty"`
	GrossAmount       decimal.Decimal `gorm:"type:decimal(15,2)" json:"gross_amount"`
	Payload           datatypes.JSON  `json:"payload"`
	CreatedAt         time.Time       `json:"created_at"`
}

// NewGatewayLog captures a notification as received.
func NewGatewayLog(n *GatewayNotification, source string) *GatewayLog {
	payload := n.Raw
	if !json.Valid(payload) {
		payload = []byte("{}")
	}
	return &GatewayLog{
		OrderCode:         n.OrderCode,
		Source:            source,
		TransactionID:     n.TransactionID,
		TransactionStatus: n.TransactionStatus,
		FraudStatus:       n.FraudStatus,
		PaymentType:       n.PaymentType,
		Bank:              n.Bank,
		VANumber:          n.VANumber,
		GrossAmount:       n.GrossAmount,
		Payload:           datatypes.JSON(payload),
	}
}
