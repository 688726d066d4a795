package testutil

import (
	"context"
	"sync"

	"go-rental-ws/internal/gateway"
	"go-rental-ws/internal/model"
)

// FakeGateway records calls and answers from preset values.
type FakeGateway struct {
	mu sync.Mutex

	Token     string
	TokenErr  error
	Statuses  map[string]*model.GatewayNotification
	StatusErr error

	TokenCalls  int
	StatusCalls int
	LastSnap    gateway.SnapRequest
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{Token: "snap-token-123", Statuses: map[string]*model.GatewayNotification{}}
}

func (f *FakeGateway) CreateSnapToken(ctx context.Context, req gateway.SnapRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TokenCalls++
	f.LastSnap = req
	if f.TokenErr != nil {
		return "", f.TokenErr
	}
	return f.Token, nil
}

func (f *FakeGateway) TransactionStatus(ctx context.Context, orderCode string) (*model.GatewayNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StatusCalls++
	if f.StatusErr != nil {
		return nil, f.StatusErr
	}
	n, ok := f.Statuses[orderCode]
	if !ok {
		return nil, &gateway.Error{Op: "transaction_status", Kind: gateway.KindNotFound, StatusCode: 404}
	}
	cp := *n
	return &cp, nil
}

// SetStatus makes TransactionStatus report raw for orderCode.
func (f *FakeGateway) SetStatus(orderCode, raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Statuses[orderCode] = Notification(orderCode, raw)
}

// Notification builds a gateway payload as the webhook or status API would send it.
func Notification(orderCode, raw string) *model.GatewayNotification {
	body := []byte(`{"order_id":"` + orderCode + `","transaction_status":"` + raw +
		`","transaction_id":"tx-` + orderCode + `","status_code":"200","gross_amount":"300000.00","payment_type":"bank_transfer","va_numbers":[{"bank":"bca","va_number":"812785002530231"}],"settlement_time":"2025-01-10 10:15:30"}`)
	n, err := model.ParseNotification(body)
	if err != nil {
		panic(err)
	}
	return n
}
