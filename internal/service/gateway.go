package service

import (
	"context"

	"go-rental-ws/internal/gateway"
	"go-rental-ws/internal/model"
)

// PaymentGateway is the part of the gateway client the services depend on.
type PaymentGateway interface {
	CreateSnapToken(ctx context.Context, req gateway.SnapRequest) (string, error)
	TransactionStatus(ctx context.Context, orderCode string) (*model.GatewayNotification, error)
}
