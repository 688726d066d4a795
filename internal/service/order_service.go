package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-rental-ws/internal/model"
	"go-rental-ws/internal/repository"
	"go-rental-ws/pkg/rupiah"
)

const adminDateLayout = "2006-01-02 15:04:05"

type OrderDetail struct {
	Order   *model.Order   `json:"order"`
	Payment *model.Payment `json:"payment,omitempty"`
}

type Invoice struct {
	Order       *model.Order   `json:"order"`
	Payment     *model.Payment `json:"payment,omitempty"`
	Amount      int64          `json:"amount"`
	AmountText  string         `json:"amount_text"`
	AmountWords string         `json:"amount_words"`
	IssuedAt    time.Time      `json:"issued_at"`
}

type PaymentHistory struct {
	Orders          []model.Order `json:"orders"`
	TotalSpent      int64         `json:"total_spent"`
	TotalSpentText  string        `json:"total_spent_text"`
	CompletedOrders int           `json:"completed_orders"`
}

type ForceStatusRequest struct {
	Status      string `json:"status" validate:"required,oneof=paid pending failed"`
	PaymentDate string `json:"payment_date"`
}

type OrderService interface {
	ListOrders(actor Actor, filter repository.OrderFilter) ([]model.Order, error)
	GetOrder(actor Actor, code string) (*OrderDetail, error)
	GetInvoice(actor Actor, code string) (*Invoice, error)
	GetPaymentHistory(actor Actor) (*PaymentHistory, error)
	GetGatewayLogs(code string) ([]model.GatewayLog, error)
	ForcePaymentStatus(ctx context.Context, code string, req *ForceStatusRequest) (*Outcome, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	logRepo     repository.GatewayLogRepository
	reconciler  *Reconciler
	loc         *time.Location
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	logRepo repository.GatewayLogRepository,
	reconciler *Reconciler,
	loc *time.Location,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		logRepo:     logRepo,
		reconciler:  reconciler,
		loc:         loc,
	}
}

// ListOrders restricts customers to their own orders.
func (s *orderService) ListOrders(actor Actor, filter repository.OrderFilter) ([]model.Order, error) {
	if !actor.Admin {
		filter.UserID = actor.UserID
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, filter.PaymentStatus)
	}
	return s.orderRepo.FindAll(filter)
}

func (s *orderService) GetOrder(actor Actor, code string) (*OrderDetail, error) {
	order, err := s.orderRepo.FindByCode(code)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, code)
		}
		return nil, err
	}
	if !actor.CanAccess(order) {
		return nil, ErrForbidden
	}

	detail := &OrderDetail{Order: order}
	payment, err := s.paymentRepo.FindSuccess(order.ID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	detail.Payment = payment
	return detail, nil
}

func (s *orderService) GetInvoice(actor Actor, code string) (*Invoice, error) {
	detail, err := s.GetOrder(actor, code)
	if err != nil {
		return nil, err
	}
	if detail.Order.PaymentStatus != model.PaymentPaid {
		return nil, ErrNotPaid
	}

	issued := time.Now().In(s.loc)
	if detail.Order.PaidAt != nil {
		issued = detail.Order.PaidAt.In(s.loc)
	}
	amount := detail.Order.TotalPrice
	return &Invoice{
		Order:       detail.Order,
		Payment:     detail.Payment,
		Amount:      amount,
		AmountText:  rupiah.Format(amount),
		AmountWords: rupiah.Terbilang(amount) + " rupiah",
		IssuedAt:    issued,
	}, nil
}

func (s *orderService) GetPaymentHistory(actor Actor) (*PaymentHistory, error) {
	orders, total, err := s.orderRepo.GetPaymentHistory(actor.UserID)
	if err != nil {
		return nil, err
	}
	return &PaymentHistory{
		Orders:          orders,
		TotalSpent:      total,
		TotalSpentText:  rupiah.Format(total),
		CompletedOrders: len(orders),
	}, nil
}

func (s *orderService) GetGatewayLogs(code string) ([]model.GatewayLog, error) {
	return s.logRepo.FindByOrderCode(code)
}

func (s *orderService) ForcePaymentStatus(ctx context.Context, code string, req *ForceStatusRequest) (*Outcome, error) {
	target := model.PaymentStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !target.Valid() {
		return nil, fmt.Errorf("%w: status must be one of paid, pending, failed", ErrValidation)
	}

	var paidAt *time.Time
	if req.PaymentDate != "" {
		t, err := time.ParseInLocation(adminDateLayout, req.PaymentDate, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: payment_date must look like %s", ErrValidation, adminDateLayout)
		}
		paidAt = &t
	}
	return s.reconciler.ForceStatus(ctx, code, target, paidAt)
}
