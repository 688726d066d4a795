package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"go-rental-ws/internal/config"
	"go-rental-ws/internal/gateway"
	"go-rental-ws/internal/lock"
	"go-rental-ws/internal/model"
	"go-rental-ws/internal/repository"
)

// PaymentSession is what the client-side payment pop-up needs.
type PaymentSession struct {
	OrderCode   string `json:"order_code"`
	Amount      int64  `json:"amount"`
	ClientKey   string `json:"client_key"`
	Token       string `json:"token"`
	Environment string `json:"environment"`
}

type PaymentService interface {
	IssueToken(ctx context.Context, actor Actor, code string) (*PaymentSession, error)
}

type paymentService struct {
	orderRepo repository.OrderRepository
	gateway   PaymentGateway
	locker    lock.OrderLocker
	cfg       config.GatewayConfig
	log       *logrus.Logger
}

func NewPaymentService(orderRepo repository.OrderRepository, gw PaymentGateway, locker lock.OrderLocker, cfg config.GatewayConfig, log *logrus.Logger) PaymentService {
	return &paymentService{
		orderRepo: orderRepo,
		gateway:   gw,
		locker:    locker,
		cfg:       cfg,
		log:       log,
	}
}

func (s *paymentService) session(o *model.Order, token string) *PaymentSession {
	return &PaymentSession{
		OrderCode:   o.Code,
		Amount:      o.TotalPrice,
		ClientKey:   s.cfg.ClientKey,
		Token:       token,
		Environment: s.cfg.Environment(),
	}
}

// IssueToken returns the cached session token or asks the gateway for one.
// A gateway failure leaves the order untouched so the customer can retry.
func (s *paymentService) IssueToken(ctx context.Context, actor Actor, code string) (*PaymentSession, error) {
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
	if order.PaymentStatus.Terminal() {
		return nil, fmt.Errorf("%w: payment status is %s", ErrNotPayable, order.PaymentStatus)
	}
	if order.GatewayToken != "" {
		return s.session(order, order.GatewayToken), nil
	}

	unlock, err := s.locker.Lock(ctx, code)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Another request may have issued the token while we waited.
	order, err = s.orderRepo.FindByCode(code)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus.Terminal() {
		return nil, fmt.Errorf("%w: payment status is %s", ErrNotPayable, order.PaymentStatus)
	}
	if order.GatewayToken != "" {
		return s.session(order, order.GatewayToken), nil
	}

	token, err := s.gateway.CreateSnapToken(ctx, snapRequest(order))
	if err != nil {
		s.log.WithFields(logrus.Fields{"order_code": code, "error": err}).Error("gateway token request failed")
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrGateway)
	}

	saved, err := s.orderRepo.SaveToken(order.ID, token)
	if err != nil {
		return nil, err
	}
	if !saved {
		stored, err := s.orderRepo.FindByCode(code)
		if err != nil {
			return nil, err
		}
		return s.session(stored, stored.GatewayToken), nil
	}

	s.log.WithField("order_code", code).Info("payment token issued")
	return s.session(order, token), nil
}

func snapRequest(o *model.Order) gateway.SnapRequest {
	req := gateway.SnapRequest{
		OrderCode:   o.Code,
		GrossAmount: o.TotalPrice,
	}
	if o.User != nil {
		first, last := o.User.SplitName()
		req.Customer = gateway.Customer{
			FirstName: first,
			LastName:  last,
			Email:     o.User.Email,
			Phone:     o.User.Phone(),
		}
	}
	// The booked rate, not today's, so the item line always sums to the gross amount.
	if o.Vehicle != nil && o.DurationDays > 0 {
		req.Items = []gateway.Item{{
			ID:       o.Vehicle.ID.String(),
			Price:    o.TotalPrice / int64(o.DurationDays),
			Quantity: o.DurationDays,
			Name:     o.Vehicle.DisplayName(),
		}}
	}
	return req
}
