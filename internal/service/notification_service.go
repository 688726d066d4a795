package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"go-rental-ws/internal/gateway"
	"go-rental-ws/internal/model"
	"go-rental-ws/internal/repository"
)

// Acknowledgement is the webhook reply. The gateway gets 200 with this body
// for every well-formed delivery, including ones we could not apply.
type Acknowledgement struct {
	Status            string `json:"status"`
	Message           string `json:"message"`
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
}

// SyncResult is returned by the manual sync and check-payment paths.
type SyncResult struct {
	OrderCode     string              `json:"order_id"`
	GatewayStatus string              `json:"gateway_status,omitempty"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	OrderStatus   model.OrderStatus   `json:"order_status"`
	Changed       bool                `json:"changed"`
	Message       string              `json:"message"`
}

type NotificationService interface {
	HandleWebhook(ctx context.Context, body []byte) (*Acknowledgement, error)
	SyncOrder(ctx context.Context, actor Actor, code string) (*SyncResult, error)
	CheckPayment(ctx context.Context, actor Actor, code string) (*SyncResult, error)
	SyncStale(ctx context.Context, olderThan time.Time, limit int, perOrder time.Duration) (synced, failed int)
}

type notificationService struct {
	reconciler      *Reconciler
	orderRepo       repository.OrderRepository
	logRepo         repository.GatewayLogRepository
	gateway         PaymentGateway
	serverKey       string
	verifySignature bool
	log             *logrus.Logger
}

func NewNotificationService(
	reconciler *Reconciler,
	orderRepo repository.OrderRepository,
	logRepo repository.GatewayLogRepository,
	gw PaymentGateway,
	serverKey string,
	verifySignature bool,
	log *logrus.Logger,
) NotificationService {
	return &notificationService{
		reconciler:      reconciler,
		orderRepo:       orderRepo,
		logRepo:         logRepo,
		gateway:         gw,
		serverKey:       serverKey,
		verifySignature: verifySignature,
		log:             log,
	}
}

// record appends the raw payload to the audit log. A failed append is logged
// but does not stop reconciliation.
func (s *notificationService) record(n *model.GatewayNotification, source string) {
	if err := s.logRepo.Append(model.NewGatewayLog(n, source)); err != nil {
		s.log.WithFields(logrus.Fields{"order_code": n.OrderCode, "source": source, "error": err}).Error("gateway log append failed")
	}
}

// HandleWebhook returns ErrValidation for undecodable payloads or a missing
// order_id and ErrInvalidSignature for a bad signature; nothing is written in
// either case and the returned ack carries whatever identifiers were decoded.
// Everything else is acknowledged.
func (s *notificationService) HandleWebhook(ctx context.Context, body []byte) (*Acknowledgement, error) {
	rejected := &Acknowledgement{Status: "error"}
	n, err := model.ParseNotification(body)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrValidation, err)
		rejected.Message = err.Error()
		return rejected, err
	}
	rejected.OrderID = n.OrderCode
	rejected.TransactionStatus = n.TransactionStatus
	if n.OrderCode == "" {
		err = fmt.Errorf("%w: order_id is required", ErrValidation)
		rejected.Message = err.Error()
		return rejected, err
	}
	if s.verifySignature && !gateway.VerifySignature(n, s.serverKey) {
		s.log.WithField("order_code", n.OrderCode).Warn("webhook signature mismatch")
		rejected.Message = ErrInvalidSignature.Error()
		return rejected, ErrInvalidSignature
	}

	if n.AmountErr != nil {
		s.log.WithFields(logrus.Fields{"order_code": n.OrderCode, "gross_amount": n.GrossAmountRaw, "error": n.AmountErr}).Warn("notification amount not understood")
	}
	s.log.WithFields(logrus.Fields{"order_code": n.OrderCode, "status": n.TransactionStatus}).Info("payment notification received")
	s.record(n, model.SourceWebhook)

	ack := &Acknowledgement{
		Status:            "ok",
		OrderID:           n.OrderCode,
		TransactionStatus: n.TransactionStatus,
	}

	outcome, err := s.reconciler.Apply(ctx, n, model.SourceWebhook)
	switch {
	case err != nil:
		ack.Status = "error"
		ack.Message = err.Error()
	case outcome.Ignored:
		ack.Message = fmt.Sprintf("order already %s, notification ignored", outcome.PaymentStatus)
	default:
		ack.Message = fmt.Sprintf("payment status is %s", outcome.PaymentStatus)
	}
	return ack, nil
}

func (s *notificationService) findAccessible(actor Actor, code string) (*model.Order, error) {
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
	return order, nil
}

// SyncOrder polls the gateway and feeds the answer through the reconciler.
func (s *notificationService) SyncOrder(ctx context.Context, actor Actor, code string) (*SyncResult, error) {
	if _, err := s.findAccessible(actor, code); err != nil {
		return nil, err
	}
	return s.poll(ctx, code)
}

func (s *notificationService) poll(ctx context.Context, code string) (*SyncResult, error) {
	n, err := s.gateway.TransactionStatus(ctx, code)
	if err != nil {
		var gerr *gateway.Error
		if errors.As(err, &gerr) {
			s.log.WithFields(logrus.Fields{"order_code": code, "kind": gerr.Kind, "error": err}).Warn("gateway status query failed")
		}
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	// The order code is the canonical key, whatever the payload echoes back.
	n.OrderCode = code
	if n.AmountErr != nil {
		s.log.WithFields(logrus.Fields{"order_code": code, "gross_amount": n.GrossAmountRaw, "error": n.AmountErr}).Warn("status response amount not understood")
	}
	s.record(n, model.SourcePoll)

	outcome, err := s.reconciler.Apply(ctx, n, model.SourcePoll)
	if err != nil {
		return nil, err
	}

	msg := "payment status synced"
	if outcome.Ignored {
		msg = fmt.Sprintf("order already %s, gateway status %s ignored", outcome.PaymentStatus, n.TransactionStatus)
	}
	return &SyncResult{
		OrderCode:     code,
		GatewayStatus: n.TransactionStatus,
		PaymentStatus: outcome.PaymentStatus,
		OrderStatus:   outcome.OrderStatus,
		Changed:       outcome.Changed,
		Message:       msg,
	}, nil
}

// CheckPayment answers immediately for paid orders and polls otherwise.
func (s *notificationService) CheckPayment(ctx context.Context, actor Actor, code string) (*SyncResult, error) {
	order, err := s.findAccessible(actor, code)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == model.PaymentPaid {
		return &SyncResult{
			OrderCode:     order.Code,
			GatewayStatus: order.GatewayTransactionStatus,
			PaymentStatus: order.PaymentStatus,
			OrderStatus:   order.Status,
			Message:       "payment already successful",
		}, nil
	}
	return s.poll(ctx, code)
}

// SyncStale polls pending orders the webhook may have missed. Each order is
// an independent unit of work with its own timeout.
func (s *notificationService) SyncStale(ctx context.Context, olderThan time.Time, limit int, perOrder time.Duration) (synced, failed int) {
	orders, err := s.orderRepo.FindStalePending(olderThan, limit)
	if err != nil {
		s.log.WithError(err).Error("stale order query failed")
		return 0, 0
	}

	for _, o := range orders {
		if ctx.Err() != nil {
			break
		}
		octx, cancel := context.WithTimeout(ctx, perOrder)
		res, err := s.poll(octx, o.Code)
		cancel()

		if err != nil {
			failed++
			s.log.WithFields(logrus.Fields{"order_code": o.Code, "error": err}).Warn("stale order sync failed")
			continue
		}
		synced++
		if res.Changed {
			s.log.WithFields(logrus.Fields{"order_code": o.Code, "payment_status": res.PaymentStatus}).Info("stale order reconciled")
		}
	}
	return synced, failed
}
