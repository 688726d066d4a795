package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go-rental-ws/internal/lock"
	"go-rental-ws/internal/model"
	"go-rental-ws/internal/repository"
)

// Outcome describes what one reconciliation did to an order.
type Outcome struct {
	OrderCode       string              `json:"order_code"`
	GatewayStatus   string              `json:"gateway_status,omitempty"`
	PaymentStatus   model.PaymentStatus `json:"payment_status"`
	OrderStatus     model.OrderStatus   `json:"order_status"`
	Changed         bool                `json:"changed"`
	Ignored         bool                `json:"ignored"`
	PaymentRecorded bool                `json:"payment_recorded"`
}

// Reconciler is the single place where gateway statuses and admin overrides
// change an order. Every call holds the order lock and a row lock on the
// order for the whole transaction.
type Reconciler struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	vehicleRepo repository.VehicleRepository
	paymentRepo repository.PaymentRepository
	locker      lock.OrderLocker
	publisher   EventPublisher
	loc         *time.Location
	log         *logrus.Logger
	now         func() time.Time
}

func NewReconciler(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	vehicleRepo repository.VehicleRepository,
	paymentRepo repository.PaymentRepository,
	locker lock.OrderLocker,
	publisher EventPublisher,
	loc *time.Location,
	log *logrus.Logger,
) *Reconciler {
	return &Reconciler{
		db:          db,
		orderRepo:   orderRepo,
		vehicleRepo: vehicleRepo,
		paymentRepo: paymentRepo,
		locker:      locker,
		publisher:   publisher,
		loc:         loc,
		log:         log,
		now:         time.Now,
	}
}

// Apply moves an order according to a gateway status. Ordinary notifications
// only move pending orders; paid and failed orders stay where they are.
func (r *Reconciler) Apply(ctx context.Context, n *model.GatewayNotification, source string) (*Outcome, error) {
	fields := logrus.Fields{"order_code": n.OrderCode, "status": n.TransactionStatus, "source": source}

	unlock, err := r.locker.Lock(ctx, n.OrderCode)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		outcome *Outcome
		order   *model.Order
	)
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = r.orderRepo.FindByCodeForUpdate(tx, n.OrderCode)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("%w: order %s", ErrNotFound, n.OrderCode)
			}
			return err
		}

		target, ok := n.Status.PaymentStatus()
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownStatus, n.TransactionStatus)
		}

		outcome = &Outcome{
			OrderCode:     order.Code,
			GatewayStatus: n.TransactionStatus,
			PaymentStatus: order.PaymentStatus,
			OrderStatus:   order.Status,
		}

		switch order.PaymentStatus {
		case model.PaymentPaid:
			if target != model.PaymentPaid {
				outcome.Ignored = true
				r.log.WithFields(fields).Warn("status after settlement ignored; use an admin override to change a paid order")
			}
			return nil

		case model.PaymentFailed:
			if target != model.PaymentFailed {
				outcome.Ignored = true
				r.log.WithFields(fields).Warn("status for a failed order ignored")
			}
			return nil
		}

		switch target {
		case model.PaymentPaid:
			return r.settle(tx, order, n, outcome)
		case model.PaymentFailed:
			return r.fail(tx, order, n, outcome)
		default:
			return r.orderRepo.Update(tx, order.ID, r.gatewayFields(n))
		}
	})
	if err != nil {
		entry := r.log.WithFields(fields).WithError(err)
		if isUnknownStatus(err) {
			entry.Error("reconciliation rejected unknown status")
		} else {
			entry.Warn("reconciliation failed")
		}
		return nil, err
	}

	if outcome.Changed {
		r.log.WithFields(fields).WithField("payment_status", outcome.PaymentStatus).Info("order reconciled")
		publish(r.log, r.publisher, model.NewOrderEvent(model.EventTypeFor(outcome.PaymentStatus), order, source))
	}
	return outcome, nil
}

func (r *Reconciler) settle(tx *gorm.DB, order *model.Order, n *model.GatewayNotification, outcome *Outcome) error {
	paidAt, ok := model.ParseGatewayTime(n.SettlementTime, r.loc)
	if !ok {
		paidAt = r.now()
	}

	fields := r.gatewayFields(n)
	fields["payment_status"] = model.PaymentPaid
	fields["status"] = model.OrderConfirmed
	fields["paid_at"] = paidAt
	if _, ok := fields["transaction_time"]; !ok {
		fields["transaction_time"] = paidAt
	}
	if n.Status == model.GatewaySettlement {
		fields["settlement_time"] = paidAt
	}
	if err := r.orderRepo.Update(tx, order.ID, fields); err != nil {
		return err
	}
	if err := r.vehicleRepo.SetStatus(tx, order.VehicleID, model.VehicleRented); err != nil {
		return err
	}

	order.PaymentStatus = model.PaymentPaid
	order.Status = model.OrderConfirmed
	order.PaidAt = &paidAt
	applyGatewayFields(order, n)

	recorded, err := r.paymentRepo.InsertSuccess(tx, model.NewSuccessPayment(order, model.PaymentMethodGateway, paidAt))
	if err != nil {
		return err
	}

	outcome.PaymentStatus = order.PaymentStatus
	outcome.OrderStatus = order.Status
	outcome.Changed = true
	outcome.PaymentRecorded = recorded
	return nil
}

func (r *Reconciler) fail(tx *gorm.DB, order *model.Order, n *model.GatewayNotification, outcome *Outcome) error {
	fields := r.gatewayFields(n)
	fields["payment_status"] = model.PaymentFailed
	fields["status"] = model.OrderCancelled
	if err := r.orderRepo.Update(tx, order.ID, fields); err != nil {
		return err
	}
	if err := r.vehicleRepo.SetStatus(tx, order.VehicleID, model.VehicleAvailable); err != nil {
		return err
	}

	order.PaymentStatus = model.PaymentFailed
	order.Status = model.OrderCancelled
	outcome.PaymentStatus = order.PaymentStatus
	outcome.OrderStatus = order.Status
	outcome.Changed = true
	return nil
}

// gatewayFields copies the reference fields a notification carries. Empty
// values never overwrite what an earlier notification stored.
func (r *Reconciler) gatewayFields(n *model.GatewayNotification) map[string]interface{} {
	fields := map[string]interface{}{
		"gateway_transaction_status": n.TransactionStatus,
	}
	set := func(column, value string) {
		if value != "" {
			fields[column] = value
		}
	}
	set("gateway_transaction_id", n.TransactionID)
	set("payment_type", n.PaymentType)
	set("bank", n.Bank)
	set("va_number", n.VANumber)
	if t, ok := model.ParseGatewayTime(n.TransactionTime, r.loc); ok {
		fields["transaction_time"] = t
	}
	return fields
}

func applyGatewayFields(o *model.Order, n *model.GatewayNotification) {
	o.GatewayTransactionStatus = n.TransactionStatus
	if n.TransactionID != "" {
		o.GatewayTransactionID = n.TransactionID
	}
	if n.PaymentType != "" {
		o.PaymentType = n.PaymentType
	}
	if n.Bank != "" {
		o.Bank = n.Bank
	}
	if n.VANumber != "" {
		o.VANumber = n.VANumber
	}
}

// ForceStatus is the admin override. It is the only path that may move an
// order out of paid or failed. The order status is derived from the payment
// status so the pair stays consistent.
func (r *Reconciler) ForceStatus(ctx context.Context, code string, target model.PaymentStatus, paidAt *time.Time) (*Outcome, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: status must be one of paid, pending, failed", ErrValidation)
	}
	fields := logrus.Fields{"order_code": code, "status": target, "source": model.SourceAdmin}

	unlock, err := r.locker.Lock(ctx, code)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		outcome *Outcome
		order   *model.Order
	)
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = r.orderRepo.FindByCodeForUpdate(tx, code)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("%w: order %s", ErrNotFound, code)
			}
			return err
		}

		outcome = &Outcome{OrderCode: order.Code, PaymentStatus: order.PaymentStatus, OrderStatus: order.Status}
		previous := order.PaymentStatus

		// A released vehicle can only be taken back if nobody else booked it meanwhile.
		if previous == model.PaymentFailed && target != model.PaymentFailed {
			held, err := r.orderRepo.VehicleHeldByOther(tx, order.VehicleID, order.ID)
			if err != nil {
				return err
			}
			if held {
				return fmt.Errorf("%w: vehicle was booked by another order", ErrUnavailable)
			}
		}

		updates := map[string]interface{}{
			"payment_status": target,
			"status":         model.OrderStatusFor(target),
			"paid_at":        nil,
		}

		var when time.Time
		if target == model.PaymentPaid {
			when = r.now()
			if paidAt != nil {
				when = *paidAt
			}
			updates["paid_at"] = when
		}
		if err := r.orderRepo.Update(tx, order.ID, updates); err != nil {
			return err
		}

		switch {
		case previous == model.PaymentFailed && target == model.PaymentFailed:
			// The vehicle was released earlier and may belong to a newer order.
		case previous == model.PaymentFailed:
			reserved, err := r.vehicleRepo.Reserve(tx, order.VehicleID)
			if err != nil {
				return err
			}
			if !reserved {
				return fmt.Errorf("%w: vehicle is no longer available", ErrUnavailable)
			}
		default:
			vehicleStatus := model.VehicleRented
			if target == model.PaymentFailed {
				vehicleStatus = model.VehicleAvailable
			}
			if err := r.vehicleRepo.SetStatus(tx, order.VehicleID, vehicleStatus); err != nil {
				return err
			}
		}

		order.PaymentStatus = target
		order.Status = model.OrderStatusFor(target)
		if target == model.PaymentPaid {
			order.PaidAt = &when
			recorded, err := r.paymentRepo.InsertSuccess(tx, model.NewSuccessPayment(order, model.PaymentMethodManualAdmin, when))
			if err != nil {
				return err
			}
			outcome.PaymentRecorded = recorded
		}

		outcome.PaymentStatus = order.PaymentStatus
		outcome.OrderStatus = order.Status
		outcome.Changed = previous != target
		return nil
	})
	if err != nil {
		r.log.WithFields(fields).WithError(err).Warn("payment status override failed")
		return nil, err
	}

	r.log.WithFields(fields).Info("payment status overridden by admin")
	if outcome.Changed {
		publish(r.log, r.publisher, model.NewOrderEvent(model.EventTypeFor(outcome.PaymentStatus), order, model.SourceAdmin))
	}
	return outcome, nil
}
