package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"go-rental-ws/internal/config"
	"go-rental-ws/internal/lock"
	"go-rental-ws/internal/model"
	"go-rental-ws/internal/repository"
	"go-rental-ws/internal/testutil"
	"go-rental-ws/pkg/jwt"
)

var fixedNow = time.Date(2025, 1, 10, 9, 0, 0, 0, testutil.Location())

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.OrderEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event model.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	db          *gorm.DB
	gw          *testutil.FakeGateway
	publisher   *recordingPublisher
	orderRepo   repository.OrderRepository
	vehicleRepo repository.VehicleRepository
	paymentRepo repository.PaymentRepository
	logRepo     repository.GatewayLogRepository

	reconciler    *Reconciler
	bookings      BookingService
	payments      PaymentService
	notifications NotificationService
	orders        OrderService
	auth          AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithConfig(t, config.Default())
}

func newHarnessWithConfig(t *testing.T, cfg *config.Config) *harness {
	t.Helper()

	db := testutil.NewDB(t)
	log := testutil.Logger(t)
	loc := testutil.Location()
	cfg.Gateway.ClientKey = "SB-Mid-client-test"
	cfg.Gateway.ServerKey = "SB-Mid-server-test"

	h := &harness{
		db:          db,
		gw:          testutil.NewFakeGateway(),
		publisher:   &recordingPublisher{},
		orderRepo:   repository.NewOrderRepo(db),
		vehicleRepo: repository.NewVehicleRepo(db),
		paymentRepo: repository.NewPaymentRepo(db),
		logRepo:     repository.NewGatewayLogRepo(db),
	}
	locker := lock.NewLocal()

	h.reconciler = NewReconciler(db, h.orderRepo, h.vehicleRepo, h.paymentRepo, locker, h.publisher, loc, log)
	h.reconciler.now = func() time.Time { return fixedNow }

	h.bookings = NewBookingService(db, h.orderRepo, h.vehicleRepo, h.publisher, cfg.Booking.MaxRentalDays, loc, log)
	h.payments = NewPaymentService(h.orderRepo, h.gw, locker, cfg.Gateway, log)
	h.notifications = NewNotificationService(h.reconciler, h.orderRepo, h.logRepo, h.gw, cfg.Gateway.ServerKey, cfg.Gateway.VerifySignature, log)
	h.orders = NewOrderService(h.orderRepo, h.paymentRepo, h.logRepo, h.reconciler, loc)
	h.auth = NewAuthService(repository.NewUserRepo(db), repository.NewRoleRepo(db), jwt.NewManager("test-secret", time.Hour))
	return h
}

func (h *harness) order(t *testing.T, code string) *model.Order {
	t.Helper()
	var o model.Order
	if err := h.db.Where("code = ?", code).First(&o).Error; err != nil {
		t.Fatalf("load order %s: %v", code, err)
	}
	return &o
}

func (h *harness) vehicleStatus(t *testing.T, o *model.Order) model.VehicleStatus {
	t.Helper()
	var v model.Vehicle
	if err := h.db.First(&v, "id = ?", o.VehicleID).Error; err != nil {
		t.Fatalf("load vehicle: %v", err)
	}
	return v.Status
}

func (h *harness) successCount(t *testing.T, o *model.Order) int64 {
	t.Helper()
	n, err := h.paymentRepo.CountSuccess(o.ID)
	if err != nil {
		t.Fatalf("count payments: %v", err)
	}
	return n
}

func (h *harness) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	if err := h.db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// pendingOrder seeds a customer, a 100000/day vehicle and a 3-day pending order.
func (h *harness) pendingOrder(t *testing.T) (*model.Order, *model.User) {
	t.Helper()
	user := testutil.SeedUser(t, h.db, model.RoleCustomer)
	vehicle := testutil.SeedVehicle(t, h.db, 100000)
	return testutil.SeedOrder(t, h.db, vehicle, user, 3), user
}

func assertConsistent(t *testing.T, o *model.Order) {
	t.Helper()
	if !o.Consistent() {
		t.Fatalf("order %s has inconsistent statuses %s/%s", o.Code, o.PaymentStatus, o.Status)
	}
}
