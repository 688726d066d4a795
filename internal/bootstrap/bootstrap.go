// Package bootstrap wires the database, lockers, publishers and services
// shared by the API server, the poller and the admin CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredislib "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go-rental-ws/internal/config"
	"go-rental-ws/internal/gateway"
	"go-rental-ws/internal/kafka"
	"go-rental-ws/internal/lock"
	"go-rental-ws/internal/model"
	"go-rental-ws/internal/repository"
	"go-rental-ws/internal/service"
	"go-rental-ws/pkg/database"
	"go-rental-ws/pkg/jwt"
)

type Container struct {
	Config *config.Config
	Log    *logrus.Logger
	DB     *gorm.DB
	JWT    *jwt.Manager

	Users       repository.UserRepository
	Roles       repository.RoleRepository
	Privileges  repository.PrivilegeRepository
	Vehicles    repository.VehicleRepository
	Orders      repository.OrderRepository
	Payments    repository.PaymentRepository
	GatewayLogs repository.GatewayLogRepository

	Locker    lock.OrderLocker
	Publisher *service.MultiPublisher

	Reconciler    *service.Reconciler
	AuthSvc       service.AuthService
	VehicleSvc    service.VehicleService
	BookingSvc    service.BookingService
	PaymentSvc    service.PaymentService
	Notifications service.NotificationService
	OrderSvc      service.OrderService
	DashboardSvc  service.DashboardService

	closers []func() error
}

// New connects to the database and builds every service. Extra publishers
// (the websocket hub in the API server) receive order events next to Kafka.
func New(cfg *config.Config, log *logrus.Logger, extra ...service.EventPublisher) (*Container, error) {
	db, err := database.ConnectDB(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewWithDB(cfg, log, db, extra...)
}

// NewWithDB builds the container on an already opened database.
func NewWithDB(cfg *config.Config, log *logrus.Logger, db *gorm.DB, extra ...service.EventPublisher) (*Container, error) {
	c := &Container{
		Config:      cfg,
		Log:         log,
		DB:          db,
		JWT:         jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL),
		Users:       repository.NewUserRepo(db),
		Roles:       repository.NewRoleRepo(db),
		Privileges:  repository.NewPrivilegeRepo(db),
		Vehicles:    repository.NewVehicleRepo(db),
		Orders:      repository.NewOrderRepo(db),
		Payments:    repository.NewPaymentRepo(db),
		GatewayLogs: repository.NewGatewayLogRepo(db),
	}

	locker, err := c.newLocker()
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Locker = locker

	publishers := append([]service.EventPublisher{}, extra...)
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, producer.Close)
		publishers = append(publishers, producer)
	}
	c.Publisher = service.NewMultiPublisher(log, publishers...)

	loc := cfg.Location()
	gw := gateway.NewClient(cfg.Gateway)

	c.Reconciler = service.NewReconciler(db, c.Orders, c.Vehicles, c.Payments, c.Locker, c.Publisher, loc, log)
	c.AuthSvc = service.NewAuthService(c.Users, c.Roles, c.JWT)
	c.VehicleSvc = service.NewVehicleService(c.Vehicles)
	c.BookingSvc = service.NewBookingService(db, c.Orders, c.Vehicles, c.Publisher, cfg.Booking.MaxRentalDays, loc, log)
	c.PaymentSvc = service.NewPaymentService(c.Orders, gw, c.Locker, cfg.Gateway, log)
	c.Notifications = service.NewNotificationService(c.Reconciler, c.Orders, c.GatewayLogs, gw, cfg.Gateway.ServerKey, cfg.Gateway.VerifySignature, log)
	c.OrderSvc = service.NewOrderService(c.Orders, c.Payments, c.GatewayLogs, c.Reconciler, loc)
	c.DashboardSvc = service.NewDashboardService(c.Orders, loc)
	return c, nil
}

func (c *Container) newLocker() (lock.OrderLocker, error) {
	if !c.Config.Redis.Enabled {
		return lock.NewLocal(), nil
	}

	client := goredislib.NewClient(&goredislib.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", c.Config.Redis.Addr, err)
	}
	c.closers = append(c.closers, client.Close)
	c.Log.WithField("addr", c.Config.Redis.Addr).Info("Using Redis order locks")
	return lock.NewRedis(client, c.Config.Redis.LockExpiry, c.Config.Redis.LockTries, c.Log), nil
}

// Migrate creates the schema and seeds default privileges and roles.
func (c *Container) Migrate() error {
	if err := c.DB.AutoMigrate(model.Tables...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := c.Privileges.SeedDefaults(); err != nil {
		return fmt.Errorf("seed privileges: %w", err)
	}
	if err := c.Roles.SeedDefaults(); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	return nil
}

// EnsureAdmin creates the admin account unless the email is already taken.
func (c *Container) EnsureAdmin(email, fullName, password string) (bool, error) {
	_, err := c.AuthSvc.CreateAdmin(email, fullName, password)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, service.ErrEmailTaken):
		return false, nil
	default:
		return false, err
	}
}

// Close releases Kafka and Redis clients and the database pool.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Log.WithError(err).Warn("close failed")
		}
	}
	if sqlDB, err := c.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
