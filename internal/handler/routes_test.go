package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"go-rental-ws/internal/config"
	"go-rental-ws/internal/lock"
	"go-rental-ws/internal/middleware"
	"go-rental-ws/internal/model"
	"go-rental-ws/internal/repository"
	"go-rental-ws/internal/service"
	"go-rental-ws/internal/testutil"
	"go-rental-ws/pkg/jwt"
)

type testApp struct {
	app  *fiber.App
	db   *gorm.DB
	gw   *testutil.FakeGateway
	auth service.AuthService
}

func newTestApp(t *testing.T, verifySignature bool) *testApp {
	t.Helper()

	db := testutil.NewDB(t)
	log := testutil.Logger(t)
	loc := testutil.Location()
	cfg := config.Default()
	cfg.Gateway.ServerKey = "SB-Mid-server-test"
	cfg.Gateway.ClientKey = "SB-Mid-client-test"
	cfg.Gateway.VerifySignature = verifySignature

	orderRepo := repository.NewOrderRepo(db)
	vehicleRepo := repository.NewVehicleRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	logRepo := repository.NewGatewayLogRepo(db)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	gw := testutil.NewFakeGateway()
	locker := lock.NewLocal()
	publisher := service.NewMultiPublisher(log)

	reconciler := service.NewReconciler(db, orderRepo, vehicleRepo, paymentRepo, locker, publisher, loc, log)
	authService := service.NewAuthService(userRepo, roleRepo, jwtManager)

	app := fiber.New()
	RegisterRoutes(app, Handlers{
		Auth:    NewAuthHandler(authService),
		Vehicle: NewVehicleHandler(service.NewVehicleService(vehicleRepo)),
		Order: NewOrderHandler(
			service.NewBookingService(db, orderRepo, vehicleRepo, publisher, cfg.Booking.MaxRentalDays, loc, log),
			service.NewOrderService(orderRepo, paymentRepo, logRepo, reconciler, loc),
		),
		Payment: NewPaymentHandler(
			service.NewPaymentService(orderRepo, gw, locker, cfg.Gateway, log),
			service.NewNotificationService(reconciler, orderRepo, logRepo, gw, cfg.Gateway.ServerKey, cfg.Gateway.VerifySignature, log),
		),
		Dashboard: NewDashboardHandler(service.NewDashboardService(orderRepo, loc)),
		Role:      NewRoleHandler(roleRepo, repository.NewPrivilegeRepo(db)),
		Health:    NewHealthHandler(db, cfg.Gateway.Environment()),
	}, middleware.RequireAuth(userRepo, jwtManager))

	return &testApp{app: app, db: db, gw: gw, auth: authService}
}

func (a *testApp) token(t *testing.T, user *model.User) string {
	t.Helper()
	resp, err := a.auth.Login(user.Email, "rahasia")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return resp.Token
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func countRows(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestWebhookMissingOrderID(t *testing.T) {
	a := newTestApp(t, false)

	status, body := a.do(t, http.MethodPost, "/api/v1/payments/notification", "", `{"transaction_status":"settlement"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%v)", status, body)
	}
	if body["status"] != "error" || body["transaction_status"] != "settlement" || body["message"] == "" {
		t.Fatalf("expected rejection ack, got %v", body)
	}
	if n := countRows(t, a.db, &model.GatewayLog{}); n != 0 {
		t.Fatalf("expected no writes, found %d gateway logs", n)
	}
}

func TestWebhookSettlement(t *testing.T) {
	a := newTestApp(t, false)
	user := testutil.SeedUser(t, a.db, model.RoleCustomer)
	order := testutil.SeedOrder(t, a.db, testutil.SeedVehicle(t, a.db, 100000), user, 3)

	status, body := a.do(t, http.MethodPost, "/api/v1/payments/notification", "", map[string]interface{}{
		"order_id":           order.Code,
		"transaction_status": "settlement",
		"gross_amount":       "300000.00",
		"status_code":        "200",
	})
	if status != fiber.StatusOK || body["status"] != "ok" || body["order_id"] != order.Code {
		t.Fatalf("unexpected response %d %v", status, body)
	}

	var stored model.Order
	a.db.First(&stored, "code = ?", order.Code)
	if stored.PaymentStatus != model.PaymentPaid {
		t.Fatalf("expected paid, got %s", stored.PaymentStatus)
	}
}

func TestWebhookMalformedAmountStillSettles(t *testing.T) {
	a := newTestApp(t, false)
	user := testutil.SeedUser(t, a.db, model.RoleCustomer)
	order := testutil.SeedOrder(t, a.db, testutil.SeedVehicle(t, a.db, 100000), user, 3)

	status, body := a.do(t, http.MethodPost, "/api/v1/payments/notification", "", map[string]interface{}{
		"order_id":           order.Code,
		"transaction_status": "settlement",
		"gross_amount":       "300.000,00",
		"status_code":        "200",
	})
	if status != fiber.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected response %d %v", status, body)
	}

	var stored model.Order
	a.db.First(&stored, "code = ?", order.Code)
	if stored.PaymentStatus != model.PaymentPaid {
		t.Fatalf("expected paid, got %s", stored.PaymentStatus)
	}
	if n := countRows(t, a.db, &model.GatewayLog{}); n != 1 {
		t.Fatalf("expected one gateway log, got %d", n)
	}
}

func TestWebhookUnknownOrderStillAcknowledged(t *testing.T) {
	a := newTestApp(t, false)

	status, body := a.do(t, http.MethodPost, "/api/v1/payments/notification", "", map[string]interface{}{
		"order_id":           "RENT-20250110-FFFFFF",
		"transaction_status": "settlement",
	})
	if status != fiber.StatusOK || body["status"] != "error" {
		t.Fatalf("unexpected response %d %v", status, body)
	}
}

func TestWebhookBadSignature(t *testing.T) {
	a := newTestApp(t, true)

	status, body := a.do(t, http.MethodPost, "/api/v1/payments/notification", "", map[string]interface{}{
		"order_id":           "RENT-20250110-FFFFFF",
		"transaction_status": "settlement",
		"signature_key":      "forged",
	})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if body["status"] != "error" || body["order_id"] != "RENT-20250110-FFFFFF" || body["transaction_status"] != "settlement" {
		t.Fatalf("expected rejection ack, got %v", body)
	}
	if n := countRows(t, a.db, &model.GatewayLog{}); n != 0 {
		t.Fatalf("expected no writes, found %d gateway logs", n)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := newTestApp(t, false)

	if status, _ := a.do(t, http.MethodGet, "/api/v1/orders", "", nil); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if status, _ := a.do(t, http.MethodGet, "/api/v1/orders", "not-a-jwt", nil); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", status)
	}
}

func TestBookingFlow(t *testing.T) {
	a := newTestApp(t, false)
	customer := testutil.SeedUser(t, a.db, model.RoleCustomer)
	admin := testutil.SeedUser(t, a.db, model.RoleAdmin)
	vehicle := testutil.SeedVehicle(t, a.db, 100000)
	customerToken := a.token(t, customer)
	adminToken := a.token(t, admin)

	status, body := a.do(t, http.MethodPost, "/api/v1/orders", customerToken, map[string]interface{}{
		"vehicle_id": vehicle.ID.String(),
		"start_date": "2025-01-10",
		"end_date":   "2025-01-12",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", status, body)
	}
	data := body["data"].(map[string]interface{})
	code := data["code"].(string)
	if data["total_price"].(float64) != 300000 {
		t.Fatalf("unexpected total %v", data["total_price"])
	}

	if status, _ := a.do(t, http.MethodPost, "/api/v1/orders", customerToken, map[string]interface{}{
		"vehicle_id": vehicle.ID.String(), "start_date": "2025-01-10", "end_date": "2025-01-12",
	}); status != fiber.StatusConflict {
		t.Fatalf("expected 409 for a rented vehicle, got %d", status)
	}

	if status, _ := a.do(t, http.MethodGet, "/api/v1/orders/"+code+"/invoice", customerToken, nil); status != fiber.StatusConflict {
		t.Fatalf("expected 409 for an unpaid invoice, got %d", status)
	}

	status, body = a.do(t, http.MethodPost, "/api/v1/orders/"+code+"/payment", customerToken, nil)
	if status != fiber.StatusOK || body["token"] != "snap-token-123" || body["environment"] != "sandbox" {
		t.Fatalf("unexpected payment session %d %v", status, body)
	}

	if status, _ := a.do(t, http.MethodPut, "/api/v1/orders/"+code+"/payment-status", customerToken, map[string]string{"status": "paid"}); status != fiber.StatusForbidden {
		t.Fatalf("customer must not force status, got %d", status)
	}
	status, body = a.do(t, http.MethodPut, "/api/v1/orders/"+code+"/payment-status", adminToken, map[string]string{
		"status": "paid", "payment_date": "2025-01-10 12:00:00",
	})
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", status, body)
	}

	status, body = a.do(t, http.MethodGet, "/api/v1/orders/"+code+"/invoice", customerToken, nil)
	if status != fiber.StatusOK || body["amount_words"] != "tiga ratus ribu rupiah" {
		t.Fatalf("unexpected invoice %d %v", status, body)
	}

	status, body = a.do(t, http.MethodGet, "/api/v1/orders/"+code+"/check-payment", customerToken, nil)
	if status != fiber.StatusOK || body["payment_status"] != "paid" {
		t.Fatalf("unexpected check-payment %d %v", status, body)
	}
	if a.gw.StatusCalls != 0 {
		t.Fatalf("check-payment polled the gateway for a paid order")
	}
}

func TestOrderAccessIsScoped(t *testing.T) {
	a := newTestApp(t, false)
	owner := testutil.SeedUser(t, a.db, model.RoleCustomer)
	other := testutil.SeedUser(t, a.db, model.RoleCustomer)
	order := testutil.SeedOrder(t, a.db, testutil.SeedVehicle(t, a.db, 100000), owner, 2)

	if status, _ := a.do(t, http.MethodGet, "/api/v1/orders/"+order.Code, a.token(t, other), nil); status != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}
	if status, _ := a.do(t, http.MethodGet, "/api/v1/orders/RENT-00000000-000000", a.token(t, owner), nil); status != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if status, _ := a.do(t, http.MethodPost, "/api/v1/orders/"+order.Code+"/sync", a.token(t, owner), nil); status != fiber.StatusBadGateway {
		t.Fatalf("expected 502 when the gateway has no transaction, got %d", status)
	}
}

func TestHealth(t *testing.T) {
	a := newTestApp(t, false)

	status, body := a.do(t, http.MethodGet, "/health", "", nil)
	if status != fiber.StatusOK || body["database"] != "connected" || body["gateway"] != "sandbox" {
		t.Fatalf("unexpected health %d %v", status, body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrValidation, 400},
		{service.ErrInvalidSignature, 401},
		{service.ErrForbidden, 403},
		{service.ErrNotFound, 404},
		{service.ErrUnavailable, 409},
		{service.ErrGateway, 502},
		{io.ErrUnexpectedEOF, 500},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
