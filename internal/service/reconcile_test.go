package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-rental-ws/internal/model"
	"go-rental-ws/internal/testutil"
)

func TestApplySettlement(t *testing.T) {
	h := newHarness(t)
	o, _ := h.pendingOrder(t)

	out, err := h.reconciler.Apply(context.Background(), testutil.Notification(o.Code, "settlement"), model.SourceWebhook)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !out.Changed || !out.PaymentRecorded || out.PaymentStatus != model.PaymentPaid {
		t.Fatalf("unexpected outcome %+v", out)
	}

	stored := h.order(t, o.Code)
	assertConsistent(t, stored)
	if stored.Status != model.OrderConfirmed {
		t.Fatalf("expected confirmed, got %s", stored.Status)
	}
	want := time.Date(2025, 1, 10, 10, 15, 30, 0, testutil.Location())
	if stored.PaidAt == nil || !stored.PaidAt.Equal(want) {
		t.Fatalf("expected paid_at %v, got %v", want, stored.PaidAt)
	}
	if stored.Bank != "bca" || stored.VANumber != "812785002530231" || stored.GatewayTransactionID != "tx-"+o.Code {
		t.Fatalf("gateway fields not stored: %+v", stored)
	}
	if h.vehicleStatus(t, stored) != model.VehicleRented {
		t.Fatal("expected vehicle rented")
	}
	if n := h.successCount(t, stored); n != 1 {
		t.Fatalf("expected one success payment, got %d", n)
	}

	p, err := h.paymentRepo.FindSuccess(stored.ID)
	if err != nil {
		t.Fatalf("find payment: %v", err)
	}
	if p.Amount != 300000 || p.Method != model.PaymentMethodGateway {
		t.Fatalf("unexpected payment %+v", p)
	}
	if got := h.publisher.types(); len(got) != 1 || got[0] != model.EventOrderPaid {
		t.Fatalf("expected one order.paid event, got %v", got)
	}
}

func TestApplySettlementIsIdempotent(t *testing.T) {
	h := newHarness(t)
	o, _ := h.pendingOrder(t)
	ctx := context.Background()

	if _, err := h.reconciler.Apply(ctx, testutil.Notification(o.Code, "settlement"), model.SourceWebhook); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	out, err := h.reconciler.Apply(ctx, testutil.Notification(o.Code, "settlement"), model.SourcePoll)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if out.Changed || out.Ignored {
		t.Fatalf("duplicate settlement should be a silent no-op, got %+v", out)
	}
	if n := h.successCount(t, o); n != 1 {
		t.Fatalf("expected one success payment, got %d", n)
	}
	if len(h.publisher.types()) != 1 {
		t.Fatalf("expected a single event, got %v", h.publisher.types())
	}
}

func TestApplyPaidOrderIgnoresLaterStatuses(t *testing.T) {
	for _, raw := range []string{"pending", "expire", "cancel", "deny", "failure"} {
		t.Run(raw, func(t *testing.T) {
			h := newHarness(t)
			o, _ := h.pendingOrder(t)
			ctx := context.Background()

			if _, err := h.reconciler.Apply(ctx, testutil.Notification(o.Code, "settlement"), model.SourceWebhook); err != nil {
				t.Fatalf("settle: %v", err)
			}
			out, err := h.reconciler.Apply(ctx, testutil.Notification(o.Code, raw), model.SourceWebhook)
			if err != nil {
				t.Fatalf("apply %s: %v", raw, err)
			}
			if !out.Ignored || out.Changed {
				t.Fatalf("expected ignored outcome, got %+v", out)
			}

			stored := h.order(t, o.Code)
			if stored.PaymentStatus != model.PaymentPaid || stored.Status != model.OrderConfirmed {
				t.Fatalf("paid order moved to %s/%s", stored.PaymentStatus, stored.Status)
			}
			if h.vehicleStatus(t, stored) != model.VehicleRented {
				t.Fatal("vehicle released from a paid order")
			}
		})
	}
}

func TestApplyDenyReleasesVehicle(t *testing.T) {
	h := newHarness(t)
	o, _ := h.pendingOrder(t)

	out, err := h.reconciler.Apply(context.Background(), testutil.Notification(o.Code, "deny"), model.SourceWebhook)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !out.Changed || out.PaymentStatus != model.PaymentFailed || out.OrderStatus != model.OrderCancelled {
		t.Fatalf("unexpected outcome %+v", out)
	}

	stored := h.order(t, o.Code)
	assertConsistent(t, stored)
	if h.vehicleStatus(t, stored) != model.VehicleAvailable {
		t.Fatal("expected vehicle available")
	}
	if n := h.successCount(t, stored); n != 0 {
		t.Fatalf("expected no payments, got %d", n)
	}
	if got := h.publisher.types(); len(got) != 1 || got[0] != model.EventOrderCancelled {
		t.Fatalf("expected order.cancelled, got %v", got)
	}
}

func TestApplySettlementAfterFailureIsIgnored(t *testing.T) {
	h := newHarness(t)
	o, _ := h.pendingOrder(t)
	ctx := context.Background()

	if _, err := h.reconciler.Apply(ctx, testutil.Notification(o.Code, "expire"), model.SourceWebhook); err != nil {
		t.Fatalf("expire: %v", err)
	}
	out, err := h.reconciler.Apply(ctx, testutil.Notification(o.Code, "settlement"), model.SourceWebhook)
	if err != nil {
		t.Fatalf("settlement: %v", err)
	}
	if !out.Ignored {
		t.Fatalf("expected ignored outcome, got %+v", out)
	}

	stored := h.order(t, o.Code)
	if stored.PaymentStatus != model.PaymentFailed {
		t.Fatalf("failed order moved to %s", stored.PaymentStatus)
	}
	if h.successCount(t, stored) != 0 {
		t.Fatal("payment recorded for a failed order")
	}
}

func TestApplyPendingUpdatesGatewayFieldsOnly(t *testing.T) {
	h := newHarness(t)
	o, _ := h.pendingOrder(t)

	out, err := h.reconciler.Apply(context.Background(), testutil.Notification(o.Code, "pending"), model.SourceWebhook)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Changed {
		t.Fatalf("pending should not count as a change, got %+v", out)
	}

	stored := h.order(t, o.Code)
	if stored.PaymentStatus != model.PaymentPending || stored.GatewayTransactionStatus != "pending" {
		t.Fatalf("unexpected order %s / %q", stored.PaymentStatus, stored.GatewayTransactionStatus)
	}
	if stored.VANumber != "812785002530231" || stored.PaymentType != "bank_transfer" {
		t.Fatalf("gateway fields not stored: %+v", stored)
	}
	if len(h.publisher.types()) != 0 {
		t.Fatalf("expected no events, got %v", h.publisher.types())
	}
}

func TestApplyUnknownStatusRollsBack(t *testing.T) {
	h := newHarness(t)
	o, _ := h.pendingOrder(t)

	_, err := h.reconciler.Apply(context.Background(), testutil.Notification(o.Code, "refund"), model.SourceWebhook)
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}

	stored := h.order(t, o.Code)
	if stored.PaymentStatus != model.PaymentPending || stored.GatewayTransactionStatus != "" {
		t.Fatalf("order touched by unknown status: %s / %q", stored.PaymentStatus, stored.GatewayTransactionStatus)
	}
}

func TestApplyUnknownOrder(t *testing.T) {
	h := newHarness(t)

	_, err := h.reconciler.Apply(context.Background(), testutil.Notification("RENT-20250110-000000", "settlement"), model.SourceWebhook)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyCaptureWithoutSettlementTime(t *testing.T) {
	h := newHarness(t)
	o, _ := h.pendingOrder(t)

	n := testutil.Notification(o.Code, "capture")
	n.SettlementTime = ""
	if _, err := h.reconciler.Apply(context.Background(), n, model.SourceWebhook); err != nil {
		t.Fatalf("apply: %v", err)
	}

	stored := h.order(t, o.Code)
	if stored.PaidAt == nil || !stored.PaidAt.Equal(fixedNow) {
		t.Fatalf("expected paid_at %v, got %v", fixedNow, stored.PaidAt)
	}
	if stored.PaymentStatus != model.PaymentPaid {
		t.Fatalf("expected paid, got %s", stored.PaymentStatus)
	}
}

func TestApplyConcurrentSettlement(t *testing.T) {
	h := newHarness(t)
	o, _ := h.pendingOrder(t)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.reconciler.Apply(context.Background(), testutil.Notification(o.Code, "settlement"), model.SourceWebhook)
			if err != nil {
				t.Errorf("apply: %v", err)
				return
			}
			if out.Changed {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if changed != 1 {
		t.Fatalf("expected exactly one transition, got %d", changed)
	}
	if n := h.successCount(t, o); n != 1 {
		t.Fatalf("expected one success payment, got %d", n)
	}
}

func TestForceStatusPaid(t *testing.T) {
	h := newHarness(t)
	o, _ := h.pendingOrder(t)
	when := time.Date(2025, 1, 11, 14, 30, 0, 0, testutil.Location())

	out, err := h.reconciler.ForceStatus(context.Background(), o.Code, model.PaymentPaid, &when)
	if err != nil {
		t.Fatalf("force: %v", err)
	}
	if !out.Changed || !out.PaymentRecorded {
		t.Fatalf("unexpected outcome %+v", out)
	}

	stored := h.order(t, o.Code)
	assertConsistent(t, stored)
	if stored.PaidAt == nil || !stored.PaidAt.Equal(when) {
		t.Fatalf("expected paid_at %v, got %v", when, stored.PaidAt)
	}
	p, err := h.paymentRepo.FindSuccess(stored.ID)
	if err != nil {
		t.Fatalf("find payment: %v", err)
	}
	if p.Method != model.PaymentMethodManualAdmin {
		t.Fatalf("expected manual_admin payment, got %s", p.Method)
	}
}

func TestForceStatusPaidToFailed(t *testing.T) {
	h := newHarness(t)
	o, _ := h.pendingOrder(t)
	ctx := context.Background()

	if _, err := h.reconciler.Apply(ctx, testutil.Notification(o.Code, "settlement"), model.SourceWebhook); err != nil {
		t.Fatalf("settle: %v", err)
	}
	out, err := h.reconciler.ForceStatus(ctx, o.Code, model.PaymentFailed, nil)
	if err != nil {
		t.Fatalf("force: %v", err)
	}
	if !out.Changed || out.OrderStatus != model.OrderCancelled {
		t.Fatalf("unexpected outcome %+v", out)
	}

	stored := h.order(t, o.Code)
	assertConsistent(t, stored)
	if stored.PaidAt != nil {
		t.Fatalf("expected paid_at cleared, got %v", stored.PaidAt)
	}
	if h.vehicleStatus(t, stored) != model.VehicleAvailable {
		t.Fatal("expected vehicle available")
	}
}

func TestForceStatusReactivateHeldVehicle(t *testing.T) {
	h := newHarness(t)
	o, user := h.pendingOrder(t)
	ctx := context.Background()

	if _, err := h.reconciler.Apply(ctx, testutil.Notification(o.Code, "cancel"), model.SourceWebhook); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var vehicle model.Vehicle
	h.db.First(&vehicle, "id = ?", o.VehicleID)
	testutil.SeedOrder(t, h.db, &vehicle, user, 2)

	if _, err := h.reconciler.ForceStatus(ctx, o.Code, model.PaymentPending, nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if stored := h.order(t, o.Code); stored.PaymentStatus != model.PaymentFailed {
		t.Fatalf("order changed despite conflict: %s", stored.PaymentStatus)
	}
}

func TestForceStatusReactivateFreeVehicle(t *testing.T) {
	h := newHarness(t)
	o, _ := h.pendingOrder(t)
	ctx := context.Background()

	if _, err := h.reconciler.Apply(ctx, testutil.Notification(o.Code, "expire"), model.SourceWebhook); err != nil {
		t.Fatalf("expire: %v", err)
	}
	out, err := h.reconciler.ForceStatus(ctx, o.Code, model.PaymentPending, nil)
	if err != nil {
		t.Fatalf("force: %v", err)
	}
	if out.OrderStatus != model.OrderPending {
		t.Fatalf("expected pending order, got %s", out.OrderStatus)
	}
	if h.vehicleStatus(t, o) != model.VehicleRented {
		t.Fatal("expected vehicle held again")
	}
}

func TestForceStatusFailedAgainKeepsOtherBooking(t *testing.T) {
	h := newHarness(t)
	o, user := h.pendingOrder(t)
	ctx := context.Background()

	if _, err := h.reconciler.Apply(ctx, testutil.Notification(o.Code, "expire"), model.SourceWebhook); err != nil {
		t.Fatalf("expire: %v", err)
	}
	req := &BookingRequest{VehicleID: o.VehicleID, StartDate: "2025-01-10", EndDate: "2025-01-11"}
	if _, err := h.bookings.CreateBooking(ctx, user.ID, req); err != nil {
		t.Fatalf("second booking: %v", err)
	}

	if _, err := h.reconciler.ForceStatus(ctx, o.Code, model.PaymentFailed, nil); err != nil {
		t.Fatalf("force: %v", err)
	}
	if h.vehicleStatus(t, o) != model.VehicleRented {
		t.Fatal("vehicle released while another order holds it")
	}
	if _, err := h.bookings.CreateBooking(ctx, user.ID, req); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestForceStatusReactivateVehicleTakenElsewhere(t *testing.T) {
	h := newHarness(t)
	o, _ := h.pendingOrder(t)
	ctx := context.Background()

	if _, err := h.reconciler.Apply(ctx, testutil.Notification(o.Code, "expire"), model.SourceWebhook); err != nil {
		t.Fatalf("expire: %v", err)
	}
	// Rented without a holding order, so only the conditional reserve notices.
	if err := h.db.Model(&model.Vehicle{}).Where("id = ?", o.VehicleID).Update("status", model.VehicleRented).Error; err != nil {
		t.Fatalf("mark rented: %v", err)
	}

	if _, err := h.reconciler.ForceStatus(ctx, o.Code, model.PaymentPaid, nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if stored := h.order(t, o.Code); stored.PaymentStatus != model.PaymentFailed {
		t.Fatalf("order changed despite conflict: %s", stored.PaymentStatus)
	}
	if n := h.successCount(t, o); n != 0 {
		t.Fatalf("expected no success payment, got %d", n)
	}
}

func TestForceStatusRejectsUnknownTarget(t *testing.T) {
	h := newHarness(t)
	o, _ := h.pendingOrder(t)

	if _, err := h.reconciler.ForceStatus(context.Background(), o.Code, model.PaymentStatus("refunded"), nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := h.reconciler.ForceStatus(context.Background(), "RENT-00000000-000000", model.PaymentPaid, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
