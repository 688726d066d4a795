package model

import "testing"

func TestParseGatewayStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want GatewayStatus
		pay  PaymentStatus
		ok   bool
	}{
		{"settlement", GatewaySettlement, PaymentPaid, true},
		{" Capture ", GatewayCapture, PaymentPaid, true},
		{"pending", GatewayPending, PaymentPending, true},
		{"deny", GatewayDeny, PaymentFailed, true},
		{"cancel", GatewayCancel, PaymentFailed, true},
		{"expire", GatewayExpire, PaymentFailed, true},
		{"failure", GatewayFailure, PaymentFailed, true},
		{"refund", GatewayUnknown, "", false},
		{"", GatewayUnknown, "", false},
	}

	for _, tt := range tests {
		got := ParseGatewayStatus(tt.raw)
		if got != tt.want {
			t.Errorf("ParseGatewayStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
		pay, ok := got.PaymentStatus()
		if pay != tt.pay || ok != tt.ok {
			t.Errorf("%q.PaymentStatus() = (%q, %v), want (%q, %v)", got, pay, ok, tt.pay, tt.ok)
		}
	}
}

func TestOrderStatusFor(t *testing.T) {
	if OrderStatusFor(PaymentPaid) != OrderConfirmed {
		t.Error("paid must map to confirmed")
	}
	if OrderStatusFor(PaymentFailed) != OrderCancelled {
		t.Error("failed must map to cancelled")
	}
	if OrderStatusFor(PaymentPending) != OrderPending {
		t.Error("pending must map to pending")
	}
}
