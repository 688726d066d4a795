package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-rental-ws/internal/config"
	"go-rental-ws/internal/model"
)

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(config.GatewayConfig{
		ServerKey: "SB-Mid-server-test",
		SnapURL:   url + "/snap/v1/transactions",
		APIURL:    url,
		Timeout:   timeout,
	})
}

func TestCreateSnapToken(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "SB-Mid-server-test" || pass != "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":"snap-token-123","redirect_url":"https://example.test/pay"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2*time.Second)
	token, err := c.CreateSnapToken(context.Background(), SnapRequest{
		OrderCode:   "RENT-20250110-ABC123",
		GrossAmount: 300000,
		Customer:    Customer{FirstName: "Budi", LastName: "Santoso", Email: "budi@example.com", Phone: "081234567890"},
		Items:       []Item{{ID: "v1", Price: 100000, Quantity: 3, Name: "Toyota Avanza Rental"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "snap-token-123" {
		t.Fatalf("unexpected token %q", token)
	}

	details, _ := got["transaction_details"].(map[string]interface{})
	if details["order_id"] != "RENT-20250110-ABC123" || details["gross_amount"] != float64(300000) {
		t.Fatalf("unexpected transaction details %v", details)
	}
}

func TestCreateSnapTokenEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":""}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).CreateSnapToken(context.Background(), SnapRequest{OrderCode: "X"})
	if !IsKind(err, KindEmptyToken) {
		t.Fatalf("expected empty_token error, got %v", err)
	}
}

func TestCreateSnapTokenHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_messages":["transaction_details.order_id sudah digunakan"]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).CreateSnapToken(context.Background(), SnapRequest{OrderCode: "X"})
	if !IsKind(err, KindHTTP) {
		t.Fatalf("expected http error, got %v", err)
	}
}

func TestTransactionStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/RENT-20250110-ABC123/status" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"status_code":"200","order_id":"RENT-20250110-ABC123","transaction_status":"settlement","transaction_id":"tx-1","gross_amount":"300000.00","payment_type":"bank_transfer","va_numbers":[{"bank":"bni","va_number":"9881"}]}`))
	}))
	defer srv.Close()

	n, err := newTestClient(srv.URL, time.Second).TransactionStatus(context.Background(), "RENT-20250110-ABC123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Status != model.GatewaySettlement || n.TransactionID != "tx-1" || n.Bank != "bni" {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestTransactionStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status_code":"404","status_message":"Transaction doesn't exist."}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).TransactionStatus(context.Background(), "RENT-X")
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestTransactionStatusHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).TransactionStatus(context.Background(), "RENT-X")
	if !IsKind(err, KindHTTP) {
		t.Fatalf("expected http error, got %v", err)
	}
}

func TestTransactionStatusTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"status_code":"200","transaction_status":"pending"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 50*time.Millisecond).TransactionStatus(context.Background(), "RENT-X")
	if !IsKind(err, KindTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestTransactionStatusNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, time.Second).TransactionStatus(context.Background(), "RENT-X")
	if !IsKind(err, KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestVerifySignature(t *testing.T) {
	n := &model.GatewayNotification{OrderCode: "RENT-1", StatusCode: "200", GrossAmountRaw: "300000.00"}
	n.SignatureKey = Signature("RENT-1", "200", "300000.00", "server-key")

	if !VerifySignature(n, "server-key") {
		t.Fatal("expected signature to verify")
	}
	if VerifySignature(n, "other-key") {
		t.Fatal("expected mismatch with another key")
	}
	n.SignatureKey = ""
	if VerifySignature(n, "server-key") {
		t.Fatal("expected missing signature to fail")
	}
}
