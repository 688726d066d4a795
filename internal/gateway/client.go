package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"go-rental-ws/internal/config"
	"go-rental-ws/internal/model"
)

// SnapRequest describes one payment session. GrossAmount must equal the sum
// of the item lines.
type SnapRequest struct {
	OrderCode   string
	GrossAmount int64
	Customer    Customer
	Items       []Item
}

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type Item struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

type snapPayload struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	CreditCard struct {
		Secure bool `json:"secure"`
	} `json:"credit_card"`
	CustomerDetails Customer `json:"customer_details"`
	ItemDetails     []Item   `json:"item_details,omitempty"`
}

type snapResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

// Client talks to the payment gateway over HTTP. It never retries; callers decide.
type Client struct {
	serverKey string
	snapURL   string
	apiURL    string
	timeout   time.Duration
}

func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		serverKey: cfg.ServerKey,
		snapURL:   cfg.SnapURL,
		apiURL:    cfg.APIURL,
		timeout:   cfg.Timeout,
	}
}

func (c *Client) requestTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	return timeout
}

// CreateSnapToken opens a payment session and returns its token.
func (c *Client) CreateSnapToken(ctx context.Context, req SnapRequest) (string, error) {
	const op = "create_token"

	timeout := c.requestTimeout(ctx)
	if timeout <= 0 {
		return "", &Error{Op: op, Kind: KindTimeout, Err: ctx.Err()}
	}

	var payload snapPayload
	payload.TransactionDetails.OrderID = req.OrderCode
	payload.TransactionDetails.GrossAmount = req.GrossAmount
	payload.CreditCard.Secure = true
	payload.CustomerDetails = req.Customer
	payload.ItemDetails = req.Items

	agent := fiber.Post(c.snapURL).
		BasicAuth(c.serverKey, "").
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON).
		Timeout(timeout).
		JSON(payload)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", transportError(op, errs)
	}

	var resp snapResponse
	if err := json.Unmarshal(body, &resp); err != nil && code < 300 {
		return "", &Error{Op: op, Kind: KindDecode, StatusCode: code, Err: err}
	}
	if code >= 300 {
		var detail error
		if len(resp.ErrorMessages) > 0 {
			detail = fmt.Errorf("%v", resp.ErrorMessages)
		}
		return "", &Error{Op: op, Kind: KindHTTP, StatusCode: code, Err: detail}
	}
	if resp.Token == "" {
		return "", &Error{Op: op, Kind: KindEmptyToken, StatusCode: code}
	}
	return resp.Token, nil
}

// TransactionStatus fetches the gateway's current view of an order.
func (c *Client) TransactionStatus(ctx context.Context, orderCode string) (*model.GatewayNotification, error) {
	const op = "transaction_status"

	timeout := c.requestTimeout(ctx)
	if timeout <= 0 {
		return nil, &Error{Op: op, Kind: KindTimeout, Err: ctx.Err()}
	}

	endpoint := fmt.Sprintf("%s/v2/%s/status", c.apiURL, url.PathEscape(orderCode))
	agent := fiber.Get(endpoint).
		BasicAuth(c.serverKey, "").
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON).
		Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON).
		Timeout(timeout)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, transportError(op, errs)
	}

	switch {
	case code == fiber.StatusNotFound:
		return nil, &Error{Op: op, Kind: KindNotFound, StatusCode: code}
	case code != fiber.StatusOK:
		return nil, &Error{Op: op, Kind: KindHTTP, StatusCode: code}
	}

	n, err := model.ParseNotification(body)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindDecode, StatusCode: code, Err: err}
	}

	// The status API answers 200 and puts the real outcome in status_code.
	if n.StatusCode == "404" {
		return nil, &Error{Op: op, Kind: KindNotFound, StatusCode: fiber.StatusNotFound}
	}
	if n.TransactionStatus == "" {
		return nil, &Error{Op: op, Kind: KindHTTP, StatusCode: code, Err: fmt.Errorf("status_code %s without transaction_status", n.StatusCode)}
	}
	if n.OrderCode == "" {
		n.OrderCode = orderCode
	}
	return n, nil
}
