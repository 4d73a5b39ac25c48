// Package payment prepares and confirms fortune purchases against a simulated
// checkout. No money moves.
package payment

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidAmount is returned when a checkout carries no positive amount.
var ErrInvalidAmount = errors.New("amount must be a positive integer")

const defaultOrderName = "2026 럭키 픽 덕담 뽑기"

type Config struct {
	ClientKey string
	BaseURL   string
	// Price is advertised to the client. Prepare does not enforce it.
	Price int64
}

type PrepareRequest struct {
	Amount    int64  `json:"amount"`
	OrderID   string `json:"orderId,omitempty"`
	OrderName string `json:"orderName"`
}

type PaymentData struct {
	Amount     int64  `json:"amount"`
	OrderID    string `json:"orderId"`
	OrderName  string `json:"orderName"`
	SuccessURL string `json:"successUrl"`
	FailURL    string `json:"failUrl"`
}

type Checkout struct {
	ClientKey   string      `json:"clientKey"`
	PaymentData PaymentData `json:"paymentData"`
}

type ConfirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

type Confirmation struct {
	Message string `json:"message"`
	OrderID string `json:"orderId"`
	Amount  int64  `json:"amount"`
}

type Gateway struct {
	cfg   Config
	newID func() string
}

func New(cfg Config) *Gateway {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Gateway{cfg: cfg, newID: uuid.NewString}
}

// Price is the advertised price of one draw.
func (g *Gateway) Price() int64 { return g.cfg.Price }

// Prepare builds the checkout parameters for the client widget. A missing
// order id gets a fresh UUID.
func (g *Gateway) Prepare(req PrepareRequest) (Checkout, error) {
	if req.Amount <= 0 {
		return Checkout{}, ErrInvalidAmount
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		orderID = g.newID()
	}
	name := strings.TrimSpace(req.OrderName)
	if name == "" {
		name = defaultOrderName
	}
	return Checkout{
		ClientKey: g.cfg.ClientKey,
		PaymentData: PaymentData{
			Amount:     req.Amount,
			OrderID:    orderID,
			OrderName:  name,
			SuccessURL: g.cfg.BaseURL + "/api/payment/success",
			FailURL:    g.cfg.BaseURL + "/api/payment/fail",
		},
	}, nil
}

// Confirm approves every payment; this is a test-mode checkout.
func (g *Gateway) Confirm(req ConfirmRequest) Confirmation {
	slog.Info("payment confirmed (test mode)", "order_id", req.OrderID, "amount", req.Amount)
	return Confirmation{
		Message: "결제가 완료되었습니다 (테스트 모드)",
		OrderID: req.OrderID,
		Amount:  req.Amount,
	}
}
