package payment

import (
	"context"
	"fmt"

	"pizzaria-orderplane/pkg/config"
	"pizzaria-orderplane/pkg/errutil"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ChargeStatusPending  = "pending"
	ChargeStatusApproved = "approved"
	ChargeStatusRejected = "rejected"
	ChargeStatusExpired  = "expired"
)

type ChargeRequest struct {
	OrderID     string          `json:"orderId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	PayerName   string          `json:"payerName"`
	PayerEmail  string          `json:"payerEmail"`
	PayerCPF    string          `json:"payerCpf"`
	PaymentType string          `json:"paymentType"`
}

type Charge struct {
	PaymentID      string `json:"paymentId"`
	Status         string `json:"status"`
	QRCode         string `json:"qrCode"`
	QRCodeBase64   string `json:"qrCodeBase64"`
	ExpirationDate string `json:"expirationDate"`
}

type gatewayError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Gateway is the PIX payment provider API.
type Gateway interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	GetChargeStatus(ctx context.Context, paymentID string) (*Charge, error)
}

type restyGateway struct {
	client *resty.Client
}

func NewGateway(cfg *config.Config) Gateway {
	client := resty.New().
		SetBaseURL(cfg.Gateway.BaseURL).
		SetTimeout(cfg.Gateway.Timeout).
		SetAuthToken(cfg.Gateway.APIKey).
		SetHeader("Content-Type", "application/json")

	return &restyGateway{client: client}
}

func (g *restyGateway) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	req.PaymentType = "pix"

	var (
		charge Charge
		gwErr  gatewayError
	)

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetBody(req).
		SetResult(&charge).
		SetError(&gwErr).
		Post("/v1/charges")
	if err != nil {
		return nil, errutil.BadGateway("payment gateway unreachable", err)
	}

	if resp.IsError() {
		return nil, errutil.BadGateway(gatewayMessage(gwErr, resp.Status()), nil)
	}

	return &charge, nil
}

func (g *restyGateway) GetChargeStatus(ctx context.Context, paymentID string) (*Charge, error) {
	var (
		charge Charge
		gwErr  gatewayError
	)

	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(&charge).
		SetError(&gwErr).
		Get(fmt.Sprintf("/v1/charges/%s", paymentID))
	if err != nil {
		return nil, errutil.BadGateway("payment gateway unreachable", err)
	}

	if resp.IsError() {
		return nil, errutil.BadGateway(gatewayMessage(gwErr, resp.Status()), nil)
	}

	return &charge, nil
}

func gatewayMessage(gwErr gatewayError, fallback string) string {
	if gwErr.Message != "" {
		return gwErr.Message
	}
	if gwErr.Error != "" {
		return gwErr.Error
	}
	return fmt.Sprintf("payment gateway returned %s", fallback)
}
