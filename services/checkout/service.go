package checkout

import (
	"context"
	"encoding/json"
	"errors"

	"pizzaria-orderplane/pkg/config"
	"pizzaria-orderplane/pkg/errutil"
	"pizzaria-orderplane/pkg/sequence"
	"pizzaria-orderplane/services/coupon"
	"pizzaria-orderplane/services/customer"
	"pizzaria-orderplane/services/order"
	"pizzaria-orderplane/services/payment"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"gorm.io/datatypes"
)

type Service struct {
	settings  Settings
	node      *snowflake.Node
	tickets   sequence.Generator
	customers *customer.Service
	coupons   *coupon.Service
	orders    *order.Service
	payments  *payment.Service
}

type ServiceParams struct {
	fx.In
	Config    *config.Config
	Node      *snowflake.Node
	Tickets   sequence.Generator
	Customers *customer.Service
	Coupons   *coupon.Service
	Orders    *order.Service
	Payments  *payment.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		settings:  SettingsFromConfig(p.Config),
		node:      p.Node,
		tickets:   p.Tickets,
		customers: p.Customers,
		coupons:   p.Coupons,
		orders:    p.Orders,
		payments:  p.Payments,
	}
}

func (s *Service) Settings() Settings {
	return s.settings
}

// ComputeTotals prices the cart server-side. Points below the redemption
// threshold are a zero everywhere: no discount, and the order still earns.
// The final total never goes below zero.
func (s *Service) ComputeTotals(ctx context.Context, tenantID string, req SubmitRequest) (*Totals, error) {
	subtotal := decimal.Zero
	for _, item := range req.Items {
		line := decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)

	deliveryFee := decimal.Zero
	if req.DeliveryType == order.DeliveryTypeDelivery {
		deliveryFee = decimal.NewFromFloat(req.DeliveryFee).Round(2)
	}

	base := subtotal.Add(deliveryFee)

	redeemed := req.PointsToRedeem
	pointsDiscount := decimal.Zero
	if redeemed >= s.settings.MinPointsToRedeem {
		pointsDiscount = decimal.NewFromInt(redeemed).
			Div(decimal.NewFromInt(100)).
			Mul(decimal.NewFromFloat(s.settings.DiscountPer100Points)).
			Round(2)
	} else {
		redeemed = 0
	}

	couponDiscount := decimal.Zero
	if req.CouponCode != "" {
		discount, err := s.coupons.Validate(ctx, tenantID, req.CouponCode)
		if err != nil {
			return nil, mapCouponError(err)
		}
		couponDiscount = discount.Apply(base)
	}

	total := base.Sub(pointsDiscount).Sub(couponDiscount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	pendingPoints := int64(0)
	if redeemed == 0 {
		pendingPoints = total.Mul(decimal.NewFromFloat(s.settings.PointsPerReal)).IntPart()
	}

	return &Totals{
		Subtotal:       subtotal,
		DeliveryFee:    deliveryFee,
		PointsDiscount: pointsDiscount,
		CouponDiscount: couponDiscount,
		Total:          total,
		PointsRedeemed: redeemed,
		PendingPoints:  pendingPoints,
	}, nil
}

// SubmitResult is what the storefront renders after submit: either the
// created order (cash/card) or the PIX charge to pay (no order yet).
type SubmitResult struct {
	TicketID string          `json:"ticket_id"`
	Totals   *Totals         `json:"totals"`
	Order    *order.Order    `json:"order,omitempty"`
	Charge   *payment.Charge `json:"charge,omitempty"`
}

// Submit runs the whole flow: validate every active step, resolve the
// customer, price server-side, then branch on payment method. Cash and
// card orders are created immediately; PIX parks the order behind a
// gateway charge and only materializes it when the payment lands.
func (s *Service) Submit(ctx context.Context, tenantID string, req SubmitRequest) (*SubmitResult, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if err := s.settings.ValidateAll(req); err != nil {
		return nil, err
	}

	cust, err := s.customers.Resolve(ctx, customer.ResolveParams{
		TenantID: tenantID,
		Name:     req.Contact.Name,
		Email:    req.Contact.Email,
		Phone:    req.Contact.Phone,
		CPF:      req.CPF,
	})
	if err != nil {
		return nil, err
	}

	totals, err := s.ComputeTotals(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}

	if totals.PointsRedeemed > cust.TotalPoints {
		return nil, errutil.UnprocessableEntity("insufficient points for redemption", nil)
	}

	if req.PaymentMethod == order.PaymentCash && req.CashChangeFor != nil {
		if decimal.NewFromFloat(*req.CashChangeFor).LessThan(totals.Total) {
			return nil, errutil.ValidationFailed("change amount is below the order total", nil)
		}
	}

	ticketID, err := s.tickets.NextTicketID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	o, err := s.buildOrder(ticketID, tenantID, cust, req, totals)
	if err != nil {
		return nil, err
	}

	if req.PaymentMethod == order.PaymentPix {
		charge, err := s.payments.CreatePixCharge(ctx, o, req.CPF)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{TicketID: ticketID, Totals: totals, Charge: charge}, nil
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}

	return &SubmitResult{TicketID: ticketID, Totals: totals, Order: o}, nil
}

func mapCouponError(err error) error {
	if errors.Is(err, coupon.ErrNotFound) {
		return errutil.NotFound("coupon not found", err)
	}
	if errors.Is(err, coupon.ErrNotActive) || errors.Is(err, coupon.ErrExpired) || errors.Is(err, coupon.ErrAlreadyUsed) {
		return errutil.UnprocessableEntity("coupon cannot be applied", err)
	}
	return err
}

func (s *Service) buildOrder(ticketID, tenantID string, cust *customer.Customer, req SubmitRequest, totals *Totals) (*order.Order, error) {
	var address datatypes.JSON
	if req.Address != nil {
		raw, err := json.Marshal(req.Address)
		if err != nil {
			return nil, err
		}
		address = datatypes.JSON(raw)
	}

	cashChangeFor := decimal.Zero
	if req.PaymentMethod == order.PaymentCash && req.CashChangeFor != nil {
		cashChangeFor = decimal.NewFromFloat(*req.CashChangeFor)
	}

	items := make([]order.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		unit := decimal.NewFromFloat(item.UnitPrice)
		items = append(items, order.OrderItem{
			ID:         s.node.Generate().String(),
			OrderID:    ticketID,
			Name:       item.Name,
			Size:       item.Size,
			Quantity:   item.Quantity,
			UnitPrice:  unit,
			TotalPrice: unit.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2),
			Notes:      item.Notes,
		})
	}

	return &order.Order{
		ID:             ticketID,
		TenantID:       tenantID,
		CustomerID:     cust.ID,
		CustomerName:   req.Contact.Name,
		CustomerPhone:  req.Contact.Phone,
		CustomerEmail:  req.Contact.Email,
		Status:         order.StatusPending,
		PaymentMethod:  req.PaymentMethod,
		DeliveryType:   req.DeliveryType,
		Address:        address,
		IsScheduled:    req.IsScheduled,
		ScheduledFor:   req.ScheduledFor,
		Subtotal:       totals.Subtotal,
		DeliveryFee:    totals.DeliveryFee,
		CouponCode:     req.CouponCode,
		CouponDiscount: totals.CouponDiscount,
		PointsRedeemed: totals.PointsRedeemed,
		PointsDiscount: totals.PointsDiscount,
		Total:          totals.Total,
		CashChangeFor:  cashChangeFor,
		PendingPoints:  totals.PendingPoints,
		Observations:   req.Observations,
		Items:          items,
	}, nil
}
