package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pizzaria-orderplane/pkg/errutil"
	"pizzaria-orderplane/pkg/repository"
	"pizzaria-orderplane/services/order"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrPendingNotFound = errors.New("pending pix order not found")
	ErrNotApproved     = errors.New("payment not approved yet")
)

type Service struct {
	db      *gorm.DB
	gateway Gateway
	orders  *order.Service

	pending repository.Repository[PendingPixOrder]
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Gateway Gateway
	Orders  *order.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		gateway: p.Gateway,
		orders:  p.Orders,

		pending: repository.ProvideStore[PendingPixOrder](p.DB),
	}
}

// CreatePixCharge asks the gateway for a charge and parks the order payload
// until the payment lands. A gateway failure aborts with the gateway's own
// message and leaves nothing behind; a failed pending write is logged but
// does not block the customer from paying.
func (s *Service) CreatePixCharge(ctx context.Context, o *order.Order, payerCPF string) (*Charge, error) {
	charge, err := s.gateway.CreateCharge(ctx, ChargeRequest{
		OrderID:     o.ID,
		Amount:      o.Total,
		Description: fmt.Sprintf("Pedido %s", o.ID),
		PayerName:   o.CustomerName,
		PayerEmail:  o.CustomerEmail,
		PayerCPF:    payerCPF,
	})
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}

	record := &PendingPixOrder{
		TicketID:  o.ID,
		TenantID:  o.TenantID,
		PaymentID: charge.PaymentID,
		Amount:    o.Total,
		Payload:   datatypes.JSON(payload),
		Status:    PendingStatusAwaiting,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.pending.Create(ctx, record); err != nil {
		zap.L().Error("failed to persist pending pix order",
			zap.String("ticket_id", o.ID), zap.Error(err))
	}

	return charge, nil
}

type ConfirmParams struct {
	TenantID string
	TicketID string

	// ClaimedPointsRedeemed is what the client says it redeemed. Nil skips
	// the check (webhook path, where no client value exists).
	ClaimedPointsRedeemed *int64
}

// ConfirmAndCreate converges the manual "I already paid" click and the
// gateway webhook onto the same sequence: verify the charge is approved,
// replay the parked payload into the order repository and drive the order
// to confirmed. Every step tolerates having already happened.
func (s *Service) ConfirmAndCreate(ctx context.Context, p ConfirmParams) (*order.Order, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	record, err := s.pending.FindOne(ctx, &PendingPixOrder{TicketID: p.TicketID, TenantID: p.TenantID})
	if err != nil {
		return nil, err
	}
	if record == nil {
		// Maybe the order already exists via the other path.
		if existing, err := s.orders.Get(ctx, p.TenantID, p.TicketID); err == nil {
			return existing, nil
		}
		return nil, ErrPendingNotFound
	}

	charge, err := s.gateway.GetChargeStatus(ctx, record.PaymentID)
	if err != nil {
		return nil, err
	}
	if charge.Status != ChargeStatusApproved {
		return nil, ErrNotApproved
	}

	var parked order.Order
	if err := json.Unmarshal(record.Payload, &parked); err != nil {
		return nil, errutil.Internal("corrupt pending pix payload", err)
	}

	if p.ClaimedPointsRedeemed != nil && *p.ClaimedPointsRedeemed != parked.PointsRedeemed {
		zap.L().Warn("points redemption claim mismatch",
			zap.String("ticket_id", p.TicketID),
			zap.Int64("claimed", *p.ClaimedPointsRedeemed),
			zap.Int64("stored", parked.PointsRedeemed))
		return nil, errutil.Forbidden("points redemption does not match order", nil)
	}

	parked.Status = order.StatusPending
	if err := s.orders.Create(ctx, &parked); err != nil && !errors.Is(err, order.ErrAlreadyExists) {
		return nil, err
	}

	confirmed, err := s.orders.UpdateStatus(ctx, order.UpdateStatusParams{
		TenantID:           p.TenantID,
		TicketID:           p.TicketID,
		NewStatus:          order.StatusConfirmed,
		AutoConfirmedByPix: true,
	})
	if err != nil {
		if errors.Is(err, order.ErrInvalidTransition) {
			// The other confirmation path already moved it.
			return s.orders.Get(ctx, p.TenantID, p.TicketID)
		}
		return nil, err
	}

	if err := s.pending.Update(ctx, record.TicketID, &map[string]any{
		"status":     PendingStatusConfirmed,
		"updated_at": time.Now(),
	}); err != nil {
		zap.L().Warn("failed to mark pending pix order confirmed",
			zap.String("ticket_id", p.TicketID), zap.Error(err))
	}

	return confirmed, nil
}

// FindByPaymentID maps a gateway payment id back to the parked ticket.
func (s *Service) FindByPaymentID(ctx context.Context, paymentID string) (*PendingPixOrder, error) {
	record, err := s.pending.FindOne(ctx, &PendingPixOrder{PaymentID: paymentID})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrPendingNotFound
	}
	return record, nil
}
