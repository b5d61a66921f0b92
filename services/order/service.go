package order

import (
	"context"
	"errors"
	"time"

	"pizzaria-orderplane/pkg/rediskey"
	"pizzaria-orderplane/services/ledger"
	"pizzaria-orderplane/services/realtime"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrAlreadyExists     = errors.New("order already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Settler runs loyalty settlement when an order reaches confirmed. The
// settlement service provides the implementation.
type Settler interface {
	Settle(ctx context.Context, o *Order, requestedPointsRedeemed int64) error
}

type Service struct {
	db        *gorm.DB
	ledger    *ledger.Service
	settler   Settler
	publisher realtime.Publisher
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Ledger    *ledger.Service
	Settler   Settler            `optional:"true"`
	Publisher realtime.Publisher `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	pub := p.Publisher
	if pub == nil {
		pub = realtime.NopPublisher{}
	}

	return &Service{
		db:        p.DB,
		ledger:    p.Ledger,
		settler:   p.Settler,
		publisher: pub,
	}
}

// Create inserts the order with its item snapshot. A duplicate ticket id
// means another confirmation path already created it.
func (s *Service) Create(ctx context.Context, o *Order) error {
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if o.Status == "" {
		o.Status = StatusPending
	}

	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyExists
		}
		zap.L().Error("failed to create order", zap.String("ticket_id", o.ID), zap.Error(err))
		return err
	}

	s.publish(ctx, o)
	return nil
}

func (s *Service) Get(ctx context.Context, tenantID, ticketID string) (*Order, error) {
	var found Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND tenant_id = ?", ticketID, tenantID).
		First(&found).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &found, nil
}

type ListParams struct {
	TenantID string
	Phone    string
	Email    string
	Status   string
	Limit    int
}

func (s *Service) List(ctx context.Context, p ListParams) ([]Order, error) {
	query := s.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ?", p.TenantID).
		Order("created_at DESC")

	if p.Phone != "" {
		query = query.Where("customer_phone = ?", p.Phone)
	}
	if p.Email != "" {
		query = query.Where("customer_email = ?", p.Email)
	}
	if p.Status != "" {
		query = query.Where("status = ?", p.Status)
	}
	if p.Limit > 0 {
		query = query.Limit(p.Limit)
	}

	var rows []Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type UpdateStatusParams struct {
	TenantID  string
	TicketID  string
	NewStatus string

	// RequestedPointsRedeemed is the client-claimed redemption forwarded to
	// settlement for the fraud check. Nil means "trust the stored order".
	RequestedPointsRedeemed *int64
	AutoConfirmedByPix      bool
}

// UpdateStatus drives the order through the lifecycle. The current status
// is a precondition of the UPDATE itself, so two concurrent transitions
// cannot both win. Confirmation triggers settlement; cancellation reverses
// whatever settlement already did.
func (s *Service) UpdateStatus(ctx context.Context, p UpdateStatusParams) (*Order, error) {
	current, err := s.Get(ctx, p.TenantID, p.TicketID)
	if err != nil {
		return nil, err
	}

	if current.Status == StatusCancelled && p.NewStatus == StatusCancelled {
		return current, nil
	}

	if !CanTransition(current.Status, p.NewStatus) {
		return nil, ErrInvalidTransition
	}

	updates := map[string]any{
		"status":     p.NewStatus,
		"updated_at": time.Now(),
	}
	if p.AutoConfirmedByPix && p.NewStatus == StatusConfirmed {
		updates["auto_confirmed_by_pix"] = true
	}

	result := s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND tenant_id = ? AND status = ?", p.TicketID, p.TenantID, current.Status).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Someone else moved the order first.
		return nil, ErrInvalidTransition
	}

	switch p.NewStatus {
	case StatusConfirmed:
		s.settle(ctx, current, p.RequestedPointsRedeemed)
	case StatusCancelled:
		s.reverse(ctx, current)
	}

	updated, err := s.Get(ctx, p.TenantID, p.TicketID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, updated)
	return updated, nil
}

func (s *Service) settle(ctx context.Context, o *Order, requested *int64) {
	if s.settler == nil {
		return
	}

	claimed := o.PointsRedeemed
	if requested != nil {
		claimed = *requested
	}

	if err := s.settler.Settle(ctx, o, claimed); err != nil {
		zap.L().Error("settlement failed",
			zap.String("ticket_id", o.ID), zap.Error(err))
	}
}

// reverse undoes the loyalty side effects of an order that got cancelled.
// Redeemed points come back only when settlement actually debited them;
// pending points that never migrated are simply zeroed.
func (s *Service) reverse(ctx context.Context, o *Order) {
	if o.SettledAt != nil && o.PointsRedeemed > 0 {
		if err := s.ledger.RefundPoints(ctx, ledger.EntryParams{
			TenantID:   o.TenantID,
			CustomerID: o.CustomerID,
			OrderID:    o.ID,
			Points:     o.PointsRedeemed,
		}); err != nil {
			zap.L().Error("failed to refund redeemed points",
				zap.String("ticket_id", o.ID), zap.Error(err))
		}
	}

	if o.PendingPoints > 0 {
		if err := s.db.WithContext(ctx).Model(&Order{}).
			Where("id = ?", o.ID).
			Update("pending_points", 0).Error; err != nil {
			zap.L().Error("failed to zero pending points",
				zap.String("ticket_id", o.ID), zap.Error(err))
		}
	}
}

// MarkPrinted stamps the kitchen print time once.
func (s *Service) MarkPrinted(ctx context.Context, tenantID, ticketID string) error {
	result := s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND tenant_id = ? AND printed_at IS NULL", ticketID, tenantID).
		Update("printed_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (s *Service) publish(ctx context.Context, o *Order) {
	if err := s.publisher.Publish(ctx, rediskey.OrderChannel(o.ID), o); err != nil {
		zap.L().Warn("failed to publish order event", zap.String("ticket_id", o.ID), zap.Error(err))
	}
}
