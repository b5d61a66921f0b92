package settlement

import (
	"context"
	"fmt"
	"time"

	"pizzaria-orderplane/pkg/config"
	"pizzaria-orderplane/pkg/errutil"
	"pizzaria-orderplane/pkg/rediskey"
	"pizzaria-orderplane/services/coupon"
	"pizzaria-orderplane/services/customer"
	"pizzaria-orderplane/services/ledger"
	"pizzaria-orderplane/services/order"
	"pizzaria-orderplane/services/realtime"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Coordinator runs loyalty settlement when an order is confirmed. The
// settled_at column on the order is the idempotency token: whichever
// caller flips it from NULL owns the side effects, everyone else sees a
// no-op. Sub-step failures after that point are logged, never rolled
// back — the order is paid and must stand.
type Coordinator struct {
	db        *gorm.DB
	cfg       *config.Config
	customers *customer.Service
	ledger    *ledger.Service
	coupons   *coupon.Service
	publisher realtime.Publisher
}

type CoordinatorParams struct {
	fx.In
	DB        *gorm.DB
	Config    *config.Config
	Customers *customer.Service
	Ledger    *ledger.Service
	Coupons   *coupon.Service
	Publisher realtime.Publisher `optional:"true"`
}

func NewCoordinator(p CoordinatorParams) *Coordinator {
	pub := p.Publisher
	if pub == nil {
		pub = realtime.NopPublisher{}
	}

	return &Coordinator{
		db:        p.DB,
		cfg:       p.Config,
		customers: p.Customers,
		ledger:    p.Ledger,
		coupons:   p.Coupons,
		publisher: pub,
	}
}

func (c *Coordinator) Settle(ctx context.Context, o *order.Order, requestedPointsRedeemed int64) error {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	attemptID := uuid.NewString()
	log := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("attempt_id", attemptID),
		zap.String("ticket_id", o.ID),
	)

	if requestedPointsRedeemed != o.PointsRedeemed {
		log.Warn("points redemption claim mismatch",
			zap.Int64("claimed", requestedPointsRedeemed),
			zap.Int64("stored", o.PointsRedeemed))
		return errutil.Forbidden("points redemption does not match order", nil)
	}

	cust, err := c.resolveCustomer(ctx, o)
	if err != nil {
		return err
	}

	claimed, err := c.claim(ctx, o)
	if err != nil {
		return err
	}
	if !claimed {
		log.Debug("order already settled")
		return nil
	}

	// Below this point the settlement is committed; failures degrade to
	// missing loyalty side effects, not to a blocked order.

	redeemed := o.PointsRedeemed
	if redeemed > 0 && redeemed < c.cfg.Loyalty.MinPointsToRedeem {
		log.Warn("redemption below threshold treated as zero",
			zap.Int64("points", redeemed))
		redeemed = 0
	}

	if redeemed > 0 {
		if err := c.ledger.DebitPoints(ctx, ledger.EntryParams{
			TenantID:    o.TenantID,
			CustomerID:  cust.ID,
			OrderID:     o.ID,
			Points:      redeemed,
			Description: fmt.Sprintf("Resgate de pontos no pedido %s", o.ID),
		}); err != nil {
			log.Error("failed to debit redeemed points", zap.Error(err))
		}
	} else if o.PendingPoints > 0 {
		if err := c.ledger.CreditPoints(ctx, ledger.EntryParams{
			TenantID:    o.TenantID,
			CustomerID:  cust.ID,
			OrderID:     o.ID,
			Points:      o.PendingPoints,
			Description: fmt.Sprintf("Pontos do pedido %s", o.ID),
		}); err != nil {
			log.Error("failed to credit earned points", zap.Error(err))
		}
	}

	if err := c.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ?", o.ID).
		Update("pending_points", 0).Error; err != nil {
		log.Error("failed to migrate pending points", zap.Error(err))
	}

	if o.CouponCode != "" {
		if err := c.coupons.MarkUsed(ctx, o.TenantID, o.CouponCode, o.ID); err != nil {
			log.Error("failed to mark coupon used",
				zap.String("coupon", o.CouponCode), zap.Error(err))
		}
	}

	if err := c.customers.RecordPurchase(ctx, cust.ID, o.Total); err != nil {
		log.Error("failed to record purchase stats", zap.Error(err))
	}

	c.notify(ctx, o.TenantID, cust.ID)

	log.Info("order settled",
		zap.Int64("points_redeemed", redeemed),
		zap.Int64("points_earned", earnedFor(redeemed, o)))
	return nil
}

// claim flips settled_at from NULL exactly once.
func (c *Coordinator) claim(ctx context.Context, o *order.Order) (bool, error) {
	result := c.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ? AND settled_at IS NULL", o.ID).
		Update("settled_at", time.Now())
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (c *Coordinator) resolveCustomer(ctx context.Context, o *order.Order) (*customer.Customer, error) {
	if o.CustomerID != "" {
		if cust, err := c.customers.GetByID(ctx, o.TenantID, o.CustomerID); err == nil {
			return cust, nil
		}
	}

	cust, err := c.customers.FindByEmail(ctx, o.TenantID, o.CustomerEmail)
	if err != nil {
		return nil, err
	}
	if cust == nil {
		return nil, errutil.UnprocessableEntity("order customer cannot be resolved", nil)
	}
	return cust, nil
}

func (c *Coordinator) notify(ctx context.Context, tenantID, customerID string) {
	cust, err := c.customers.GetByID(ctx, tenantID, customerID)
	if err != nil {
		return
	}

	if err := c.publisher.Publish(ctx, rediskey.CustomerChannel(customerID), cust); err != nil {
		zap.L().Warn("failed to publish customer event",
			zap.String("customer_id", customerID), zap.Error(err))
	}
}

func earnedFor(redeemed int64, o *order.Order) int64 {
	if redeemed > 0 {
		return 0
	}
	return o.PendingPoints
}
