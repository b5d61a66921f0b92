package coupon

import (
	"context"
	"errors"
	"strings"
	"time"

	"pizzaria-orderplane/pkg/repository"
	"pizzaria-orderplane/pkg/sequence"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("coupon not found")
	ErrNotActive   = errors.New("coupon is not active")
	ErrExpired     = errors.New("coupon has expired")
	ErrAlreadyUsed = errors.New("coupon has already been used")
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	gen  sequence.Generator

	coupons repository.Repository[Coupon]
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	Generator sequence.Generator `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		gen:  p.Generator,

		coupons: repository.ProvideStore[Coupon](p.DB),
	}
}

type CreateParams struct {
	TenantID     string
	Code         string
	Description  string
	DiscountType string
	Value        decimal.Decimal
	SingleUse    bool
	ExpiresAt    *time.Time
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(p.Code))
	if code == "" && s.gen != nil {
		generated, err := s.gen.NextCouponCode(ctx, p.TenantID)
		if err != nil {
			return nil, err
		}
		code = generated
	}

	created := &Coupon{
		ID:           s.node.Generate().String(),
		TenantID:     p.TenantID,
		Code:         code,
		Description:  p.Description,
		DiscountType: p.DiscountType,
		Value:        p.Value,
		Active:       true,
		SingleUse:    p.SingleUse,
		ExpiresAt:    p.ExpiresAt,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.coupons.Create(ctx, created); err != nil {
		zap.L().Error("failed to create coupon", zap.Error(err))
		return nil, err
	}

	return created, nil
}

// Validate checks whether the code can still be applied and returns the
// discount it grants. It never marks the coupon; redemption only happens
// when the order settles.
func (s *Service) Validate(ctx context.Context, tenantID, code string) (*Discount, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	found, err := s.coupons.FindOne(ctx, &Coupon{TenantID: tenantID, Code: code})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	if !found.Active {
		return nil, ErrNotActive
	}
	if found.ExpiresAt != nil && found.ExpiresAt.Before(time.Now()) {
		return nil, ErrExpired
	}
	if found.SingleUse && found.UsedAt != nil {
		return nil, ErrAlreadyUsed
	}

	return &Discount{
		Code:  found.Code,
		Type:  found.DiscountType,
		Value: found.Value,
	}, nil
}

// MarkUsed stamps a single-use coupon as consumed by the given order.
// Marking again for the same order is a no-op, so settlement retries are
// safe; a different order hitting a consumed coupon gets ErrAlreadyUsed.
func (s *Service) MarkUsed(ctx context.Context, tenantID, code, orderID string) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	result := s.db.WithContext(ctx).Model(&Coupon{}).
		Where("tenant_id = ? AND code = ? AND single_use = ? AND used_at IS NULL", tenantID, code, true).
		Updates(map[string]any{
			"used_at":       time.Now(),
			"used_by_order": orderID,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	found, err := s.coupons.FindOne(ctx, &Coupon{TenantID: tenantID, Code: code})
	if err != nil {
		return err
	}
	if found == nil {
		return ErrNotFound
	}
	if !found.SingleUse || found.UsedByOrder == orderID {
		return nil
	}

	return ErrAlreadyUsed
}

func (s *Service) Get(ctx context.Context, tenantID, code string) (*Coupon, error) {
	found, err := s.coupons.FindOne(ctx, &Coupon{
		TenantID: tenantID,
		Code:     strings.ToUpper(strings.TrimSpace(code)),
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}
