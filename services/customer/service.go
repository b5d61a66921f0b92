package customer

import (
	"context"
	"errors"
	"time"

	"pizzaria-orderplane/pkg/errutil"
	"pizzaria-orderplane/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("customer not found")

// BonusGranter credits the one-time signup bonus for a brand new customer.
// The ledger service provides the implementation; the indirection keeps this
// package free of a dependency on the ledger.
type BonusGranter interface {
	RecordSignupBonus(ctx context.Context, tenantID, customerID string) error
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	customers repository.Repository[Customer]
	bonus     BonusGranter
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Bonus BonusGranter `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		customers: repository.ProvideStore[Customer](p.DB),
		bonus:     p.Bonus,
	}
}

type ResolveParams struct {
	TenantID     string
	Name         string
	Email        string
	Phone        string
	CPF          string
	SavedAddress datatypes.JSON
	Register     bool
}

// Resolve finds the customer owning the given email, creating one when it
// does not exist yet. Contact fields are refreshed from the latest checkout
// so the profile tracks what the customer typed most recently.
func (s *Service) Resolve(ctx context.Context, p ResolveParams) (*Customer, error) {
	normalized := NormalizeEmail(p.Email)
	if normalized == "" {
		return nil, errutil.BadRequest("email is required", nil)
	}

	existing, err := s.customers.FindOne(ctx, &Customer{
		TenantID:        p.TenantID,
		NormalizedEmail: normalized,
	})
	if err != nil {
		zap.L().Error("failed to query customer by email", zap.Error(err))
		return nil, err
	}

	if existing != nil {
		updates := map[string]any{
			"name":       p.Name,
			"phone":      p.Phone,
			"updated_at": time.Now(),
		}
		if p.CPF != "" {
			updates["cpf"] = p.CPF
		}
		if len(p.SavedAddress) > 0 {
			updates["saved_address"] = p.SavedAddress
		}
		if p.Register {
			updates["is_registered"] = true
		}

		if err := s.customers.Update(ctx, existing.ID, &updates); err != nil {
			zap.L().Error("failed to refresh customer profile", zap.Error(err))
			return nil, err
		}

		return s.customers.FindOne(ctx, &Customer{ID: existing.ID})
	}

	created := &Customer{
		ID:              s.node.Generate().String(),
		TenantID:        p.TenantID,
		Name:            p.Name,
		Email:           p.Email,
		NormalizedEmail: normalized,
		Phone:           p.Phone,
		CPF:             p.CPF,
		IsRegistered:    p.Register,
		TotalSpent:      decimal.Zero,
		SavedAddress:    p.SavedAddress,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := s.customers.Create(ctx, created); err != nil {
		// Lost a race against a concurrent checkout for the same email.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.customers.FindOne(ctx, &Customer{
				TenantID:        p.TenantID,
				NormalizedEmail: normalized,
			})
		}
		zap.L().Error("failed to create customer", zap.Error(err))
		return nil, err
	}

	if s.bonus != nil {
		if err := s.bonus.RecordSignupBonus(ctx, p.TenantID, created.ID); err != nil {
			zap.L().Warn("failed to grant signup bonus",
				zap.String("customer_id", created.ID), zap.Error(err))
		}
	}

	return s.customers.FindOne(ctx, &Customer{ID: created.ID})
}

func (s *Service) GetByID(ctx context.Context, tenantID, id string) (*Customer, error) {
	found, err := s.customers.FindOne(ctx, &Customer{ID: id, TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *Service) FindByEmail(ctx context.Context, tenantID, email string) (*Customer, error) {
	return s.customers.FindOne(ctx, &Customer{
		TenantID:        tenantID,
		NormalizedEmail: NormalizeEmail(email),
	})
}

// RecordPurchase bumps the lifetime purchase counters after an order settles.
func (s *Service) RecordPurchase(ctx context.Context, id string, amount decimal.Decimal) error {
	return s.db.WithContext(ctx).Model(&Customer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_spent":      gorm.Expr("total_spent + ?", amount),
			"total_purchases":  gorm.Expr("total_purchases + ?", 1),
			"last_purchase_at": time.Now(),
			"updated_at":       time.Now(),
		}).Error
}
