package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pizzaria-orderplane/pkg/config"
	"pizzaria-orderplane/pkg/db/option"
	"pizzaria-orderplane/pkg/rediskey"
	"pizzaria-orderplane/pkg/repository"
	"pizzaria-orderplane/services/customer"
	"pizzaria-orderplane/services/realtime"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidAmount      = errors.New("points amount must be positive")
)

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	cfg       *config.Config
	publisher realtime.Publisher

	transactions repository.Repository[LoyaltyTransaction]
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	Config    *config.Config
	Publisher realtime.Publisher `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	pub := p.Publisher
	if pub == nil {
		pub = realtime.NopPublisher{}
	}

	return &Service{
		db:        p.DB,
		node:      p.Node,
		cfg:       p.Config,
		publisher: pub,

		transactions: repository.ProvideStore[LoyaltyTransaction](p.DB),
	}
}

type EntryParams struct {
	TenantID    string
	CustomerID  string
	OrderID     string
	Points      int64
	Description string
}

// CreditPoints adds points to the customer balance and appends a purchase
// row carrying the expiration date, all in one transaction.
func (s *Service) CreditPoints(ctx context.Context, p EntryParams) error {
	return s.credit(ctx, TypePurchase, p)
}

func (s *Service) credit(ctx context.Context, txType string, p EntryParams) error {
	if p.Points <= 0 {
		return ErrInvalidAmount
	}

	// Only purchase credits age out; bonuses and refunds carry no expiry
	// because the sweep never reverses them.
	var expiresAt *time.Time
	if txType == TypePurchase {
		due := time.Now().AddDate(0, 0, s.cfg.Loyalty.PointsExpirationDays)
		expiresAt = &due
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&customer.Customer{}).
			Where("id = ?", p.CustomerID).
			Updates(map[string]any{
				"total_points": gorm.Expr("total_points + ?", p.Points),
				"updated_at":   time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return customer.ErrNotFound
		}

		return s.transactions.WithTrx(tx).Create(ctx, &LoyaltyTransaction{
			ID:           s.node.Generate().String(),
			TenantID:     p.TenantID,
			CustomerID:   p.CustomerID,
			OrderID:      p.OrderID,
			Type:         txType,
			PointsEarned: p.Points,
			Description:  p.Description,
			ExpiresAt:    expiresAt,
			CreatedAt:    time.Now(),
		})
	})
	if err != nil {
		return err
	}

	s.publishBalance(ctx, p.CustomerID)
	return nil
}

// DebitPoints removes points from the customer balance and appends a
// redemption row. The balance update is guarded so a concurrent debit can
// never drive the balance negative.
func (s *Service) DebitPoints(ctx context.Context, p EntryParams) error {
	if p.Points <= 0 {
		return ErrInvalidAmount
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&customer.Customer{}).
			Where("id = ? AND total_points >= ?", p.CustomerID, p.Points).
			Updates(map[string]any{
				"total_points": gorm.Expr("total_points - ?", p.Points),
				"updated_at":   time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInsufficientPoints
		}

		return s.transactions.WithTrx(tx).Create(ctx, &LoyaltyTransaction{
			ID:          s.node.Generate().String(),
			TenantID:    p.TenantID,
			CustomerID:  p.CustomerID,
			OrderID:     p.OrderID,
			Type:        TypeRedemption,
			PointsSpent: p.Points,
			Description: p.Description,
			CreatedAt:   time.Now(),
		})
	})
	if err != nil {
		return err
	}

	s.publishBalance(ctx, p.CustomerID)
	return nil
}

// RefundPoints returns previously redeemed points after a cancellation.
func (s *Service) RefundPoints(ctx context.Context, p EntryParams) error {
	if p.Description == "" {
		p.Description = fmt.Sprintf("Estorno de pontos do pedido %s", p.OrderID)
	}
	return s.credit(ctx, TypeRedemption, p)
}

// RecordSignupBonus grants the welcome bonus exactly once per customer. The
// received_signup_bonus flag is flipped with a guarded update so retries and
// concurrent checkouts cannot double-grant.
func (s *Service) RecordSignupBonus(ctx context.Context, tenantID, customerID string) error {
	bonus := s.cfg.Loyalty.SignupBonusPoints
	if bonus <= 0 {
		return nil
	}

	result := s.db.WithContext(ctx).Model(&customer.Customer{}).
		Where("id = ? AND received_signup_bonus = ?", customerID, false).
		Update("received_signup_bonus", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		zap.L().Debug("signup bonus already granted", zap.String("customer_id", customerID))
		return nil
	}

	return s.credit(ctx, TypeSignupBonus, EntryParams{
		TenantID:    tenantID,
		CustomerID:  customerID,
		Points:      bonus,
		Description: "Bônus de boas-vindas",
	})
}

func (s *Service) ListTransactions(ctx context.Context, tenantID, customerID string) ([]*LoyaltyTransaction, error) {
	return s.transactions.Find(ctx, &LoyaltyTransaction{
		TenantID:   tenantID,
		CustomerID: customerID,
	}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "created_at",
		OrderBy: "desc",
		Allow:   map[string]bool{"created_at": true},
	}))
}

// ExpirePoints sweeps purchase rows past their expiration date. Each expired
// row debits at most what the customer still holds, so a balance already
// spent is never driven negative.
func (s *Service) ExpirePoints(ctx context.Context, now time.Time) (int, error) {
	due, err := s.transactions.Find(ctx, &LoyaltyTransaction{Type: TypePurchase},
		option.ApplyOperator(option.Condition{Field: "expires_at", Operator: option.LTE, Value: now}),
		option.ApplyOperator(option.Condition{Field: "expired", Operator: option.EQ, Value: false}),
	)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, row := range due {
		if err := s.expireRow(ctx, row); err != nil {
			zap.L().Error("failed to expire loyalty transaction",
				zap.String("transaction_id", row.ID), zap.Error(err))
			continue
		}
		s.publishBalance(ctx, row.CustomerID)
		expired++
	}

	return expired, nil
}

// publishBalance pushes the fresh customer snapshot after a balance change.
func (s *Service) publishBalance(ctx context.Context, customerID string) {
	cust, err := repository.ProvideStore[customer.Customer](s.db).
		FindOne(ctx, &customer.Customer{ID: customerID})
	if err != nil || cust == nil {
		return
	}

	if err := s.publisher.Publish(ctx, rediskey.CustomerChannel(customerID), cust); err != nil {
		zap.L().Warn("failed to publish customer event",
			zap.String("customer_id", customerID), zap.Error(err))
	}
}

func (s *Service) expireRow(ctx context.Context, row *LoyaltyTransaction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed := tx.Model(&LoyaltyTransaction{}).
			Where("id = ? AND expired = ?", row.ID, false).
			Update("expired", true)
		if claimed.Error != nil {
			return claimed.Error
		}
		if claimed.RowsAffected == 0 {
			return nil
		}

		cust, err := repository.ProvideStore[customer.Customer](tx).FindOne(ctx, &customer.Customer{ID: row.CustomerID})
		if err != nil {
			return err
		}
		if cust == nil {
			return nil
		}

		toExpire := min(row.PointsEarned, cust.TotalPoints)
		if toExpire <= 0 {
			return nil
		}

		result := tx.Model(&customer.Customer{}).
			Where("id = ? AND total_points >= ?", row.CustomerID, toExpire).
			Updates(map[string]any{
				"total_points": gorm.Expr("total_points - ?", toExpire),
				"updated_at":   time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		return s.transactions.WithTrx(tx).Create(ctx, &LoyaltyTransaction{
			ID:          s.node.Generate().String(),
			TenantID:    row.TenantID,
			CustomerID:  row.CustomerID,
			Type:        TypeRedemption,
			PointsSpent: toExpire,
			Description: "Pontos expirados",
			CreatedAt:   time.Now(),
		})
	})
}
