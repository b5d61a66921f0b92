package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DiscountPercent = "percent"
	DiscountAmount  = "amount"
)

type Coupon struct {
	ID           string          `gorm:"column:id;primaryKey"`
	TenantID     string          `gorm:"column:tenant_id;uniqueIndex:idx_coupons_code"`
	Code         string          `gorm:"column:code;uniqueIndex:idx_coupons_code"`
	Description  string          `gorm:"column:description"`
	DiscountType string          `gorm:"column:discount_type"`
	Value        decimal.Decimal `gorm:"column:value;type:decimal(12,2)"`
	Active       bool            `gorm:"column:active"`
	SingleUse    bool            `gorm:"column:single_use"`
	ExpiresAt    *time.Time      `gorm:"column:expires_at"`
	UsedAt       *time.Time      `gorm:"column:used_at"`
	UsedByOrder  string          `gorm:"column:used_by_order"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
}

// Discount is what a validated coupon takes off an order total.
type Discount struct {
	Code  string          `json:"code"`
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Apply returns the amount this discount removes from the given total.
func (d Discount) Apply(total decimal.Decimal) decimal.Decimal {
	if d.Type == DiscountPercent {
		return total.Mul(d.Value).Div(decimal.NewFromInt(100)).Round(2)
	}
	return d.Value
}
