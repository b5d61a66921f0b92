package ledger

import "time"

const (
	TypePurchase    = "purchase"
	TypeRedemption  = "redemption"
	TypeSignupBonus = "signup_bonus"
)

// LoyaltyTransaction is an append-only record of every point movement.
// Exactly one of PointsEarned / PointsSpent is non-zero per row.
type LoyaltyTransaction struct {
	ID           string     `gorm:"column:id;primaryKey"`
	TenantID     string     `gorm:"column:tenant_id;index:idx_loyalty_tx_customer"`
	CustomerID   string     `gorm:"column:customer_id;index:idx_loyalty_tx_customer"`
	OrderID      string     `gorm:"column:order_id"`
	Type         string     `gorm:"column:type"`
	PointsEarned int64      `gorm:"column:points_earned"`
	PointsSpent  int64      `gorm:"column:points_spent"`
	Description  string     `gorm:"column:description"`
	ExpiresAt    *time.Time `gorm:"column:expires_at;index"`
	Expired      bool       `gorm:"column:expired"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
}
