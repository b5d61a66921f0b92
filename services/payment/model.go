package payment

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	PendingStatusAwaiting  = "awaiting_payment"
	PendingStatusConfirmed = "confirmed"
)

// PendingPixOrder holds the full order snapshot while the PIX charge is
// unpaid. No order row exists yet; confirmation replays the payload.
type PendingPixOrder struct {
	TicketID  string          `gorm:"column:ticket_id;primaryKey"`
	TenantID  string          `gorm:"column:tenant_id;index"`
	PaymentID string          `gorm:"column:payment_id;index"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(12,2)"`
	Payload   datatypes.JSON  `gorm:"column:payload"`
	Status    string          `gorm:"column:status"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}
