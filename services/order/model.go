package order

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusPreparing  = "preparing"
	StatusDelivering = "delivering"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

const (
	PaymentPix  = "pix"
	PaymentCard = "card"
	PaymentCash = "cash"
)

const (
	DeliveryTypeDelivery = "delivery"
	DeliveryTypePickup   = "pickup"
)

// transitions is the forward edge set of the order lifecycle. Cancellation
// is reachable from every non-terminal state.
var transitions = map[string][]string{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusPreparing, StatusCancelled},
	StatusPreparing:  {StatusDelivering, StatusCancelled},
	StatusDelivering: {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID                 string          `gorm:"column:id;primaryKey"`
	TenantID           string          `gorm:"column:tenant_id;index"`
	CustomerID         string          `gorm:"column:customer_id;index"`
	CustomerName       string          `gorm:"column:customer_name"`
	CustomerPhone      string          `gorm:"column:customer_phone"`
	CustomerEmail      string          `gorm:"column:customer_email"`
	Status             string          `gorm:"column:status;index"`
	PaymentMethod      string          `gorm:"column:payment_method"`
	DeliveryType       string          `gorm:"column:delivery_type"`
	Address            datatypes.JSON  `gorm:"column:address"`
	IsScheduled        bool            `gorm:"column:is_scheduled"`
	ScheduledFor       string          `gorm:"column:scheduled_for"`
	Subtotal           decimal.Decimal `gorm:"column:subtotal;type:decimal(12,2)"`
	DeliveryFee        decimal.Decimal `gorm:"column:delivery_fee;type:decimal(12,2)"`
	CouponCode         string          `gorm:"column:coupon_code"`
	CouponDiscount     decimal.Decimal `gorm:"column:coupon_discount;type:decimal(12,2)"`
	PointsRedeemed     int64           `gorm:"column:points_redeemed"`
	PointsDiscount     decimal.Decimal `gorm:"column:points_discount;type:decimal(12,2)"`
	Total              decimal.Decimal `gorm:"column:total;type:decimal(12,2)"`
	CashChangeFor      decimal.Decimal `gorm:"column:cash_change_for;type:decimal(12,2)"`
	PendingPoints      int64           `gorm:"column:pending_points"`
	SettledAt          *time.Time      `gorm:"column:settled_at"`
	AutoConfirmedByPix bool            `gorm:"column:auto_confirmed_by_pix"`
	PrintedAt          *time.Time      `gorm:"column:printed_at"`
	Observations       string          `gorm:"column:observations"`
	CreatedAt          time.Time       `gorm:"column:created_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

type OrderItem struct {
	ID         string          `gorm:"column:id;primaryKey"`
	OrderID    string          `gorm:"column:order_id;index"`
	Name       string          `gorm:"column:name"`
	Size       string          `gorm:"column:size"`
	Quantity   int             `gorm:"column:quantity"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:decimal(12,2)"`
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:decimal(12,2)"`
	Notes      string          `gorm:"column:notes"`
}
