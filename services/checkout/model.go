package checkout

import (
	"pizzaria-orderplane/pkg/config"

	"github.com/shopspring/decimal"
)

const (
	StepContact      = "contact"
	StepDelivery     = "delivery"
	StepAddress      = "address"
	StepSchedule     = "schedule"
	StepPayment      = "payment"
	StepPix          = "pix"
	StepConfirmation = "confirmation"
)

// ScheduleLayout is how scheduled_for travels and is stored: second
// precision, no timezone suffix.
const ScheduleLayout = "2006-01-02T15:04:05"

// Settings is an explicit snapshot of the loyalty and scheduling knobs.
// Handlers receive it injected; nothing reads configuration globally.
type Settings struct {
	PointsPerReal        float64 `json:"points_per_real"`
	DiscountPer100Points float64 `json:"discount_per_100_points"`
	MinPointsToRedeem    int64   `json:"min_points_to_redeem"`
	SignupBonusPoints    int64   `json:"signup_bonus_points"`
	SchedulingEnabled    bool    `json:"scheduling_enabled"`
	MinScheduleMinutes   int     `json:"min_schedule_minutes"`
	MaxScheduleDays      int     `json:"max_schedule_days"`
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		PointsPerReal:        cfg.Loyalty.PointsPerReal,
		DiscountPer100Points: cfg.Loyalty.DiscountPer100Points,
		MinPointsToRedeem:    cfg.Loyalty.MinPointsToRedeem,
		SignupBonusPoints:    cfg.Loyalty.SignupBonusPoints,
		SchedulingEnabled:    cfg.Scheduling.Enable,
		MinScheduleMinutes:   cfg.Scheduling.MinScheduleMinutes,
		MaxScheduleDays:      cfg.Scheduling.MaxScheduleDays,
	}
}

type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	ZipCode      string `json:"zip_code"`
}

type CartItem struct {
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Notes     string  `json:"notes"`
}

// SubmitRequest is the whole checkout flow as the storefront accumulated
// it. Quote takes the same shape so both paths price identically.
type SubmitRequest struct {
	Contact        Contact    `json:"contact"`
	DeliveryType   string     `json:"delivery_type"`
	Address        *Address   `json:"address"`
	IsScheduled    bool       `json:"is_scheduled"`
	ScheduledFor   string     `json:"scheduled_for"`
	PaymentMethod  string     `json:"payment_method"`
	CPF            string     `json:"cpf"`
	CashChangeFor  *float64   `json:"cash_change_for"`
	Items          []CartItem `json:"items"`
	DeliveryFee    float64    `json:"delivery_fee"`
	CouponCode     string     `json:"coupon_code"`
	PointsToRedeem int64      `json:"points_to_redeem"`
	Observations   string     `json:"observations"`
}

// Totals is the server-side price breakdown. The client never dictates a
// number here; it only gets to claim inputs that are re-validated.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	PointsDiscount decimal.Decimal `json:"points_discount"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	Total          decimal.Decimal `json:"total"`
	PointsRedeemed int64           `json:"points_redeemed"`
	PendingPoints  int64           `json:"pending_points"`
}
