package customer

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/datatypes"
)

type Customer struct {
	ID                  string          `gorm:"column:id;primaryKey"`
	TenantID            string          `gorm:"column:tenant_id;uniqueIndex:idx_customers_identity"`
	Name                string          `gorm:"column:name"`
	Email               string          `gorm:"column:email"`
	NormalizedEmail     string          `gorm:"column:normalized_email;uniqueIndex:idx_customers_identity"`
	Phone               string          `gorm:"column:phone"`
	CPF                 string          `gorm:"column:cpf"`
	TotalPoints         int64           `gorm:"column:total_points"`
	TotalSpent          decimal.Decimal `gorm:"column:total_spent;type:decimal(12,2)"`
	TotalPurchases      int64           `gorm:"column:total_purchases"`
	IsRegistered        bool            `gorm:"column:is_registered"`
	ReceivedSignupBonus bool            `gorm:"column:received_signup_bonus"`
	SavedAddress        datatypes.JSON  `gorm:"column:saved_address"`
	LastPurchaseAt      *time.Time      `gorm:"column:last_purchase_at"`
	CreatedAt           time.Time       `gorm:"column:created_at"`
	UpdatedAt           time.Time       `gorm:"column:updated_at"`
}

// NormalizeEmail lowercases, trims and strips diacritics so that
// "João@Example.com " and "joao@example.com" resolve to the same customer.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, err := transform.String(t, email)
	if err != nil {
		return email
	}

	return normalized
}
