package settlement

import (
	"context"
	"testing"

	"pizzaria-orderplane/pkg/config"
	"pizzaria-orderplane/services/coupon"
	"pizzaria-orderplane/services/customer"
	"pizzaria-orderplane/services/ledger"
	"pizzaria-orderplane/services/order"
	"pizzaria-orderplane/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	coordinator *Coordinator
	db          *gorm.DB
	ledger      *ledger.Service
	coupons     *coupon.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&customer.Customer{}, &ledger.LoyaltyTransaction{},
		&coupon.Coupon{}, &order.Order{}, &order.OrderItem{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Loyalty.PointsPerReal = 1.0
	cfg.Loyalty.DiscountPer100Points = 5.0
	cfg.Loyalty.MinPointsToRedeem = 50
	cfg.Loyalty.PointsExpirationDays = 365

	customers := customer.NewService(customer.ServiceParams{DB: db, Node: node})
	ledgerSvc := ledger.NewService(ledger.ServiceParams{DB: db, Node: node, Config: cfg})
	coupons := coupon.NewService(coupon.ServiceParams{DB: db, Node: node})

	return &fixture{
		coordinator: NewCoordinator(CoordinatorParams{
			DB: db, Config: cfg, Customers: customers, Ledger: ledgerSvc, Coupons: coupons,
		}),
		db:      db,
		ledger:  ledgerSvc,
		coupons: coupons,
	}
}

func (f *fixture) seedCustomer(t *testing.T, points int64) {
	t.Helper()
	require.NoError(t, f.db.Create(&customer.Customer{
		ID:              "cust-1",
		TenantID:        "tnt-1",
		NormalizedEmail: "maria@example.com",
		TotalPoints:     points,
	}).Error)
}

func (f *fixture) seedOrder(t *testing.T, o *order.Order) {
	t.Helper()
	o.ID = "PED-250901-AA11"
	o.TenantID = "tnt-1"
	o.CustomerID = "cust-1"
	o.CustomerEmail = "maria@example.com"
	o.Status = order.StatusConfirmed
	require.NoError(t, f.db.Create(o).Error)
}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	var c customer.Customer
	require.NoError(t, f.db.First(&c, "id = ?", "cust-1").Error)
	return c.TotalPoints
}

func (f *fixture) reload(t *testing.T) *order.Order {
	t.Helper()
	var o order.Order
	require.NoError(t, f.db.First(&o, "id = ?", "PED-250901-AA11").Error)
	return &o
}

func TestSettleCreditsEarnedPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCustomer(t, 0)
	f.seedOrder(t, &order.Order{
		Total:         decimal.NewFromInt(90),
		PendingPoints: 90,
	})

	require.NoError(t, f.coordinator.Settle(ctx, f.reload(t), 0))

	require.EqualValues(t, 90, f.balance(t))

	settled := f.reload(t)
	require.NotNil(t, settled.SettledAt)
	require.Zero(t, settled.PendingPoints)

	rows, err := f.ledger.ListTransactions(ctx, "tnt-1", "cust-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, ledger.TypePurchase, rows[0].Type)
	require.EqualValues(t, 90, rows[0].PointsEarned)
}

func TestSettleRedemptionExcludesEarn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCustomer(t, 200)
	f.seedOrder(t, &order.Order{
		Total:          decimal.NewFromInt(85),
		PointsRedeemed: 100,
		PointsDiscount: decimal.NewFromInt(5),
		PendingPoints:  0,
	})

	require.NoError(t, f.coordinator.Settle(ctx, f.reload(t), 100))

	// Debited, and nothing earned on the same order.
	require.EqualValues(t, 100, f.balance(t))

	rows, err := f.ledger.ListTransactions(ctx, "tnt-1", "cust-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, ledger.TypeRedemption, rows[0].Type)
	require.EqualValues(t, 100, rows[0].PointsSpent)
	require.Zero(t, rows[0].PointsEarned)
}

func TestSettleIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCustomer(t, 0)
	f.seedOrder(t, &order.Order{
		Total:         decimal.NewFromInt(90),
		PendingPoints: 90,
	})

	require.NoError(t, f.coordinator.Settle(ctx, f.reload(t), 0))
	require.NoError(t, f.coordinator.Settle(ctx, f.reload(t), 0))
	require.NoError(t, f.coordinator.Settle(ctx, f.reload(t), 0))

	require.EqualValues(t, 90, f.balance(t))

	rows, err := f.ledger.ListTransactions(ctx, "tnt-1", "cust-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestSettleFraudMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCustomer(t, 200)
	f.seedOrder(t, &order.Order{
		Total:          decimal.NewFromInt(85),
		PointsRedeemed: 100,
	})

	err := f.coordinator.Settle(ctx, f.reload(t), 500)
	require.Error(t, err)

	// No partial processing.
	require.EqualValues(t, 200, f.balance(t))
	require.Nil(t, f.reload(t).SettledAt)
}

func TestSettleUnresolvableCustomerIsHardError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedOrder(t, &order.Order{
		Total:         decimal.NewFromInt(90),
		PendingPoints: 90,
	})

	err := f.coordinator.Settle(ctx, f.reload(t), 0)
	require.Error(t, err)
	require.Nil(t, f.reload(t).SettledAt)
}

func TestSettleSubThresholdRedemptionEarnsInstead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCustomer(t, 200)

	// 30 points is below minPointsToRedeem=50: treated as zero, so the
	// order earns normally.
	f.seedOrder(t, &order.Order{
		Total:          decimal.NewFromInt(90),
		PointsRedeemed: 30,
		PendingPoints:  90,
	})

	require.NoError(t, f.coordinator.Settle(ctx, f.reload(t), 30))

	require.EqualValues(t, 290, f.balance(t))

	rows, err := f.ledger.ListTransactions(ctx, "tnt-1", "cust-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, ledger.TypePurchase, rows[0].Type)
}

func TestSettleMarksCouponUsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCustomer(t, 0)

	_, err := f.coupons.Create(ctx, coupon.CreateParams{
		TenantID:     "tnt-1",
		Code:         "PIZZA10",
		DiscountType: coupon.DiscountPercent,
		Value:        decimal.NewFromInt(10),
		SingleUse:    true,
	})
	require.NoError(t, err)

	f.seedOrder(t, &order.Order{
		Total:          decimal.NewFromInt(81),
		CouponCode:     "PIZZA10",
		CouponDiscount: decimal.NewFromInt(9),
		PendingPoints:  81,
	})

	require.NoError(t, f.coordinator.Settle(ctx, f.reload(t), 0))

	_, err = f.coupons.Validate(ctx, "tnt-1", "PIZZA10")
	require.ErrorIs(t, err, coupon.ErrAlreadyUsed)
}

func TestSettleInsufficientBalanceDoesNotBlockOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCustomer(t, 40)
	f.seedOrder(t, &order.Order{
		Total:          decimal.NewFromInt(85),
		PointsRedeemed: 100,
	})

	// The claim is consistent with the stored order, but the balance
	// shrank since checkout. The paid order still settles; the debit is
	// dropped and logged.
	require.NoError(t, f.coordinator.Settle(ctx, f.reload(t), 100))

	require.EqualValues(t, 40, f.balance(t))
	require.NotNil(t, f.reload(t).SettledAt)
}

func TestSettleRecordsPurchaseStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCustomer(t, 0)
	f.seedOrder(t, &order.Order{
		Total:         decimal.NewFromFloat(89.90),
		PendingPoints: 89,
	})

	require.NoError(t, f.coordinator.Settle(ctx, f.reload(t), 0))

	var c customer.Customer
	require.NoError(t, f.db.First(&c, "id = ?", "cust-1").Error)
	require.EqualValues(t, 1, c.TotalPurchases)
	require.True(t, c.TotalSpent.Equal(decimal.NewFromFloat(89.90)))
	require.NotNil(t, c.LastPurchaseAt)
}
