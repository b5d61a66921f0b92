package checkout

import (
	"context"
	"fmt"
	"testing"

	"pizzaria-orderplane/pkg/config"
	"pizzaria-orderplane/services/coupon"
	"pizzaria-orderplane/services/customer"
	"pizzaria-orderplane/services/ledger"
	"pizzaria-orderplane/services/order"
	"pizzaria-orderplane/services/payment"
	"pizzaria-orderplane/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeTickets struct {
	n int
}

func (f *fakeTickets) NextTicketID(ctx context.Context, tenantID string) (string, error) {
	f.n++
	return fmt.Sprintf("PED-250901-%03dXX", f.n), nil
}

func (f *fakeTickets) NextCouponCode(ctx context.Context, tenantID string) (string, error) {
	f.n++
	return fmt.Sprintf("CUP-250901-%03dXX", f.n), nil
}

type fakeGateway struct {
	charge payment.Charge
	err    error
}

func (f *fakeGateway) CreateCharge(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := f.charge
	return &c, nil
}

func (f *fakeGateway) GetChargeStatus(ctx context.Context, paymentID string) (*payment.Charge, error) {
	c := f.charge
	c.PaymentID = paymentID
	return &c, nil
}

type fixture struct {
	svc     *Service
	db      *gorm.DB
	orders  *order.Service
	coupons *coupon.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&customer.Customer{}, &ledger.LoyaltyTransaction{}, &coupon.Coupon{},
		&order.Order{}, &order.OrderItem{}, &payment.PendingPixOrder{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Loyalty.PointsPerReal = 1.0
	cfg.Loyalty.DiscountPer100Points = 5.0
	cfg.Loyalty.MinPointsToRedeem = 50
	cfg.Loyalty.PointsExpirationDays = 365
	cfg.Scheduling.Enable = true
	cfg.Scheduling.MinScheduleMinutes = 60
	cfg.Scheduling.MaxScheduleDays = 7

	customers := customer.NewService(customer.ServiceParams{DB: db, Node: node})
	ledgerSvc := ledger.NewService(ledger.ServiceParams{DB: db, Node: node, Config: cfg})
	coupons := coupon.NewService(coupon.ServiceParams{DB: db, Node: node})
	orders := order.NewService(order.ServiceParams{DB: db, Ledger: ledgerSvc})
	payments := payment.NewService(payment.ServiceParams{
		DB:      db,
		Gateway: &fakeGateway{charge: payment.Charge{PaymentID: "pay-1", QRCode: "QR"}},
		Orders:  orders,
	})

	svc := NewService(ServiceParams{
		Config:    cfg,
		Node:      node,
		Tickets:   &fakeTickets{},
		Customers: customers,
		Coupons:   coupons,
		Orders:    orders,
		Payments:  payments,
	})

	return &fixture{svc: svc, db: db, orders: orders, coupons: coupons}
}

func cashRequest() SubmitRequest {
	return SubmitRequest{
		Contact:       Contact{Name: "Maria", Phone: "11999990000", Email: "maria@example.com"},
		DeliveryType:  order.DeliveryTypePickup,
		PaymentMethod: order.PaymentCash,
		Items: []CartItem{
			{Name: "Pizza Margherita", Size: "G", Quantity: 1, UnitPrice: 60},
			{Name: "Pizza Calabresa", Size: "M", Quantity: 1, UnitPrice: 30},
		},
	}
}

func TestComputeTotalsEarnsWhenNotRedeeming(t *testing.T) {
	f := newFixture(t)

	totals, err := f.svc.ComputeTotals(context.Background(), "tnt-1", cashRequest())
	require.NoError(t, err)

	require.True(t, totals.Subtotal.Equal(decimal.NewFromInt(90)))
	require.True(t, totals.Total.Equal(decimal.NewFromInt(90)))
	require.Zero(t, totals.PointsRedeemed)
	require.EqualValues(t, 90, totals.PendingPoints)
}

func TestComputeTotalsRedemptionDiscount(t *testing.T) {
	f := newFixture(t)

	req := cashRequest()
	req.PointsToRedeem = 100

	totals, err := f.svc.ComputeTotals(context.Background(), "tnt-1", req)
	require.NoError(t, err)

	// 100 points at R$5 per 100 = R$5 off, and no earn on the same order.
	require.True(t, totals.PointsDiscount.Equal(decimal.NewFromInt(5)))
	require.True(t, totals.Total.Equal(decimal.NewFromInt(85)))
	require.EqualValues(t, 100, totals.PointsRedeemed)
	require.Zero(t, totals.PendingPoints)
}

func TestComputeTotalsSubThresholdRedemptionIsZero(t *testing.T) {
	f := newFixture(t)

	req := cashRequest()
	req.PointsToRedeem = 30

	totals, err := f.svc.ComputeTotals(context.Background(), "tnt-1", req)
	require.NoError(t, err)

	require.True(t, totals.PointsDiscount.IsZero())
	require.Zero(t, totals.PointsRedeemed)
	require.True(t, totals.Total.Equal(decimal.NewFromInt(90)))
	require.EqualValues(t, 90, totals.PendingPoints)
}

func TestComputeTotalsDeliveryFeeOnlyForDelivery(t *testing.T) {
	f := newFixture(t)

	req := cashRequest()
	req.DeliveryFee = 8

	totals, err := f.svc.ComputeTotals(context.Background(), "tnt-1", req)
	require.NoError(t, err)
	require.True(t, totals.DeliveryFee.IsZero())

	req.DeliveryType = order.DeliveryTypeDelivery
	req.Address = &Address{Street: "Rua A", Number: "10", Neighborhood: "Centro"}

	totals, err = f.svc.ComputeTotals(context.Background(), "tnt-1", req)
	require.NoError(t, err)
	require.True(t, totals.DeliveryFee.Equal(decimal.NewFromInt(8)))
	require.True(t, totals.Total.Equal(decimal.NewFromInt(98)))
}

func TestComputeTotalsCouponPercent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coupons.Create(ctx, coupon.CreateParams{
		TenantID:     "tnt-1",
		Code:         "PIZZA10",
		DiscountType: coupon.DiscountPercent,
		Value:        decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	req := cashRequest()
	req.CouponCode = "PIZZA10"

	totals, err := f.svc.ComputeTotals(ctx, "tnt-1", req)
	require.NoError(t, err)
	require.True(t, totals.CouponDiscount.Equal(decimal.NewFromInt(9)))
	require.True(t, totals.Total.Equal(decimal.NewFromInt(81)))
	require.EqualValues(t, 81, totals.PendingPoints)
}

func TestComputeTotalsClampsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coupons.Create(ctx, coupon.CreateParams{
		TenantID:     "tnt-1",
		Code:         "MEGA",
		DiscountType: coupon.DiscountAmount,
		Value:        decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	req := cashRequest()
	req.CouponCode = "MEGA"

	totals, err := f.svc.ComputeTotals(ctx, "tnt-1", req)
	require.NoError(t, err)
	require.True(t, totals.Total.IsZero())
	require.Zero(t, totals.PendingPoints)
}

func TestSubmitCashCreatesPendingOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Submit(ctx, "tnt-1", cashRequest())
	require.NoError(t, err)
	require.NotEmpty(t, result.TicketID)
	require.NotNil(t, result.Order)
	require.Nil(t, result.Charge)

	created, err := f.orders.Get(ctx, "tnt-1", result.TicketID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, created.Status)
	require.EqualValues(t, 90, created.PendingPoints)
	require.Len(t, created.Items, 2)
}

func TestSubmitPixParksOrderBehindCharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := cashRequest()
	req.PaymentMethod = order.PaymentPix
	req.CPF = "12345678901"

	result, err := f.svc.Submit(ctx, "tnt-1", req)
	require.NoError(t, err)
	require.Nil(t, result.Order)
	require.NotNil(t, result.Charge)
	require.Equal(t, "QR", result.Charge.QRCode)

	_, err = f.orders.Get(ctx, "tnt-1", result.TicketID)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestSubmitRejectsRedemptionBeyondBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&customer.Customer{
		ID:              "cust-1",
		TenantID:        "tnt-1",
		NormalizedEmail: "maria@example.com",
		TotalPoints:     60,
	}).Error)

	req := cashRequest()
	req.PointsToRedeem = 100

	_, err := f.svc.Submit(ctx, "tnt-1", req)
	require.Error(t, err)
}

func TestSubmitRejectsChangeBelowTotal(t *testing.T) {
	f := newFixture(t)

	req := cashRequest()
	change := 50.0
	req.CashChangeFor = &change

	_, err := f.svc.Submit(context.Background(), "tnt-1", req)
	require.Error(t, err)
}

func TestSubmitRejectsNegativeCartLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := cashRequest()
	req.Items = append(req.Items, CartItem{Name: "Pizza Calabresa", Quantity: -1, UnitPrice: 55})

	_, err := f.svc.Submit(ctx, "tnt-1", req)
	require.Error(t, err)

	// Nothing was persisted.
	orders, listErr := f.orders.List(ctx, order.ListParams{TenantID: "tnt-1"})
	require.NoError(t, listErr)
	require.Empty(t, orders)
}

func TestSubmitValidatesSteps(t *testing.T) {
	f := newFixture(t)

	req := cashRequest()
	req.Contact.Email = "broken"

	_, err := f.svc.Submit(context.Background(), "tnt-1", req)
	require.Error(t, err)
}
