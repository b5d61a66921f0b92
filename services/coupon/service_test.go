package coupon

import (
	"context"
	"testing"
	"time"

	"pizzaria-orderplane/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Coupon{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node})
}

func TestValidate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{
		TenantID:     "tnt-1",
		Code:         "pizza10",
		DiscountType: DiscountPercent,
		Value:        decimal.NewFromInt(10),
		SingleUse:    true,
	})
	require.NoError(t, err)

	discount, err := svc.Validate(ctx, "tnt-1", " PIZZA10 ")
	require.NoError(t, err)
	require.Equal(t, "PIZZA10", discount.Code)
	require.Equal(t, DiscountPercent, discount.Type)
	require.True(t, discount.Value.Equal(decimal.NewFromInt(10)))

	_, err = svc.Validate(ctx, "tnt-1", "NOPE")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Validate(ctx, "tnt-2", "PIZZA10")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidateExpiredAndInactive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	_, err := svc.Create(ctx, CreateParams{
		TenantID:     "tnt-1",
		Code:         "OLD",
		DiscountType: DiscountAmount,
		Value:        decimal.NewFromInt(5),
		ExpiresAt:    &past,
	})
	require.NoError(t, err)

	_, err = svc.Validate(ctx, "tnt-1", "OLD")
	require.ErrorIs(t, err, ErrExpired)

	created, err := svc.Create(ctx, CreateParams{
		TenantID:     "tnt-1",
		Code:         "PAUSED",
		DiscountType: DiscountAmount,
		Value:        decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	require.NoError(t, svc.db.Model(&Coupon{}).Where("id = ?", created.ID).Update("active", false).Error)

	_, err = svc.Validate(ctx, "tnt-1", "PAUSED")
	require.ErrorIs(t, err, ErrNotActive)
}

func TestMarkUsedIsIdempotentPerOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{
		TenantID:     "tnt-1",
		Code:         "ONCE",
		DiscountType: DiscountPercent,
		Value:        decimal.NewFromInt(15),
		SingleUse:    true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkUsed(ctx, "tnt-1", "ONCE", "PED-1"))

	// Settlement retry for the same order.
	require.NoError(t, svc.MarkUsed(ctx, "tnt-1", "ONCE", "PED-1"))

	// A different order cannot consume it again.
	require.ErrorIs(t, svc.MarkUsed(ctx, "tnt-1", "ONCE", "PED-2"), ErrAlreadyUsed)

	_, err = svc.Validate(ctx, "tnt-1", "ONCE")
	require.ErrorIs(t, err, ErrAlreadyUsed)
}

func TestMarkUsedMultiUseCouponIsNoOp(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{
		TenantID:     "tnt-1",
		Code:         "FOREVER",
		DiscountType: DiscountPercent,
		Value:        decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkUsed(ctx, "tnt-1", "FOREVER", "PED-1"))
	require.NoError(t, svc.MarkUsed(ctx, "tnt-1", "FOREVER", "PED-2"))

	_, err = svc.Validate(ctx, "tnt-1", "FOREVER")
	require.NoError(t, err)
}

func TestDiscountApply(t *testing.T) {
	percent := Discount{Type: DiscountPercent, Value: decimal.NewFromInt(10)}
	require.True(t, percent.Apply(decimal.NewFromInt(90)).Equal(decimal.NewFromInt(9)))

	amount := Discount{Type: DiscountAmount, Value: decimal.NewFromInt(15)}
	require.True(t, amount.Apply(decimal.NewFromInt(90)).Equal(decimal.NewFromInt(15)))
}
