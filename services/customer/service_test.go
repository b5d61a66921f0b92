package customer

import (
	"context"
	"testing"

	"pizzaria-orderplane/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
)

type bonusRecorder struct {
	calls []string
}

func (b *bonusRecorder) RecordSignupBonus(ctx context.Context, tenantID, customerID string) error {
	b.calls = append(b.calls, customerID)
	return nil
}

func newTestService(t *testing.T, bonus BonusGranter) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Customer{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node, Bonus: bonus})
}

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"  JoAo@Example.COM ": "joao@example.com",
		"joão@pizzaria.com":   "joao@pizzaria.com",
		"çédric@mail.com":     "cedric@mail.com",
		"plain@mail.com":      "plain@mail.com",
	}

	for in, want := range cases {
		require.Equal(t, want, NormalizeEmail(in))
	}
}

func TestResolveCreatesCustomerAndGrantsBonus(t *testing.T) {
	bonus := &bonusRecorder{}
	svc := newTestService(t, bonus)
	ctx := context.Background()

	created, err := svc.Resolve(ctx, ResolveParams{
		TenantID: "tnt-1",
		Name:     "Maria",
		Email:    "Maria@Example.com",
		Phone:    "11999990000",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "maria@example.com", created.NormalizedEmail)
	require.Len(t, bonus.calls, 1)
	require.Equal(t, created.ID, bonus.calls[0])
}

func TestResolveReusesCustomerAcrossEmailVariants(t *testing.T) {
	bonus := &bonusRecorder{}
	svc := newTestService(t, bonus)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, ResolveParams{
		TenantID: "tnt-1",
		Name:     "João",
		Email:    "joão@example.com",
		Phone:    "11999990000",
	})
	require.NoError(t, err)

	second, err := svc.Resolve(ctx, ResolveParams{
		TenantID: "tnt-1",
		Name:     "Joao Silva",
		Email:    " JOAO@example.com ",
		Phone:    "11888880000",
	})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Joao Silva", second.Name)
	require.Equal(t, "11888880000", second.Phone)

	// Bonus is only granted on first contact.
	require.Len(t, bonus.calls, 1)
}

func TestResolveKeepsTenantsIsolated(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	a, err := svc.Resolve(ctx, ResolveParams{TenantID: "tnt-1", Name: "Ana", Email: "ana@mail.com"})
	require.NoError(t, err)

	b, err := svc.Resolve(ctx, ResolveParams{TenantID: "tnt-2", Name: "Ana", Email: "ana@mail.com"})
	require.NoError(t, err)

	require.NotEqual(t, a.ID, b.ID)
}

func TestResolveRequiresEmail(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Resolve(context.Background(), ResolveParams{TenantID: "tnt-1", Name: "Ana"})
	require.Error(t, err)
}
