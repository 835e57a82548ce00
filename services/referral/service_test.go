package referral

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"referral-engine/pkg/errutil"
	"referral-engine/services/client"
	"referral-engine/services/testutil"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *client.Client) {
	t.Helper()

	db := testutil.NewTestDB(t, &client.Client{}, &Referral{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clients := client.NewRepository(db)
	owner := &client.Client{
		ID:           node.Generate().String(),
		CreatedAt:    time.Now().UTC(),
		RestaurantID: "rest-1",
		Name:         "Ana",
		ReferralCode: "AB12CD",
	}
	require.NoError(t, clients.Create(context.Background(), owner))

	svc := NewService(ServiceParams{
		Repository: NewRepository(db),
		Clients:    clients,
		Node:       node,
	})

	return svc, db, owner
}

func TestService_Redeem(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()

	ref, err := svc.Redeem(ctx, RedeemParams{Code: "AB12CD", Context: "walk-in"})
	require.NoError(t, err)
	require.Equal(t, owner.ID, ref.OwnerClientID)
	require.Equal(t, owner.RestaurantID, ref.RestaurantID)
	require.Equal(t, "AB12CD", ref.Code)
	require.False(t, ref.SelfReferral)

	got, err := svc.Get(ctx, ref.ID)
	require.NoError(t, err)
	require.Equal(t, "walk-in", got.Context)
}

func TestService_RedeemTrimsCode(t *testing.T) {
	svc, _, owner := newTestService(t)

	ref, err := svc.Redeem(context.Background(), RedeemParams{Code: "  AB12CD  "})
	require.NoError(t, err)
	require.Equal(t, owner.ID, ref.OwnerClientID)
}

func TestService_RedeemUnknownCode(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Redeem(context.Background(), RedeemParams{Code: "ZZZZZZ"})
	require.True(t, errutil.HasStatus(err, errutil.StatusNotFound))
}

func TestService_RedeemEmptyCode(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Redeem(context.Background(), RedeemParams{Code: "   "})
	require.True(t, errutil.HasStatus(err, errutil.StatusValidationFailed))
}

// multiOwnerRepo simulates a corrupted code namespace where two clients hold
// the same code.
type multiOwnerRepo struct {
	client.Repository
}

func (r multiOwnerRepo) FindByCode(ctx context.Context, code string) ([]client.Client, error) {
	return []client.Client{
		{ID: "c1", RestaurantID: "r1", ReferralCode: code},
		{ID: "c2", RestaurantID: "r1", ReferralCode: code},
	}, nil
}

func TestService_RedeemAmbiguousCode(t *testing.T) {
	svc, db, _ := newTestService(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ambiguous := NewService(ServiceParams{
		Repository: NewRepository(db),
		Clients:    multiOwnerRepo{Repository: svc.clients},
		Node:       node,
	})

	_, err = ambiguous.Redeem(context.Background(), RedeemParams{Code: "AB12CD"})
	require.True(t, errutil.HasStatus(err, errutil.StatusConflict))
}

func TestService_RedeemSelfReferralIsFlagged(t *testing.T) {
	svc, _, owner := newTestService(t)

	ref, err := svc.Redeem(context.Background(), RedeemParams{
		Code:             "AB12CD",
		ProspectClientID: owner.ID,
	})
	require.NoError(t, err)
	require.True(t, ref.SelfReferral)
}

func TestService_RedeemAccumulates(t *testing.T) {
	svc, db, owner := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Redeem(ctx, RedeemParams{Code: "AB12CD"})
		require.NoError(t, err)
	}

	var n int64
	require.NoError(t, db.Model(&Referral{}).Where("owner_client_id = ?", owner.ID).Count(&n).Error)
	require.EqualValues(t, 3, n)

	refs, err := svc.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, refs, 3)
}
