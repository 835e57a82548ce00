package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"referral-engine/pkg/errutil"
	"referral-engine/services/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Validation{})
	return NewService(ServiceParams{DB: db})
}

func TestService_EligibleByDefault(t *testing.T) {
	svc := newTestService(t)

	ok, err := svc.IsEligible(context.Background(), "never-seen")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestService_SetBlocksAndUnblocks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Set(ctx, SetParams{ClientID: "c1", Validated: false, Reason: "suspected fraud"})
	require.NoError(t, err)

	ok, err := svc.IsEligible(ctx, "c1")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.Set(ctx, SetParams{ClientID: "c1", Validated: true, Reason: "manually cleared"})
	require.NoError(t, err)

	ok, err = svc.IsEligible(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestService_SetKeepsSingleRecord(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Set(ctx, SetParams{ClientID: "c1", Validated: i%2 == 0})
		require.NoError(t, err)
	}

	var n int64
	require.NoError(t, svc.db.Model(&Validation{}).Where("client_id = ?", "c1").Count(&n).Error)
	require.EqualValues(t, 1, n)
}

func TestService_SetRequiresClientID(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Set(context.Background(), SetParams{Validated: false})
	require.True(t, errutil.HasStatus(err, errutil.StatusValidationFailed))
}
