package reward

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"referral-engine/pkg/errutil"
	"referral-engine/services/testutil"
	"referral-engine/services/validation"
)

// Minimal row shapes for the tables the evaluator joins against. The owning
// packages cannot be imported here without a cycle.
type referralRow struct {
	ID            string `gorm:"column:id;primaryKey"`
	RestaurantID  string `gorm:"column:restaurant_id"`
	OwnerClientID string `gorm:"column:owner_client_id"`
}

func (referralRow) TableName() string { return "referrals" }

type conversionRow struct {
	ID           string `gorm:"column:id;primaryKey"`
	RestaurantID string `gorm:"column:restaurant_id"`
	ReferralID   string `gorm:"column:referral_id"`
	State        string `gorm:"column:state"`
}

func (conversionRow) TableName() string { return "conversions" }

type fixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	evaluator *Evaluator
	service   *Service
	gate      *validation.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&Reward{}, &EarnedReward{}, &validation.Validation{},
		&referralRow{}, &conversionRow{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := NewRepository(db)
	gate := validation.NewService(validation.ServiceParams{DB: db})

	return &fixture{
		db:        db,
		node:      node,
		evaluator: NewEvaluator(EvaluatorParams{Repository: repo, Gate: gate, Node: node}),
		service:   NewService(ServiceParams{Repository: repo, Node: node}),
		gate:      gate,
	}
}

func (f *fixture) seedConfirmed(t *testing.T, restaurantID, clientID string, n int) {
	t.Helper()

	ref := referralRow{
		ID:            f.node.Generate().String(),
		RestaurantID:  restaurantID,
		OwnerClientID: clientID,
	}
	require.NoError(t, f.db.Create(&ref).Error)

	for i := 0; i < n; i++ {
		conv := conversionRow{
			ID:           f.node.Generate().String(),
			RestaurantID: restaurantID,
			ReferralID:   ref.ID,
			State:        "confirmed",
		}
		require.NoError(t, f.db.Create(&conv).Error)
	}
}

func TestService_CreateRewardValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, CreateParams{RestaurantID: "r1", Threshold: 0})
	require.True(t, errutil.HasStatus(err, errutil.StatusValidationFailed))

	r, err := f.service.Create(ctx, CreateParams{RestaurantID: "r1", Description: "free dessert", Threshold: 3})
	require.NoError(t, err)
	require.EqualValues(t, 3, r.Threshold)
}

func TestService_ListOrderedByThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, th := range []int64{5, 1, 3} {
		_, err := f.service.Create(ctx, CreateParams{RestaurantID: "r1", Threshold: th})
		require.NoError(t, err)
	}

	rewards, err := f.service.List(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, rewards, 3)
	require.EqualValues(t, 1, rewards[0].Threshold)
	require.EqualValues(t, 3, rewards[1].Threshold)
	require.EqualValues(t, 5, rewards[2].Threshold)
}

func TestEvaluator_EmitsCrossedThresholds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, th := range []int64{1, 3, 10} {
		_, err := f.service.Create(ctx, CreateParams{RestaurantID: "r1", Threshold: th})
		require.NoError(t, err)
	}
	f.seedConfirmed(t, "r1", "c1", 3)

	earned, err := f.evaluator.Evaluate(ctx, "r1", "c1")
	require.NoError(t, err)
	require.Len(t, earned, 2)
	require.Equal(t, "c1", earned[0].ClientID)
}

func TestEvaluator_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, CreateParams{RestaurantID: "r1", Threshold: 1})
	require.NoError(t, err)
	f.seedConfirmed(t, "r1", "c1", 2)

	first, err := f.evaluator.Evaluate(ctx, "r1", "c1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := f.evaluator.Evaluate(ctx, "r1", "c1")
	require.NoError(t, err)
	require.Empty(t, second)

	all, err := f.service.ListEarned(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, all, 1)
}

// blindEarnedRepo hides existing earned rewards from the pre-read, the way a
// racing evaluation that has not observed a concurrent insert would.
type blindEarnedRepo struct {
	Repository
}

func (r blindEarnedRepo) ListEarnedRewardIDs(ctx context.Context, clientID string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func TestEvaluator_DuplicateInsertIsBenign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, CreateParams{RestaurantID: "r1", Threshold: 1})
	require.NoError(t, err)
	f.seedConfirmed(t, "r1", "c1", 1)

	first, err := f.evaluator.Evaluate(ctx, "r1", "c1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A second evaluator that missed the pre-read drives the insert into the
	// unique index; the conflict must be swallowed, not surfaced.
	racing := NewEvaluator(EvaluatorParams{
		Repository: blindEarnedRepo{Repository: NewRepository(f.db)},
		Gate:       f.gate,
		Node:       f.node,
	})

	second, err := racing.Evaluate(ctx, "r1", "c1")
	require.NoError(t, err)
	require.Empty(t, second)

	all, err := f.service.ListEarned(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestEvaluator_BlockedClientEarnsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, CreateParams{RestaurantID: "r1", Threshold: 1})
	require.NoError(t, err)
	f.seedConfirmed(t, "r1", "c1", 5)

	_, err = f.gate.Set(ctx, validation.SetParams{ClientID: "c1", Validated: false, Reason: "fraud review"})
	require.NoError(t, err)

	earned, err := f.evaluator.Evaluate(ctx, "r1", "c1")
	require.NoError(t, err)
	require.Empty(t, earned)

	// Unblocking lets the already-crossed threshold pay out.
	_, err = f.gate.Set(ctx, validation.SetParams{ClientID: "c1", Validated: true})
	require.NoError(t, err)

	earned, err = f.evaluator.Evaluate(ctx, "r1", "c1")
	require.NoError(t, err)
	require.Len(t, earned, 1)
}

func TestEvaluator_BelowThresholdEmitsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, CreateParams{RestaurantID: "r1", Threshold: 5})
	require.NoError(t, err)
	f.seedConfirmed(t, "r1", "c1", 4)

	earned, err := f.evaluator.Evaluate(ctx, "r1", "c1")
	require.NoError(t, err)
	require.Empty(t, earned)
}

func TestEvaluator_ScopedToRestaurant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, CreateParams{RestaurantID: "r1", Threshold: 1})
	require.NoError(t, err)
	f.seedConfirmed(t, "r2", "c1", 3)

	earned, err := f.evaluator.Evaluate(ctx, "r1", "c1")
	require.NoError(t, err)
	require.Empty(t, earned)
}
