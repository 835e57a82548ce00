package reward

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"

	"referral-engine/services/referral"
	"referral-engine/services/testutil"
	"referral-engine/services/validation"
)

func TestTask_HandleEvaluateRewardsByReferral(t *testing.T) {
	db := testutil.NewTestDB(t,
		&Reward{}, &EarnedReward{}, &validation.Validation{},
		&referral.Referral{}, &conversionRow{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := NewRepository(db)
	gate := validation.NewService(validation.ServiceParams{DB: db})
	evaluator := NewEvaluator(EvaluatorParams{Repository: repo, Gate: gate, Node: node})
	service := NewService(ServiceParams{Repository: repo, Node: node})
	referrals := referral.NewRepository(db)
	handler := NewTask(TaskParams{Evaluator: evaluator, Referrals: referrals})

	ctx := context.Background()
	_, err = service.Create(ctx, CreateParams{RestaurantID: "r1", Threshold: 1})
	require.NoError(t, err)

	ref := &referral.Referral{
		ID:            node.Generate().String(),
		CreatedAt:     time.Now().UTC(),
		RestaurantID:  "r1",
		OwnerClientID: "c1",
	}
	require.NoError(t, db.Create(ref).Error)
	require.NoError(t, db.Create(&conversionRow{
		ID:           node.Generate().String(),
		RestaurantID: "r1",
		ReferralID:   ref.ID,
		State:        "confirmed",
	}).Error)

	// Owner unknown at enqueue time; the handler resolves it from the
	// referral before evaluating.
	task, err := NewEvaluateReferralTask(ref.ID, "")
	require.NoError(t, err)
	require.NoError(t, handler.HandleEvaluateRewardsTask(ctx, task))

	earned, err := service.ListEarned(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, earned, 1)
}

func TestTask_HandleEvaluateRewardsMissingReferral(t *testing.T) {
	db := testutil.NewTestDB(t,
		&Reward{}, &EarnedReward{}, &validation.Validation{},
		&referral.Referral{}, &conversionRow{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := NewRepository(db)
	gate := validation.NewService(validation.ServiceParams{DB: db})
	evaluator := NewEvaluator(EvaluatorParams{Repository: repo, Gate: gate, Node: node})
	handler := NewTask(TaskParams{Evaluator: evaluator, Referrals: referral.NewRepository(db)})

	// A referral deleted between enqueue and delivery drops the task
	// instead of retrying forever.
	task, err := NewEvaluateReferralTask("gone", "")
	require.NoError(t, err)
	require.NoError(t, handler.HandleEvaluateRewardsTask(context.Background(), task))
}
