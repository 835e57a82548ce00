package reward

import (
	"context"
	"time"

	"referral-engine/pkg/db"
	"referral-engine/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// EligibilityChecker gates reward evaluation per client. The validation
// service is the production implementation.
type EligibilityChecker interface {
	IsEligible(ctx context.Context, clientID string) (bool, error)
}

// Evaluator derives earned rewards from a client's confirmed-conversion
// count. It is safe to run concurrently and repeatedly: the unique index on
// (client_id, reward_id) makes every emission exactly-once.
type Evaluator struct {
	repo Repository
	gate EligibilityChecker
	node *snowflake.Node
}

type EvaluatorParams struct {
	fx.In
	Repository Repository
	Gate       EligibilityChecker
	Node       *snowflake.Node
}

func NewEvaluator(p EvaluatorParams) *Evaluator {
	return &Evaluator{
		repo: p.Repository,
		gate: p.Gate,
		node: p.Node,
	}
}

// Evaluate emits an EarnedReward for every threshold the client has newly
// crossed, in ascending threshold order. A blocked client yields an empty
// list, not an error. Re-running with no new confirmed conversions emits
// nothing.
func (e *Evaluator) Evaluate(ctx context.Context, restaurantID, clientID string) ([]EarnedReward, error) {
	span := trace.SpanFromContext(ctx).SpanContext()
	zapLog := zap.L().With(
		zap.String("trace_id", span.TraceID().String()),
		zap.String("span_id", span.SpanID().String()),
		zap.String("restaurant_id", restaurantID),
		zap.String("client_id", clientID),
	)

	eligible, err := e.gate.IsEligible(ctx, clientID)
	if err != nil {
		zapLog.Error("failed eligibility check", zap.Error(err))
		return nil, err
	}
	if !eligible {
		zapLog.Info("client blocked by validation, skipping reward evaluation")
		return []EarnedReward{}, nil
	}

	confirmed, err := e.repo.CountConfirmedConversions(ctx, restaurantID, clientID)
	if err != nil {
		zapLog.Error("failed to count confirmed conversions", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to count confirmed conversions", errutil.WithErr(err))
	}

	rewards, err := e.repo.ListRewards(ctx, restaurantID)
	if err != nil {
		zapLog.Error("failed to list rewards", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to list rewards", errutil.WithErr(err))
	}

	alreadyEarned, err := e.repo.ListEarnedRewardIDs(ctx, clientID)
	if err != nil {
		zapLog.Error("failed to list earned rewards", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to list earned rewards", errutil.WithErr(err))
	}

	emitted := make([]EarnedReward, 0)
	for _, r := range rewards {
		if r.Threshold > confirmed {
			// Rewards are sorted by threshold; nothing further can match.
			break
		}
		if _, ok := alreadyEarned[r.ID]; ok {
			continue
		}

		earned := EarnedReward{
			ID:           e.node.Generate().String(),
			RestaurantID: restaurantID,
			ClientID:     clientID,
			RewardID:     r.ID,
			EarnedAt:     time.Now().UTC(),
		}

		if err := e.repo.CreateEarnedReward(ctx, &earned); err != nil {
			if db.IsDuplicateKey(err) {
				// A concurrent evaluation won the race; not an error.
				zapLog.Info("earned reward already recorded", zap.String("reward_id", r.ID))
				continue
			}
			zapLog.Error("failed to record earned reward", zap.String("reward_id", r.ID), zap.Error(err))
			return nil, errutil.ServiceUnavailable("failed to record earned reward", errutil.WithErr(err))
		}

		zapLog.Info("reward earned",
			zap.String("reward_id", r.ID),
			zap.Int64("threshold", r.Threshold),
			zap.Int64("confirmed_conversions", confirmed),
		)
		emitted = append(emitted, earned)
	}

	return emitted, nil
}
