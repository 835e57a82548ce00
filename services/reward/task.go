package reward

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"referral-engine/services/referral"
)

var TaskModule = fx.Module("task.reward",
	fx.Provide(NewTask),
)

// NewEvaluateTask builds the retry task for a deferred reward evaluation.
func NewEvaluateTask(restaurantID, clientID, traceID string) (*asynq.Task, error) {
	payload, err := json.Marshal(EvaluatePayload{
		RestaurantID: restaurantID,
		ClientID:     clientID,
		TraceID:      traceID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEvaluateRewards, payload, asynq.Queue("rewards")), nil
}

// NewEvaluateReferralTask defers an evaluation whose owner is not known yet,
// carrying only the referral ID for the handler to resolve.
func NewEvaluateReferralTask(referralID, traceID string) (*asynq.Task, error) {
	payload, err := json.Marshal(EvaluatePayload{
		ReferralID: referralID,
		TraceID:    traceID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEvaluateRewards, payload, asynq.Queue("rewards")), nil
}

type Task struct {
	evaluator *Evaluator
	referrals referral.Repository
}

type TaskParams struct {
	fx.In
	Evaluator *Evaluator
	Referrals referral.Repository
}

func NewTask(p TaskParams) *Task {
	return &Task{evaluator: p.Evaluator, referrals: p.Referrals}
}

func (s *Task) HandleEvaluateRewardsTask(ctx context.Context, t *asynq.Task) error {
	var payload EvaluatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", t.Type()),
		zap.String("restaurant_id", payload.RestaurantID),
		zap.String("client_id", payload.ClientID),
		zap.String("referral_id", payload.ReferralID),
		zap.String("trace_id", payload.TraceID),
	)
	zapLog.Info("start deferred reward evaluation")

	if payload.ClientID == "" && payload.ReferralID != "" {
		ref, err := s.referrals.GetByID(ctx, payload.ReferralID)
		if err != nil {
			zapLog.Error("failed to resolve referral for deferred evaluation", zap.Error(err))
			return err
		}
		if ref == nil {
			zapLog.Warn("referral gone, dropping deferred evaluation")
			return nil
		}
		payload.RestaurantID = ref.RestaurantID
		payload.ClientID = ref.OwnerClientID
	}

	earned, err := s.evaluator.Evaluate(ctx, payload.RestaurantID, payload.ClientID)
	if err != nil {
		zapLog.Error("deferred reward evaluation failed", zap.Error(err))
		return err
	}

	zapLog.Info("deferred reward evaluation finished", zap.Int("earned", len(earned)))
	return nil
}
