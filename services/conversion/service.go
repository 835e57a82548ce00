package conversion

import (
	"context"
	"time"

	"referral-engine/pkg/errutil"
	"referral-engine/pkg/task"
	"referral-engine/services/referral"
	"referral-engine/services/reward"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	repo      Repository
	referrals referral.Repository
	evaluator *reward.Evaluator
	node      *snowflake.Node
	enqueue   task.Enqueuer
}

type ServiceParams struct {
	fx.In
	Repository Repository
	Referrals  referral.Repository
	Evaluator  *reward.Evaluator
	Node       *snowflake.Node
	Enqueuer   task.Enqueuer `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		repo:      p.Repository,
		referrals: p.Referrals,
		evaluator: p.Evaluator,
		node:      p.Node,
		enqueue:   p.Enqueuer,
	}
}

type RecordParams struct {
	RestaurantID string    `json:"restaurant_id"`
	ReferralID   string    `json:"referral_id"`
	ClientID     string    `json:"client_id"`
	Date         time.Time `json:"conversion_date"`
	State        string    `json:"state"`
}

// Record inserts a conversion against an existing referral. When the initial
// state is confirmed, the reward evaluator runs for the referral's owner
// before returning so the caller observes up-to-date reward status. The
// conversion write is the durable fact: an evaluator failure is re-queued,
// never rolled back.
func (s *Service) Record(ctx context.Context, params RecordParams) (*Conversion, []reward.EarnedReward, error) {
	span := trace.SpanFromContext(ctx).SpanContext()
	zapLog := zap.L().With(
		zap.String("trace_id", span.TraceID().String()),
		zap.String("span_id", span.SpanID().String()),
		zap.String("restaurant_id", params.RestaurantID),
		zap.String("referral_id", params.ReferralID),
	)

	state := ParseState(params.State)
	if state == "" {
		return nil, nil, errutil.BadRequest("invalid conversion state",
			errutil.WithDetails(errutil.Detail{Field: "state", Message: "use 'pending', 'confirmed' or 'rejected'"}))
	}

	ref, err := s.referrals.GetByID(ctx, params.ReferralID)
	if err != nil {
		zapLog.Error("failed to resolve referral", zap.Error(err))
		return nil, nil, errutil.ServiceUnavailable("failed to resolve referral", errutil.WithErr(err))
	}
	if ref == nil {
		return nil, nil, errutil.NotFound("referral not found",
			errutil.WithDetails(errutil.Detail{Field: "referral_id", Message: params.ReferralID}))
	}
	if ref.RestaurantID != params.RestaurantID {
		return nil, nil, errutil.TenantMismatch("referral belongs to a different restaurant",
			errutil.WithDetails(errutil.Detail{Field: "referral_id", Message: params.ReferralID}))
	}

	date := params.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	now := time.Now().UTC()
	conv := &Conversion{
		ID:           s.node.Generate().String(),
		CreatedAt:    now,
		UpdatedAt:    now,
		RestaurantID: params.RestaurantID,
		ReferralID:   ref.ID,
		ClientID:     params.ClientID,
		Date:         date,
		State:        state,
	}

	if err := s.repo.Create(ctx, conv); err != nil {
		zapLog.Error("failed to create conversion", zap.Error(err))
		return nil, nil, errutil.ServiceUnavailable("failed to create conversion", errutil.WithErr(err))
	}

	var earned []reward.EarnedReward
	if state == StateConfirmed {
		earned = s.evaluateRewards(ctx, zapLog, ref)
	}

	return conv, earned, nil
}

// Transition moves a conversion through its state machine. Terminal states
// never change again; entering confirmed triggers reward evaluation exactly
// as Record does.
func (s *Service) Transition(ctx context.Context, conversionID, newState string) (*Conversion, []reward.EarnedReward, error) {
	span := trace.SpanFromContext(ctx).SpanContext()
	zapLog := zap.L().With(
		zap.String("trace_id", span.TraceID().String()),
		zap.String("span_id", span.SpanID().String()),
		zap.String("conversion_id", conversionID),
	)

	state := ParseState(newState)
	if state == "" {
		return nil, nil, errutil.BadRequest("invalid conversion state",
			errutil.WithDetails(errutil.Detail{Field: "state", Message: "use 'pending', 'confirmed' or 'rejected'"}))
	}

	conv, err := s.repo.GetByID(ctx, conversionID)
	if err != nil {
		zapLog.Error("failed to get conversion", zap.Error(err))
		return nil, nil, errutil.ServiceUnavailable("failed to get conversion", errutil.WithErr(err))
	}
	if conv == nil {
		return nil, nil, errutil.NotFound("conversion not found",
			errutil.WithDetails(errutil.Detail{Field: "conversion_id", Message: conversionID}))
	}

	if !conv.State.CanTransition(state) {
		return nil, nil, errutil.UnprocessableEntity("illegal state transition",
			errutil.WithDetails(errutil.Detail{
				Field:   "state",
				Message: conv.State.String() + " -> " + state.String() + " not permitted",
			}))
	}

	if err := s.repo.UpdateState(ctx, conv.ID, conv.State, state); err != nil {
		zapLog.Error("failed to update conversion state", zap.Error(err))
		return nil, nil, errutil.ServiceUnavailable("failed to update conversion state", errutil.WithErr(err))
	}
	conv.State = state
	conv.UpdatedAt = time.Now().UTC()

	var earned []reward.EarnedReward
	if state == StateConfirmed {
		ref, err := s.referrals.GetByID(ctx, conv.ReferralID)
		switch {
		case err != nil:
			zapLog.Error("failed to resolve referral for reward evaluation", zap.Error(err))
			s.deferEvaluation(ctx, zapLog, conv.ReferralID)
		case ref == nil:
			zapLog.Error("conversion references a missing referral")
		default:
			earned = s.evaluateRewards(ctx, zapLog, ref)
		}
	}

	return conv, earned, nil
}

// deferEvaluation queues a referral-keyed evaluation when the owner could
// not be resolved in-line; the task handler resolves it on delivery.
func (s *Service) deferEvaluation(ctx context.Context, zapLog *zap.Logger, referralID string) {
	if s.enqueue == nil {
		return
	}

	span := trace.SpanFromContext(ctx).SpanContext()
	t, err := reward.NewEvaluateReferralTask(referralID, span.TraceID().String())
	if err == nil {
		_, err = s.enqueue.Enqueue(t)
	}
	if err != nil {
		zapLog.Error("failed to enqueue deferred reward evaluation", zap.Error(err))
	}
}

func (s *Service) evaluateRewards(ctx context.Context, zapLog *zap.Logger, ref *referral.Referral) []reward.EarnedReward {
	earned, err := s.evaluator.Evaluate(ctx, ref.RestaurantID, ref.OwnerClientID)
	if err == nil {
		return earned
	}

	zapLog.Warn("reward evaluation failed, deferring", zap.Error(err))

	if s.enqueue != nil {
		span := trace.SpanFromContext(ctx).SpanContext()
		t, terr := reward.NewEvaluateTask(ref.RestaurantID, ref.OwnerClientID, span.TraceID().String())
		if terr == nil {
			_, terr = s.enqueue.Enqueue(t)
		}
		if terr != nil {
			zapLog.Error("failed to enqueue deferred reward evaluation", zap.Error(terr))
		}
	}

	return nil
}
