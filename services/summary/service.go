package summary

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"referral-engine/pkg/config"
	"referral-engine/pkg/errutil"
	"referral-engine/pkg/rediskey"
	"referral-engine/services/client"
	"referral-engine/services/reward"
)

// Summary is the per-client rollup of referral activity.
type Summary struct {
	ClientID         string               `json:"client_id"`
	TotalReferrals   int64                `json:"total_referrals"`
	TotalConversions int64                `json:"total_conversions"`
	EarnedRewards    []reward.EarnedReward `json:"earned_rewards"`
}

// ServiceParams defines dependencies for summary service
type ServiceParams struct {
	fx.In

	Cfg     *config.Config
	Repo    Repository
	Clients *client.Service
	Rewards *reward.Service
	Redis   *redis.Client `optional:"true"`
}

type Service struct {
	cfg      *config.Config
	repo     Repository
	clients  *client.Service
	rewards  *reward.Service
	redis    *redis.Client
	cacheTTL time.Duration
}

func NewService(p ServiceParams) *Service {
	ttl := p.Cfg.Referral.SummaryCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		cfg:      p.Cfg,
		repo:     p.Repo,
		clients:  p.Clients,
		rewards:  p.Rewards,
		redis:    p.Redis,
		cacheTTL: ttl,
	}
}

// Summarize assembles the referral rollup for one client. Results are
// cached in redis for a short TTL when a redis client is configured;
// the cache is best effort and read failures fall through to the
// database.
func (s *Service) Summarize(ctx context.Context, clientID string) (*Summary, error) {
	span := trace.SpanFromContext(ctx)
	log := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
		zap.String("client_id", clientID),
	)

	if clientID == "" {
		return nil, errutil.BadRequest("client_id is required")
	}

	if cached := s.fromCache(ctx, clientID); cached != nil {
		return cached, nil
	}

	c, err := s.clients.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}

	out := &Summary{
		ClientID:      c.ID,
		EarnedRewards: []reward.EarnedReward{},
	}

	referralIDs, err := s.repo.ListReferralIDsByOwner(ctx, c.ID)
	if err != nil {
		log.Error("failed to list referrals for summary", zap.Error(err))
		return nil, errutil.Internal("failed to build client summary", errutil.WithErr(err))
	}
	out.TotalReferrals = int64(len(referralIDs))

	// A client with no referrals has nothing else to count.
	if out.TotalReferrals > 0 {
		out.TotalConversions, err = s.repo.CountConversionsByReferralIDs(ctx, referralIDs)
		if err != nil {
			log.Error("failed to count conversions for summary", zap.Error(err))
			return nil, errutil.Internal("failed to build client summary", errutil.WithErr(err))
		}

		out.EarnedRewards, err = s.rewards.ListEarned(ctx, c.ID)
		if err != nil {
			return nil, err
		}
	}

	s.toCache(ctx, clientID, out)
	return out, nil
}

func (s *Service) fromCache(ctx context.Context, clientID string) *Summary {
	if s.redis == nil {
		return nil
	}

	raw, err := s.redis.Get(ctx, rediskey.BuildClientSummaryKey(clientID)).Bytes()
	if err != nil {
		return nil
	}

	var out Summary
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return &out
}

func (s *Service) toCache(ctx context.Context, clientID string, sum *Summary) {
	if s.redis == nil {
		return
	}

	raw, err := json.Marshal(sum)
	if err != nil {
		return
	}

	if err := s.redis.Set(ctx, rediskey.BuildClientSummaryKey(clientID), raw, s.cacheTTL).Err(); err != nil {
		zap.L().Warn("failed to cache client summary", zap.String("client_id", clientID), zap.Error(err))
	}
}
