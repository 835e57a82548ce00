package reward

import (
	"context"
	"time"

	"referral-engine/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

// Service covers the reward-rule surface. Rules are write-once; edits are
// deliberately unsupported.
type Service struct {
	repo Repository
	node *snowflake.Node
}

type ServiceParams struct {
	fx.In
	Repository Repository
	Node       *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		repo: p.Repository,
		node: p.Node,
	}
}

type CreateParams struct {
	RestaurantID string `json:"restaurant_id"`
	Description  string `json:"description"`
	Threshold    int64  `json:"threshold"`
	RewardType   string `json:"reward_type"`
	RewardDetail string `json:"reward_detail"`
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Reward, error) {
	if params.RestaurantID == "" {
		return nil, errutil.ValidationFailed("restaurant_id is required",
			errutil.WithDetails(errutil.Detail{Field: "restaurant_id", Message: "required"}))
	}
	if params.Threshold < 1 {
		return nil, errutil.ValidationFailed("threshold must be at least 1",
			errutil.WithDetails(errutil.Detail{Field: "threshold", Message: "must be >= 1"}))
	}

	r := &Reward{
		ID:           s.node.Generate().String(),
		CreatedAt:    time.Now().UTC(),
		RestaurantID: params.RestaurantID,
		Description:  params.Description,
		Threshold:    params.Threshold,
		RewardType:   params.RewardType,
		RewardDetail: params.RewardDetail,
	}

	if err := s.repo.CreateReward(ctx, r); err != nil {
		return nil, errutil.ServiceUnavailable("failed to create reward", errutil.WithErr(err))
	}

	return r, nil
}

func (s *Service) List(ctx context.Context, restaurantID string) ([]Reward, error) {
	rewards, err := s.repo.ListRewards(ctx, restaurantID)
	if err != nil {
		return nil, errutil.ServiceUnavailable("failed to list rewards", errutil.WithErr(err))
	}
	return rewards, nil
}

func (s *Service) ListEarned(ctx context.Context, clientID string) ([]EarnedReward, error) {
	earned, err := s.repo.ListEarnedRewards(ctx, clientID)
	if err != nil {
		return nil, errutil.ServiceUnavailable("failed to list earned rewards", errutil.WithErr(err))
	}
	return earned, nil
}
