package reward

import (
	"context"

	"gorm.io/gorm"
)

// Repository describes database operations available for rewards and earned
// rewards. The confirmed-conversion count is a read-only join over the
// referral and conversion tables; this module never mutates either.
type Repository interface {
	CreateReward(ctx context.Context, r *Reward) error
	// ListRewards returns a restaurant's rules in ascending threshold order.
	ListRewards(ctx context.Context, restaurantID string) ([]Reward, error)
	CountConfirmedConversions(ctx context.Context, restaurantID, clientID string) (int64, error)
	ListEarnedRewardIDs(ctx context.Context, clientID string) (map[string]struct{}, error)
	ListEarnedRewards(ctx context.Context, clientID string) ([]EarnedReward, error)
	// CreateEarnedReward returns the raw store error; callers decide whether
	// a duplicate-key conflict is benign.
	CreateEarnedReward(ctx context.Context, e *EarnedReward) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateReward(ctx context.Context, reward *Reward) error {
	return r.db.WithContext(ctx).Create(reward).Error
}

func (r *gormRepository) ListRewards(ctx context.Context, restaurantID string) ([]Reward, error) {
	var rewards []Reward
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("threshold ASC").
		Find(&rewards).Error
	if err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *gormRepository) CountConfirmedConversions(ctx context.Context, restaurantID, clientID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Table("conversions").
		Joins("JOIN referrals ON referrals.id = conversions.referral_id").
		Where("referrals.owner_client_id = ?", clientID).
		Where("referrals.restaurant_id = ?", restaurantID).
		Where("conversions.state = ?", "confirmed").
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *gormRepository) ListEarnedRewardIDs(ctx context.Context, clientID string) (map[string]struct{}, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&EarnedReward{}).
		Where("client_id = ?", clientID).
		Pluck("reward_id", &ids).Error
	if err != nil {
		return nil, err
	}

	earned := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		earned[id] = struct{}{}
	}
	return earned, nil
}

func (r *gormRepository) ListEarnedRewards(ctx context.Context, clientID string) ([]EarnedReward, error) {
	var earned []EarnedReward
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("earned_at ASC").
		Find(&earned).Error
	if err != nil {
		return nil, err
	}
	return earned, nil
}

func (r *gormRepository) CreateEarnedReward(ctx context.Context, e *EarnedReward) error {
	return r.db.WithContext(ctx).Create(e).Error
}
