package reward

import (
	"time"
)

// Reward is a restaurant-defined threshold rule: accumulate Threshold
// confirmed conversions and the reward is earned. Rules are immutable once
// created.
type Reward struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	RestaurantID string    `gorm:"column:restaurant_id;index;not null" json:"restaurant_id"`
	Description  string    `gorm:"column:description" json:"description"`
	Threshold    int64     `gorm:"column:threshold;not null" json:"threshold"`
	RewardType   string    `gorm:"column:reward_type" json:"reward_type"`
	RewardDetail string    `gorm:"column:reward_detail" json:"reward_detail"`
}

func (Reward) TableName() string { return "rewards" }

// EarnedReward materializes the first crossing of a reward threshold by a
// client. The composite unique index is the concurrency guard: two racing
// evaluations of the same client collapse into one row.
type EarnedReward struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	RestaurantID string    `gorm:"column:restaurant_id;index;not null" json:"restaurant_id"`
	ClientID     string    `gorm:"column:client_id;uniqueIndex:idx_earned_client_reward;not null" json:"client_id"`
	RewardID     string    `gorm:"column:reward_id;uniqueIndex:idx_earned_client_reward;not null" json:"reward_id"`
	EarnedAt     time.Time `gorm:"column:earned_at" json:"earned_at"`
}

func (EarnedReward) TableName() string { return "earned_rewards" }
