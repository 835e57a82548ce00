package referral

import (
	"time"
)

// Referral records that a prospect used a specific client's code. The owner
// is resolved at redemption time and never changes afterwards.
type Referral struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	RestaurantID  string    `gorm:"column:restaurant_id;index;not null" json:"restaurant_id"`
	OwnerClientID string    `gorm:"column:owner_client_id;index;not null" json:"owner_client_id"`
	Code          string    `gorm:"column:referral_code;index" json:"referral_code"`
	Context       string    `gorm:"column:redemption_context" json:"redemption_context"`
	SelfReferral  bool      `gorm:"column:self_referral" json:"self_referral"`
}

func (Referral) TableName() string { return "referrals" }
