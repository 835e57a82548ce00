package client

import (
	"time"
)

// Client is a loyalty participant. Every client owns exactly one referral
// code, immutable once issued and unique across the whole store.
type Client struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
	RestaurantID string    `gorm:"column:restaurant_id;index;not null" json:"restaurant_id"`
	Name         string    `gorm:"column:name;not null" json:"name"`
	Email        string    `gorm:"column:email" json:"email"`
	Phone        string    `gorm:"column:phone" json:"phone"`
	ReferralCode string    `gorm:"column:referral_code;uniqueIndex;not null" json:"referral_code"`
}

func (Client) TableName() string { return "clients" }
