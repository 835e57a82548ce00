package restaurant

import (
	"time"
)

type SubscriptionPlan string

var (
	PlanFree    SubscriptionPlan = "free"
	PlanPro     SubscriptionPlan = "pro"
	PlanPremium SubscriptionPlan = "premium"
)

func (p SubscriptionPlan) String() string {
	switch p {
	case PlanFree, PlanPro, PlanPremium:
		return string(p)
	default:
		return ""
	}
}

type SubscriptionStatus string

var (
	StatusActive    SubscriptionStatus = "active"
	StatusPastDue   SubscriptionStatus = "past_due"
	StatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) String() string {
	switch s {
	case StatusActive, StatusPastDue, StatusCancelled:
		return string(s)
	default:
		return ""
	}
}

// Restaurant is the tenant root. Every other entity in the system hangs off
// a restaurant ID; cross-restaurant references are invalid.
type Restaurant struct {
	ID           string             `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt    time.Time          `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"column:updated_at" json:"updated_at"`
	Name         string             `gorm:"column:name;not null" json:"name"`
	Slug         string             `gorm:"column:slug;uniqueIndex" json:"slug"`
	Email        string             `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Phone        string             `gorm:"column:phone" json:"phone"`
	Address      string             `gorm:"column:address" json:"address"`
	PasswordHash string             `gorm:"column:password_hash" json:"-"`
	Plan         SubscriptionPlan   `gorm:"column:plan;type:varchar(20)" json:"plan"`
	Status       SubscriptionStatus `gorm:"column:status;type:varchar(20)" json:"status"`
}

func (Restaurant) TableName() string { return "restaurants" }

// StaffUser is a restaurant-side operator account. Authentication itself is
// handled outside this service.
type StaffUser struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	RestaurantID string    `gorm:"column:restaurant_id;index;not null" json:"restaurant_id"`
	Name         string    `gorm:"column:name;not null" json:"name"`
	Email        string    `gorm:"column:email;index" json:"email"`
	Phone        string    `gorm:"column:phone" json:"phone"`
}

func (StaffUser) TableName() string { return "staff_users" }
