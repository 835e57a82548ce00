package conversion

import (
	"strings"
	"time"
)

type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateRejected  State = "rejected"
)

// ParseState normalizes case-insensitive input to a known state. The empty
// State return marks an invalid value.
func ParseState(s string) State {
	switch State(strings.ToLower(strings.TrimSpace(s))) {
	case StatePending:
		return StatePending
	case StateConfirmed:
		return StateConfirmed
	case StateRejected:
		return StateRejected
	default:
		return ""
	}
}

func (s State) String() string { return string(s) }

// Terminal reports whether no further transition is allowed from s.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateRejected
}

// CanTransition enforces the conversion state machine:
// pending -> confirmed, pending -> rejected; both targets terminal.
func (s State) CanTransition(to State) bool {
	if s != StatePending {
		return false
	}
	return to == StateConfirmed || to == StateRejected
}

// Conversion is one qualifying event tied to a referral. A referral can
// accumulate many conversions; each owns its own lifecycle state.
type Conversion struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
	RestaurantID string    `gorm:"column:restaurant_id;index;not null" json:"restaurant_id"`
	ReferralID   string    `gorm:"column:referral_id;index;not null" json:"referral_id"`
	ClientID     string    `gorm:"column:client_id;index" json:"client_id"`
	Date         time.Time `gorm:"column:conversion_date" json:"conversion_date"`
	State        State     `gorm:"column:state;type:varchar(20);not null" json:"state"`
}

func (Conversion) TableName() string { return "conversions" }
