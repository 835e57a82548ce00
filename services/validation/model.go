package validation

import (
	"time"
)

// Validation is a per-client eligibility override. At most one record exists
// per client; a new write replaces the previous one. Absence of a record
// means the client is eligible.
type Validation struct {
	ClientID  string    `gorm:"column:client_id;primaryKey" json:"client_id"`
	Validated bool      `gorm:"column:validated" json:"validated"`
	Reason    string    `gorm:"column:reason" json:"reason"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Validation) TableName() string { return "validations" }
