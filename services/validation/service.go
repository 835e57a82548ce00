package validation

import (
	"context"
	"errors"
	"time"

	"referral-engine/pkg/errutil"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db *gorm.DB
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{db: p.DB}
}

type SetParams struct {
	ClientID  string `json:"client_id"`
	Validated bool   `json:"validated"`
	Reason    string `json:"reason"`
}

// Set upserts the validation record for a client. Last write wins; no
// history is kept.
func (s *Service) Set(ctx context.Context, params SetParams) (*Validation, error) {
	if params.ClientID == "" {
		return nil, errutil.ValidationFailed("client_id is required",
			errutil.WithDetails(errutil.Detail{Field: "client_id", Message: "required"}))
	}

	v := &Validation{
		ClientID:  params.ClientID,
		Validated: params.Validated,
		Reason:    params.Reason,
		UpdatedAt: time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"validated", "reason", "updated_at"}),
		}).
		Create(v).Error
	if err != nil {
		zap.L().Error("failed to upsert validation", zap.String("client_id", params.ClientID), zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to upsert validation", errutil.WithErr(err))
	}

	return v, nil
}

// IsEligible reports whether a client may earn rewards. A client is blocked
// only by an explicit validated=false record; no record means eligible.
func (s *Service) IsEligible(ctx context.Context, clientID string) (bool, error) {
	var v Validation
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, errutil.ServiceUnavailable("failed to read validation", errutil.WithErr(err))
	}

	return v.Validated, nil
}
