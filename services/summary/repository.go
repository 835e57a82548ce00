package summary

import (
	"context"

	"gorm.io/gorm"
)

// Repository exposes the read-model counts behind a client summary. It
// reads the referral and conversion tables but owns neither.
type Repository interface {
	ListReferralIDsByOwner(ctx context.Context, clientID string) ([]string, error)
	CountConversionsByReferralIDs(ctx context.Context, referralIDs []string) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) ListReferralIDsByOwner(ctx context.Context, clientID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Table("referrals").
		Where("owner_client_id = ?", clientID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *gormRepository) CountConversionsByReferralIDs(ctx context.Context, referralIDs []string) (int64, error) {
	if len(referralIDs) == 0 {
		return 0, nil
	}

	var n int64
	err := r.db.WithContext(ctx).
		Table("conversions").
		Where("referral_id IN ?", referralIDs).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}
