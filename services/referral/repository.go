package referral

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository describes database operations available for referrals.
type Repository interface {
	Create(ctx context.Context, r *Referral) error
	GetByID(ctx context.Context, id string) (*Referral, error)
	ListByOwner(ctx context.Context, ownerClientID string) ([]Referral, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, ref *Referral) error {
	return r.db.WithContext(ctx).Create(ref).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id string) (*Referral, error) {
	var ref Referral
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *gormRepository) ListByOwner(ctx context.Context, ownerClientID string) ([]Referral, error) {
	var refs []Referral
	err := r.db.WithContext(ctx).
		Where("owner_client_id = ?", ownerClientID).
		Order("created_at ASC").
		Find(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}
