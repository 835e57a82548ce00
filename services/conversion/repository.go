package conversion

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Repository describes database operations available for conversions.
type Repository interface {
	Create(ctx context.Context, c *Conversion) error
	GetByID(ctx context.Context, id string) (*Conversion, error)
	// UpdateState moves a conversion out of fromState. The row count guard
	// makes the transition atomic under concurrent writers.
	UpdateState(ctx context.Context, id string, fromState, toState State) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, c *Conversion) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id string) (*Conversion, error) {
	var c Conversion
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) UpdateState(ctx context.Context, id string, fromState, toState State) error {
	res := r.db.WithContext(ctx).
		Model(&Conversion{}).
		Where("id = ? AND state = ?", id, fromState).
		Updates(map[string]any{
			"state":      toState,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
