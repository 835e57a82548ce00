package restaurant

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository describes database operations available for restaurants.
type Repository interface {
	Create(ctx context.Context, r *Restaurant) error
	GetByID(ctx context.Context, id string) (*Restaurant, error)
	GetByEmail(ctx context.Context, email string) (*Restaurant, error)
	CreateStaff(ctx context.Context, u *StaffUser) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, restaurant *Restaurant) error {
	return r.db.WithContext(ctx).Create(restaurant).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id string) (*Restaurant, error) {
	var restaurant Restaurant
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&restaurant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *gormRepository) GetByEmail(ctx context.Context, email string) (*Restaurant, error) {
	var restaurant Restaurant
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&restaurant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *gormRepository) CreateStaff(ctx context.Context, u *StaffUser) error {
	return r.db.WithContext(ctx).Create(u).Error
}
