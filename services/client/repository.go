package client

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository describes database operations available for clients.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id string) (*Client, error)
	// FindByCode returns every client holding the code. The unique index on
	// referral_code makes more than one row a defect, but callers must still
	// treat the ambiguous case explicitly.
	FindByCode(ctx context.Context, code string) ([]Client, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, c *Client) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id string) (*Client, error) {
	var c Client
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

func (r *gormRepository) FindByCode(ctx context.Context, code string) ([]Client, error) {
	var clients []Client
	err := r.db.WithContext(ctx).
		Where("referral_code = ?", code).
		Limit(2).
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}
