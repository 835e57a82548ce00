package restaurant

import (
	"context"
	"strings"
	"time"

	"referral-engine/pkg/db"
	"referral-engine/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo Repository
	node *snowflake.Node
}

type ServiceParams struct {
	fx.In
	Repository Repository
	Node       *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		repo: p.Repository,
		node: p.Node,
	}
}

type RegisterParams struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Password string `json:"password"`
}

// Register creates the tenant root for a new restaurant. The password is
// stored bcrypt-hashed; login flows live outside this core.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*Restaurant, error) {
	span := trace.SpanFromContext(ctx).SpanContext()
	zapLog := zap.L().With(
		zap.String("trace_id", span.TraceID().String()),
		zap.String("span_id", span.SpanID().String()),
	)

	if strings.TrimSpace(params.Name) == "" {
		return nil, errutil.ValidationFailed("name is required",
			errutil.WithDetails(errutil.Detail{Field: "name", Message: "required"}))
	}
	if strings.TrimSpace(params.Email) == "" {
		return nil, errutil.ValidationFailed("email is required",
			errutil.WithDetails(errutil.Detail{Field: "email", Message: "required"}))
	}

	exist, err := s.repo.GetByEmail(ctx, params.Email)
	if err != nil {
		zapLog.Error("failed to check existing restaurant", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to check existing restaurant", errutil.WithErr(err))
	}
	if exist != nil {
		zapLog.Warn("restaurant already exists", zap.String("email", params.Email))
		return nil, errutil.Conflict("restaurant already registered",
			errutil.WithDetails(errutil.Detail{Field: "email", Message: "already in use"}))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		zapLog.Error("failed to hash password", zap.Error(err))
		return nil, errutil.Internal("failed to hash password", errutil.WithErr(err))
	}

	now := time.Now().UTC()
	restaurant := &Restaurant{
		ID:           s.node.Generate().String(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Name:         params.Name,
		Slug:         slug.Make(params.Name),
		Email:        params.Email,
		Phone:        params.Phone,
		Address:      params.Address,
		PasswordHash: string(hash),
		Plan:         PlanFree,
		Status:       StatusActive,
	}

	if err := s.repo.Create(ctx, restaurant); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, errutil.Conflict("restaurant already registered", errutil.WithErr(err))
		}
		zapLog.Error("failed to create restaurant", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to create restaurant", errutil.WithErr(err))
	}

	return restaurant, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Restaurant, error) {
	restaurant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errutil.ServiceUnavailable("failed to get restaurant", errutil.WithErr(err))
	}
	if restaurant == nil {
		return nil, errutil.NotFound("restaurant not found",
			errutil.WithDetails(errutil.Detail{Field: "restaurant_id", Message: id}))
	}
	return restaurant, nil
}

type AddStaffParams struct {
	RestaurantID string `json:"restaurant_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}

// AddStaff enrolls a staff operator under an existing restaurant.
func (s *Service) AddStaff(ctx context.Context, params AddStaffParams) (*StaffUser, error) {
	if _, err := s.Get(ctx, params.RestaurantID); err != nil {
		return nil, err
	}

	staff := &StaffUser{
		ID:           s.node.Generate().String(),
		CreatedAt:    time.Now().UTC(),
		RestaurantID: params.RestaurantID,
		Name:         params.Name,
		Email:        params.Email,
		Phone:        params.Phone,
	}

	if err := s.repo.CreateStaff(ctx, staff); err != nil {
		return nil, errutil.ServiceUnavailable("failed to create staff user", errutil.WithErr(err))
	}

	return staff, nil
}
