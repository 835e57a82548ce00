package client

import (
	"context"
	"strings"
	"time"

	"referral-engine/pkg/config"
	"referral-engine/pkg/db"
	"referral-engine/pkg/errutil"
	"referral-engine/pkg/referralcode"
	"referral-engine/services/restaurant"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultMaxCodeAttempts = 5

// CodeGenerator issues referral codes. *referralcode.Generator is the
// production implementation.
type CodeGenerator interface {
	Generate() (string, error)
}

type Service struct {
	repo        Repository
	restaurants restaurant.Repository
	codes       CodeGenerator
	node        *snowflake.Node

	maxCodeAttempts int
}

type ServiceParams struct {
	fx.In
	Cfg         *config.Config `optional:"true"`
	Repository  Repository
	Restaurants restaurant.Repository
	Codes       *referralcode.Generator
	Node        *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	attempts := defaultMaxCodeAttempts
	if p.Cfg != nil && p.Cfg.Referral.MaxCodeAttempts > 0 {
		attempts = p.Cfg.Referral.MaxCodeAttempts
	}

	return &Service{
		repo:            p.Repository,
		restaurants:     p.Restaurants,
		codes:           p.Codes,
		node:            p.Node,
		maxCodeAttempts: attempts,
	}
}

type EnrollParams struct {
	RestaurantID string `json:"restaurant_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}

// Enroll registers a client and issues its referral code. On a duplicate-code
// conflict the code is regenerated and the insert retried; the attempt budget
// guards against a broken generator, not a crowded namespace.
func (s *Service) Enroll(ctx context.Context, params EnrollParams) (*Client, error) {
	span := trace.SpanFromContext(ctx).SpanContext()
	zapLog := zap.L().With(
		zap.String("trace_id", span.TraceID().String()),
		zap.String("span_id", span.SpanID().String()),
		zap.String("restaurant_id", params.RestaurantID),
	)

	if strings.TrimSpace(params.Name) == "" {
		return nil, errutil.ValidationFailed("name is required",
			errutil.WithDetails(errutil.Detail{Field: "name", Message: "required"}))
	}

	owner, err := s.restaurants.GetByID(ctx, params.RestaurantID)
	if err != nil {
		zapLog.Error("failed to resolve restaurant", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to resolve restaurant", errutil.WithErr(err))
	}
	if owner == nil {
		return nil, errutil.NotFound("restaurant not found",
			errutil.WithDetails(errutil.Detail{Field: "restaurant_id", Message: params.RestaurantID}))
	}

	for attempt := 0; attempt < s.maxCodeAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			zapLog.Error("failed to generate referral code", zap.Error(err))
			return nil, errutil.Internal("failed to generate referral code", errutil.WithErr(err))
		}

		now := time.Now().UTC()
		c := &Client{
			ID:           s.node.Generate().String(),
			CreatedAt:    now,
			UpdatedAt:    now,
			RestaurantID: params.RestaurantID,
			Name:         params.Name,
			Email:        params.Email,
			Phone:        params.Phone,
			ReferralCode: code,
		}

		err = s.repo.Create(ctx, c)
		if err == nil {
			return c, nil
		}
		if db.IsDuplicateKey(err) {
			zapLog.Warn("referral code collision, regenerating", zap.Int("attempt", attempt+1))
			continue
		}

		zapLog.Error("failed to create client", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to create client", errutil.WithErr(err))
	}

	return nil, errutil.Conflict("could not allocate a unique referral code")
}

func (s *Service) Get(ctx context.Context, id string) (*Client, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errutil.ServiceUnavailable("failed to get client", errutil.WithErr(err))
	}
	if c == nil {
		return nil, errutil.NotFound("client not found",
			errutil.WithDetails(errutil.Detail{Field: "client_id", Message: id}))
	}
	return c, nil
}
