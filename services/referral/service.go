package referral

import (
	"context"
	"strings"
	"time"

	"referral-engine/pkg/errutil"
	"referral-engine/services/client"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	repo    Repository
	clients client.Repository
	node    *snowflake.Node
}

type ServiceParams struct {
	fx.In
	Repository Repository
	Clients    client.Repository
	Node       *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		repo:    p.Repository,
		clients: p.Clients,
		node:    p.Node,
	}
}

type RedeemParams struct {
	Code string `json:"referral_code"`
	// ProspectClientID identifies the redeeming party when it is a known
	// client; empty for anonymous prospects.
	ProspectClientID string `json:"prospect_client_id"`
	Context          string `json:"redemption_context"`
}

// Redeem resolves a referral code to its owning client and records the
// redemption. A self-redemption is stored but flagged so the reward
// evaluator can treat it separately; it is never silently rejected.
func (s *Service) Redeem(ctx context.Context, params RedeemParams) (*Referral, error) {
	span := trace.SpanFromContext(ctx).SpanContext()
	zapLog := zap.L().With(
		zap.String("trace_id", span.TraceID().String()),
		zap.String("span_id", span.SpanID().String()),
	)

	code := strings.TrimSpace(params.Code)
	if code == "" {
		return nil, errutil.ValidationFailed("referral code is required",
			errutil.WithDetails(errutil.Detail{Field: "referral_code", Message: "required"}))
	}

	owners, err := s.clients.FindByCode(ctx, code)
	if err != nil {
		zapLog.Error("failed to resolve referral code", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to resolve referral code", errutil.WithErr(err))
	}
	if len(owners) == 0 {
		return nil, errutil.NotFound("referral code not found",
			errutil.WithDetails(errutil.Detail{Field: "referral_code", Message: code}))
	}
	if len(owners) > 1 {
		// Should be impossible under the unique index; refuse to guess.
		zapLog.Error("referral code resolves to multiple clients", zap.String("referral_code", code))
		return nil, errutil.Conflict("referral code is ambiguous",
			errutil.WithDetails(errutil.Detail{Field: "referral_code", Message: code}))
	}

	owner := owners[0]
	ref := &Referral{
		ID:            s.node.Generate().String(),
		CreatedAt:     time.Now().UTC(),
		RestaurantID:  owner.RestaurantID,
		OwnerClientID: owner.ID,
		Code:          code,
		Context:       params.Context,
		SelfReferral:  params.ProspectClientID != "" && params.ProspectClientID == owner.ID,
	}

	if err := s.repo.Create(ctx, ref); err != nil {
		zapLog.Error("failed to record referral", zap.Error(err))
		return nil, errutil.ServiceUnavailable("failed to record referral", errutil.WithErr(err))
	}

	if ref.SelfReferral {
		zapLog.Warn("self referral recorded",
			zap.String("referral_id", ref.ID),
			zap.String("client_id", owner.ID),
		)
	}

	return ref, nil
}

// ListByOwner returns a client's referrals in redemption order.
func (s *Service) ListByOwner(ctx context.Context, ownerClientID string) ([]Referral, error) {
	refs, err := s.repo.ListByOwner(ctx, ownerClientID)
	if err != nil {
		return nil, errutil.ServiceUnavailable("failed to list referrals", errutil.WithErr(err))
	}
	return refs, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Referral, error) {
	ref, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errutil.ServiceUnavailable("failed to get referral", errutil.WithErr(err))
	}
	if ref == nil {
		return nil, errutil.NotFound("referral not found",
			errutil.WithDetails(errutil.Detail{Field: "referral_id", Message: id}))
	}
	return ref, nil
}
