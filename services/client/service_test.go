package client

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"referral-engine/pkg/config"
	"referral-engine/pkg/errutil"
	"referral-engine/pkg/referralcode"
	"referral-engine/services/restaurant"
	"referral-engine/services/testutil"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *restaurant.Restaurant) {
	t.Helper()

	db := testutil.NewTestDB(t, &restaurant.Restaurant{}, &Client{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	restaurants := restaurant.NewRepository(db)
	owner := &restaurant.Restaurant{
		ID:        node.Generate().String(),
		CreatedAt: time.Now().UTC(),
		Name:      "Test Bistro",
		Slug:      "test-bistro",
		Email:     "bistro@example.com",
		Plan:      restaurant.PlanFree,
		Status:    restaurant.StatusActive,
	}
	require.NoError(t, restaurants.Create(context.Background(), owner))

	svc := NewService(ServiceParams{
		Repository:  NewRepository(db),
		Restaurants: restaurants,
		Codes:       referralcode.New(8),
		Node:        node,
	})

	return svc, db, owner
}

// scriptedGenerator returns codes from a fixed list, repeating the last one
// once the list runs out.
type scriptedGenerator struct {
	codes []string
	next  int
}

func (g *scriptedGenerator) Generate() (string, error) {
	if g.next < len(g.codes) {
		c := g.codes[g.next]
		g.next++
		return c, nil
	}
	return g.codes[len(g.codes)-1], nil
}

func TestService_Enroll(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()

	c, err := svc.Enroll(ctx, EnrollParams{
		RestaurantID: owner.ID,
		Name:         "Ana",
		Email:        "ana@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)
	require.Len(t, c.ReferralCode, 8)
	require.Equal(t, owner.ID, c.RestaurantID)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, c.ReferralCode, got.ReferralCode)
}

func TestService_EnrollValidation(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, EnrollParams{RestaurantID: owner.ID, Name: "   "})
	require.True(t, errutil.HasStatus(err, errutil.StatusValidationFailed))

	_, err = svc.Enroll(ctx, EnrollParams{RestaurantID: "missing", Name: "Ana"})
	require.True(t, errutil.HasStatus(err, errutil.StatusNotFound))
}

func TestService_EnrollRetriesOnCodeCollision(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()

	first, err := svc.Enroll(ctx, EnrollParams{RestaurantID: owner.ID, Name: "First"})
	require.NoError(t, err)

	// First attempt collides with the existing code, second succeeds.
	svc.codes = &scriptedGenerator{codes: []string{first.ReferralCode, "FRESH123"}}

	second, err := svc.Enroll(ctx, EnrollParams{RestaurantID: owner.ID, Name: "Second"})
	require.NoError(t, err)
	require.Equal(t, "FRESH123", second.ReferralCode)
}

func TestService_EnrollExhaustsCodeAttempts(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()

	first, err := svc.Enroll(ctx, EnrollParams{RestaurantID: owner.ID, Name: "First"})
	require.NoError(t, err)

	// Generator that never stops colliding.
	svc.codes = &scriptedGenerator{codes: []string{first.ReferralCode}}

	_, err = svc.Enroll(ctx, EnrollParams{RestaurantID: owner.ID, Name: "Second"})
	require.True(t, errutil.HasStatus(err, errutil.StatusConflict))
}

func TestService_GetUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "missing")
	require.True(t, errutil.HasStatus(err, errutil.StatusNotFound))
}

func TestService_CodeAttemptsConfigurable(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.Referral.MaxCodeAttempts = 1
	svc2 := NewService(ServiceParams{
		Cfg:         cfg,
		Repository:  svc.repo,
		Restaurants: svc.restaurants,
		Codes:       referralcode.New(8),
		Node:        svc.node,
	})
	require.Equal(t, 1, svc2.maxCodeAttempts)

	first, err := svc2.Enroll(ctx, EnrollParams{RestaurantID: owner.ID, Name: "First"})
	require.NoError(t, err)

	// A single-attempt budget means one collision exhausts enrollment.
	gen := &scriptedGenerator{codes: []string{first.ReferralCode}}
	svc2.codes = gen

	_, err = svc2.Enroll(ctx, EnrollParams{RestaurantID: owner.ID, Name: "Second"})
	require.True(t, errutil.HasStatus(err, errutil.StatusConflict))
	require.Equal(t, 1, gen.next)
}
