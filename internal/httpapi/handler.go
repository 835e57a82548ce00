package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"referral-engine/pkg/config"
	"referral-engine/pkg/health"
	"referral-engine/pkg/middleware"
	"referral-engine/services/client"
	"referral-engine/services/conversion"
	"referral-engine/services/referral"
	"referral-engine/services/restaurant"
	"referral-engine/services/reward"
	"referral-engine/services/summary"
	"referral-engine/services/validation"
)

var Module = fx.Module("httpapi", fx.Provide(NewHandler))

type HandlerParams struct {
	fx.In

	Cfg         *config.Config
	Health      health.HealthService
	Restaurants *restaurant.Service
	Clients     *client.Service
	Referrals   *referral.Service
	Conversions *conversion.Service
	Validations *validation.Service
	Rewards     *reward.Service
	Summaries   *summary.Service
}

type handler struct {
	restaurants *restaurant.Service
	clients     *client.Service
	referrals   *referral.Service
	conversions *conversion.Service
	validations *validation.Service
	rewards     *reward.Service
	summaries   *summary.Service
}

// NewHandler builds the router. All domain errors flow through the error
// middleware; handlers only bind, call and render.
func NewHandler(p HandlerParams) http.Handler {
	if p.Cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &handler{
		restaurants: p.Restaurants,
		clients:     p.Clients,
		referrals:   p.Referrals,
		conversions: p.Conversions,
		validations: p.Validations,
		rewards:     p.Rewards,
		summaries:   p.Summaries,
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Error())

	r.GET("/healthz", p.Health.Liveness)
	r.GET("/readyz", p.Health.Readiness)

	v1 := r.Group("/v1")
	{
		v1.POST("/restaurants", h.registerRestaurant)
		v1.GET("/restaurants/:id", h.getRestaurant)
		v1.POST("/restaurants/:id/staff", h.addStaff)

		v1.POST("/clients", h.enrollClient)
		v1.GET("/clients/:id", h.getClient)
		v1.GET("/clients/:id/summary", h.clientSummary)
		v1.GET("/clients/:id/referrals", h.listClientReferrals)

		v1.POST("/referrals/redeem", h.redeemReferral)
		v1.GET("/referrals/:id", h.getReferral)

		v1.POST("/conversions", h.recordConversion)
		v1.POST("/conversions/:id/transition", h.transitionConversion)

		v1.PUT("/validations", h.setValidation)

		v1.POST("/rewards", h.createReward)
		v1.GET("/rewards", h.listRewards)
	}

	return r
}

func (h *handler) registerRestaurant(c *gin.Context) {
	var params restaurant.RegisterParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	r, err := h.restaurants.Register(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, r)
}

func (h *handler) getRestaurant(c *gin.Context) {
	r, err := h.restaurants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, r)
}

func (h *handler) addStaff(c *gin.Context) {
	var params restaurant.AddStaffParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}
	params.RestaurantID = c.Param("id")

	staff, err := h.restaurants.AddStaff(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, staff)
}

func (h *handler) enrollClient(c *gin.Context) {
	var params client.EnrollParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	cl, err := h.clients.Enroll(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, cl)
}

func (h *handler) getClient(c *gin.Context) {
	cl, err := h.clients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, cl)
}

func (h *handler) clientSummary(c *gin.Context) {
	sum, err := h.summaries.Summarize(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, sum)
}

type redeemRequest struct {
	referral.RedeemParams
	// Consume records a confirmed conversion in the same call, for flows
	// where redemption happens at the point of sale.
	Consume bool `json:"consume"`
}

type redeemResponse struct {
	Referral   *referral.Referral     `json:"referral"`
	Conversion *conversion.Conversion `json:"conversion,omitempty"`
	Earned     []reward.EarnedReward  `json:"earned_rewards,omitempty"`
}

func (h *handler) redeemReferral(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	ctx := c.Request.Context()
	ref, err := h.referrals.Redeem(ctx, req.RedeemParams)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := redeemResponse{Referral: ref}
	if req.Consume {
		conv, earned, err := h.conversions.Record(ctx, conversion.RecordParams{
			RestaurantID: ref.RestaurantID,
			ReferralID:   ref.ID,
			ClientID:     req.ProspectClientID,
			State:        string(conversion.StateConfirmed),
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		resp.Conversion = conv
		resp.Earned = earned
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *handler) listClientReferrals(c *gin.Context) {
	refs, err := h.referrals.ListByOwner(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"referrals": refs})
}

func (h *handler) getReferral(c *gin.Context) {
	ref, err := h.referrals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ref)
}

type conversionResponse struct {
	Conversion *conversion.Conversion `json:"conversion"`
	Earned     []reward.EarnedReward  `json:"earned_rewards,omitempty"`
}

func (h *handler) recordConversion(c *gin.Context) {
	var params conversion.RecordParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	conv, earned, err := h.conversions.Record(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, conversionResponse{Conversion: conv, Earned: earned})
}

func (h *handler) transitionConversion(c *gin.Context) {
	var req struct {
		State string `json:"state"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	conv, earned, err := h.conversions.Transition(c.Request.Context(), c.Param("id"), req.State)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, conversionResponse{Conversion: conv, Earned: earned})
}

func (h *handler) setValidation(c *gin.Context) {
	var params validation.SetParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	v, err := h.validations.Set(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, v)
}

func (h *handler) createReward(c *gin.Context) {
	var params reward.CreateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}

	r, err := h.rewards.Create(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, r)
}

func (h *handler) listRewards(c *gin.Context) {
	rewards, err := h.rewards.List(c.Request.Context(), c.Query("restaurant_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}
