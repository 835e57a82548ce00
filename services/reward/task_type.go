package reward

// Task type routed through asynq when a synchronous evaluation could not
// complete. Evaluation is idempotent, so at-least-once delivery is safe.
const TaskEvaluateRewards = "referral:evaluate_rewards"

type EvaluatePayload struct {
	RestaurantID string `json:"restaurant_id"`
	ClientID     string `json:"client_id"`
	// ReferralID stands in for restaurant/client when the enqueuer could not
	// resolve the referral's owner; the handler resolves it at delivery time.
	ReferralID string `json:"referral_id,omitempty"`
	TraceID    string `json:"trace_id,omitempty"`
}
