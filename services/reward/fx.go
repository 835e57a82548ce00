package reward

import (
	"referral-engine/services/validation"

	"go.uber.org/fx"
)

var Module = fx.Module("reward.service",
	fx.Provide(
		NewRepository,
		NewEvaluator,
		NewService,
		provideEligibilityChecker,
	),
)

func provideEligibilityChecker(svc *validation.Service) EligibilityChecker {
	return svc
}
