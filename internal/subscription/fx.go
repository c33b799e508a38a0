package subscription

import (
	"github.com/smallbiznis/hireledger/internal/subscription/repository"
	"github.com/smallbiznis/hireledger/internal/subscription/service"
	"go.uber.org/fx"
)

// Module exports the subscription service. Subscriptions are only created
// by payment reconciliation, which goes through the service as well.
var Module = fx.Module("subscription",
	fx.Provide(repository.Provide, fx.Private),
	fx.Provide(service.NewService),
)
