package payment

import (
	"github.com/smallbiznis/hireledger/internal/payment/adapters"
	"github.com/smallbiznis/hireledger/internal/payment/adapters/stripe"
	"github.com/smallbiznis/hireledger/internal/payment/repository"
	paymentservice "github.com/smallbiznis/hireledger/internal/payment/service"
	"github.com/smallbiznis/hireledger/internal/payment/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the reconciler and the webhook ingress that feeds it.
var Module = fx.Module("payment",
	fx.Provide(repository.Provide, fx.Private),
	fx.Provide(newRegistry, fx.Private),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)

func newRegistry(log *zap.Logger) *adapters.Registry {
	registry := adapters.NewRegistry(stripe.NewFactory())
	log.Named("payment").Info("webhook providers registered", zap.Strings("providers", registry.Providers()))
	return registry
}
