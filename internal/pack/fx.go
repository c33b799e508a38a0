package pack

import (
	"github.com/smallbiznis/hireledger/internal/pack/repository"
	"github.com/smallbiznis/hireledger/internal/pack/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pack.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
