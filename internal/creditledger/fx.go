package creditledger

import (
	"github.com/smallbiznis/hireledger/internal/creditledger/repository"
	"github.com/smallbiznis/hireledger/internal/creditledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("creditledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
