package audit

import (
	"github.com/smallbiznis/hireledger/internal/audit/repository"
	"github.com/smallbiznis/hireledger/internal/audit/service"
	"go.uber.org/fx"
)

// Module exports the audit trail service. The repository stays private so
// other modules can only append through Record.
var Module = fx.Module("audit",
	fx.Provide(repository.Provide, fx.Private),
	fx.Provide(service.NewService),
)
