package ledger

import (
	"net/http"

	"pizzaria-orderplane/pkg/server"
	"pizzaria-orderplane/services/customer"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(
		NewService,
		func(s *Service) customer.BonusGranter { return s },
	),
	fx.Invoke(registerRoutes),
)

// Worker wires the service without HTTP routes for the task consumer binary.
var Worker = fx.Module("ledger.worker",
	fx.Provide(
		NewService,
		func(s *Service) customer.BonusGranter { return s },
	),
)

func registerRoutes(engine *gin.Engine, s *Service) {
	engine.GET("/api/v1/customers/:id/transactions", s.handleListTransactions)
}

func (s *Service) handleListTransactions(c *gin.Context) {
	rows, err := s.ListTransactions(c.Request.Context(), c.GetHeader(server.TenantID), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}
