package checkout

import (
	"net/http"

	"pizzaria-orderplane/pkg/errutil"
	"pizzaria-orderplane/pkg/server"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(engine *gin.Engine, s *Service) {
	v1 := engine.Group("/api/v1")
	v1.GET("/checkout/settings", s.handleSettings)
	v1.POST("/checkout/quote", s.handleQuote)
	v1.POST("/checkout/orders", s.handleSubmit)
}

func (s *Service) handleSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.Settings())
}

func (s *Service) handleQuote(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid quote payload", err))
		return
	}

	totals, err := s.ComputeTotals(c.Request.Context(), c.GetHeader(server.TenantID), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totals": totals,
		"steps":  s.settings.ActiveSteps(req),
	})
}

func (s *Service) handleSubmit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid checkout payload", err))
		return
	}

	result, err := s.Submit(c.Request.Context(), c.GetHeader(server.TenantID), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
